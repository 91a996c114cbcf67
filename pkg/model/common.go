// Package model 定义周排班核心的数据模型
package model

import (
	"fmt"
	"time"
)

// TimeOfDay 一天内的墙上时钟时间（自零点起的分钟数）
type TimeOfDay int

// NewTimeOfDay 由时和分创建时间
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay 解析 HH:MM 格式的时间
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("无效的时间格式 %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// Hour 返回小时部分
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute 返回分钟部分
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Minutes 返回自零点起的分钟数
func (t TimeOfDay) Minutes() int { return int(t) }

// String 返回 HH:MM 格式
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// AtDate 在指定日期上生成本地墙上时钟时间点
func (t TimeOfDay) AtDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

// MarshalJSON 序列化为 HH:MM 字符串
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

// UnmarshalJSON 从 HH:MM 字符串反序列化
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("无效的时间值: %s", s)
	}
	parsed, err := ParseTimeOfDay(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimesOverlap 检查两个同日时间窗是否重叠（半开区间）
func TimesOverlap(start1, end1, start2, end2 TimeOfDay) bool {
	return start1 < end2 && start2 < end1
}

// RangesOverlap 检查两个时间范围是否重叠（半开区间）
func RangesOverlap(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}

// DayOfWeek 返回时间点的星期序号（周一=0 … 周日=6）
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DateOnly 截断到当日零点
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点（半开区间）
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}
