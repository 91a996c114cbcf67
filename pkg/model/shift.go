// Package model 定义周排班核心的数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Shift 班次（求解器产出或已存在）
type Shift struct {
	EmployeeID    uuid.UUID `json:"employee_id" db:"employee_id"`
	StoreID       uuid.UUID `json:"store_id" db:"store_id"`
	DepartmentID  uuid.UUID `json:"department_id" db:"department_id"`
	StartDateTime time.Time `json:"start_datetime" db:"start_datetime"`
	EndDateTime   time.Time `json:"end_datetime" db:"end_datetime"`
}

// DurationHours 返回班次时长（小时）
func (s *Shift) DurationHours() float64 {
	return s.EndDateTime.Sub(s.StartDateTime).Hours()
}

// DayOfWeek 返回班次开始时刻的星期序号（周一=0）
func (s *Shift) DayOfWeek() int {
	return DayOfWeek(s.StartDateTime)
}

// Covers 检查班次在某时刻是否在岗（半开区间）
func (s *Shift) Covers(t time.Time) bool {
	return !s.StartDateTime.After(t) && t.Before(s.EndDateTime)
}

// Overlaps 检查班次是否与时间窗重叠（半开区间）
func (s *Shift) Overlaps(start, end time.Time) bool {
	return RangesOverlap(s.StartDateTime, s.EndDateTime, start, end)
}

// Key 返回班次的去重键（员工+起止时间）
func (s *Shift) Key() string {
	return fmt.Sprintf("%s|%d|%d", s.EmployeeID, s.StartDateTime.Unix(), s.EndDateTime.Unix())
}
