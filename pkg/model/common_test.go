package model

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TimeOfDay
		wantErr  bool
	}{
		{"整点", "09:00", NewTimeOfDay(9, 0), false},
		{"半点", "14:30", NewTimeOfDay(14, 30), false},
		{"午夜", "00:00", 0, false},
		{"格式错误", "9am", 0, true},
		{"越界", "25:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeOfDay(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.expected {
				t.Errorf("ParseTimeOfDay(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	if s := NewTimeOfDay(6, 5).String(); s != "06:05" {
		t.Errorf("String() = %q, expected 06:05", s)
	}
	if s := NewTimeOfDay(22, 0).String(); s != "22:00" {
		t.Errorf("String() = %q, expected 22:00", s)
	}
}

func TestTimeOfDay_AtDate(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	got := NewTimeOfDay(8, 30).AtDate(date)
	expected := time.Date(2026, 3, 2, 8, 30, 0, 0, time.Local)
	if !got.Equal(expected) {
		t.Errorf("AtDate() = %v, expected %v", got, expected)
	}
}

func TestTimesOverlap(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 TimeOfDay
		expected       bool
	}{
		{"完全重叠", NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), true},
		{"部分重叠", NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), NewTimeOfDay(11, 0), NewTimeOfDay(14, 0), true},
		{"首尾相接不算重叠", NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), NewTimeOfDay(12, 0), NewTimeOfDay(14, 0), false},
		{"完全分离", NewTimeOfDay(9, 0), NewTimeOfDay(10, 0), NewTimeOfDay(14, 0), NewTimeOfDay(16, 0), false},
		{"包含", NewTimeOfDay(8, 0), NewTimeOfDay(18, 0), NewTimeOfDay(10, 0), NewTimeOfDay(12, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimesOverlap(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.expected {
				t.Errorf("TimesOverlap() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestDayOfWeek(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		expected int
	}{
		{"周一", time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local), 0},
		{"周三", time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local), 2},
		{"周日", time.Date(2026, 3, 8, 10, 0, 0, 0, time.Local), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayOfWeek(tt.date); got != tt.expected {
				t.Errorf("DayOfWeek(%v) = %d, expected %d", tt.date, got, tt.expected)
			}
		})
	}
}

func TestTimeRange_Contains(t *testing.T) {
	tr := TimeRange{
		Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local),
		End:   time.Date(2026, 3, 2, 17, 0, 0, 0, time.Local),
	}

	if !tr.Contains(tr.Start) {
		t.Error("起点应包含在范围内")
	}
	if tr.Contains(tr.End) {
		t.Error("终点不应包含在范围内（半开区间）")
	}
}
