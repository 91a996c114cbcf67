package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestShift_DurationHours(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected float64
	}{
		{
			name:     "8小时班",
			start:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local),
			end:      time.Date(2026, 3, 2, 17, 0, 0, 0, time.Local),
			expected: 8.0,
		},
		{
			name:     "4小时半班",
			start:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local),
			end:      time.Date(2026, 3, 2, 13, 30, 0, 0, time.Local),
			expected: 4.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Shift{StartDateTime: tt.start, EndDateTime: tt.end}
			if got := s.DurationHours(); got != tt.expected {
				t.Errorf("DurationHours() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestShift_Covers(t *testing.T) {
	s := &Shift{
		StartDateTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local),
		EndDateTime:   time.Date(2026, 3, 2, 17, 0, 0, 0, time.Local),
	}

	if !s.Covers(s.StartDateTime) {
		t.Error("班次起点应在岗")
	}
	if s.Covers(s.EndDateTime) {
		t.Error("班次终点不应在岗（半开区间）")
	}
	if !s.Covers(time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)) {
		t.Error("班次中间时刻应在岗")
	}
}

func TestShift_DayOfWeek(t *testing.T) {
	s := &Shift{
		StartDateTime: time.Date(2026, 3, 4, 9, 0, 0, 0, time.Local), // 周三
		EndDateTime:   time.Date(2026, 3, 4, 17, 0, 0, 0, time.Local),
	}
	if got := s.DayOfWeek(); got != 2 {
		t.Errorf("DayOfWeek() = %d, expected 2", got)
	}
}

func TestScheduleContext_Indexes(t *testing.T) {
	storeID := uuid.New()
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	ctx := NewScheduleContext(storeID, weekStart)

	emp := &Employee{ID: uuid.New(), StoreID: storeID, DepartmentIDs: []uuid.UUID{uuid.New()}}
	ctx.SetEmployees([]*Employee{emp})

	if got := ctx.GetEmployee(emp.ID); got != emp {
		t.Error("GetEmployee 应返回设置的员工")
	}
	if got := ctx.GetEmployee(uuid.New()); got != nil {
		t.Error("未知ID应返回nil")
	}

	rule := &AvailabilityRule{EmployeeID: emp.ID, DayOfWeek: 0, RuleType: AvailabilityAvailable}
	ctx.SetAvailabilityRules([]*AvailabilityRule{rule})

	if rules := ctx.RulesForEmployee(emp.ID); len(rules) != 1 || rules[0] != rule {
		t.Error("RulesForEmployee 应返回该员工的规则")
	}

	if got := ctx.DateOfDay(2); !got.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local)) {
		t.Errorf("DateOfDay(2) = %v", got)
	}
	if got := ctx.WeekEnd(); !got.Equal(time.Date(2026, 3, 8, 0, 0, 0, 0, time.Local)) {
		t.Errorf("WeekEnd() = %v", got)
	}
}

func TestEmployee_DefaultDepartment(t *testing.T) {
	d1, d2 := uuid.New(), uuid.New()

	emp := &Employee{DepartmentIDs: []uuid.UUID{d1, d2}}
	if got, ok := emp.DefaultDepartment(); !ok || got != d1 {
		t.Error("无主部门时应返回第一个部门")
	}

	emp.PrimaryDepartmentID = &d2
	if got, ok := emp.DefaultDepartment(); !ok || got != d2 {
		t.Error("有主部门时应返回主部门")
	}

	empty := &Employee{}
	if _, ok := empty.DefaultDepartment(); ok {
		t.Error("无部门员工应返回 ok=false")
	}
}

func TestAvailabilityRule_Windows(t *testing.T) {
	start := NewTimeOfDay(9, 0)
	end := NewTimeOfDay(17, 0)

	allDay := &AvailabilityRule{RuleType: AvailabilityAvailable}
	if !allDay.AllDay() {
		t.Error("无起止时间应为全天规则")
	}
	if !allDay.CoversWindow(NewTimeOfDay(6, 0), NewTimeOfDay(22, 0)) {
		t.Error("全天规则应覆盖任意窗口")
	}

	windowed := &AvailabilityRule{RuleType: AvailabilityAvailable, StartTime: &start, EndTime: &end}
	if windowed.AllDay() {
		t.Error("有起止时间不应为全天规则")
	}
	if !windowed.CoversWindow(NewTimeOfDay(10, 0), NewTimeOfDay(14, 0)) {
		t.Error("窗口内的时间段应被覆盖")
	}
	if windowed.CoversWindow(NewTimeOfDay(8, 0), NewTimeOfDay(14, 0)) {
		t.Error("超出窗口的时间段不应被覆盖")
	}
	if !windowed.OverlapsWindow(NewTimeOfDay(8, 0), NewTimeOfDay(10, 0)) {
		t.Error("部分重叠应返回true")
	}
}
