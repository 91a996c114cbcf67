package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/model"
)

func tod(h, m int) model.TimeOfDay {
	return model.NewTimeOfDay(h, m)
}

func todPtr(h, m int) *model.TimeOfDay {
	t := model.NewTimeOfDay(h, m)
	return &t
}

func windowRule(empID uuid.UUID, day int, typ model.AvailabilityType, startH, endH int) *model.AvailabilityRule {
	return &model.AvailabilityRule{
		EmployeeID: empID,
		DayOfWeek:  day,
		RuleType:   typ,
		StartTime:  todPtr(startH, 0),
		EndTime:    todPtr(endH, 0),
	}
}

func allDayRule(empID uuid.UUID, day int, typ model.AvailabilityType) *model.AvailabilityRule {
	return &model.AvailabilityRule{EmployeeID: empID, DayOfWeek: day, RuleType: typ}
}

func TestClassifySlot_Precedence(t *testing.T) {
	empID := uuid.New()

	tests := []struct {
		name       string
		rules      []*model.AvailabilityRule
		slotStart  model.TimeOfDay
		slotEnd    model.TimeOfDay
		expected   model.AvailabilityType
		expectRule bool
	}{
		{
			name:       "无规则默认可用",
			rules:      nil,
			slotStart:  tod(9, 0),
			slotEnd:    tod(12, 0),
			expectRule: false,
		},
		{
			name:       "全天不可用优先",
			rules:      []*model.AvailabilityRule{allDayRule(empID, 0, model.AvailabilityUnavailable)},
			slotStart:  tod(9, 0),
			slotEnd:    tod(12, 0),
			expected:   model.AvailabilityUnavailable,
			expectRule: true,
		},
		{
			name: "不可用压过可用",
			rules: []*model.AvailabilityRule{
				allDayRule(empID, 0, model.AvailabilityAvailable),
				windowRule(empID, 0, model.AvailabilityUnavailable, 10, 12),
			},
			slotStart:  tod(9, 0),
			slotEnd:    tod(11, 0),
			expected:   model.AvailabilityUnavailable,
			expectRule: true,
		},
		{
			name:       "全天可用",
			rules:      []*model.AvailabilityRule{allDayRule(empID, 0, model.AvailabilityAvailable)},
			slotStart:  tod(9, 0),
			slotEnd:    tod(17, 0),
			expected:   model.AvailabilityAvailable,
			expectRule: true,
		},
		{
			name: "可用且偏好窗口重叠",
			rules: []*model.AvailabilityRule{
				allDayRule(empID, 0, model.AvailabilityAvailable),
				windowRule(empID, 0, model.AvailabilityPreferred, 9, 13),
			},
			slotStart:  tod(10, 0),
			slotEnd:    tod(12, 0),
			expected:   model.AvailabilityPreferred,
			expectRule: true,
		},
		{
			name:       "窗口可用需完整覆盖",
			rules:      []*model.AvailabilityRule{windowRule(empID, 0, model.AvailabilityAvailable, 9, 17)},
			slotStart:  tod(10, 0),
			slotEnd:    tod(14, 0),
			expected:   model.AvailabilityAvailable,
			expectRule: true,
		},
		{
			name:       "仅偏好规则隐含可用",
			rules:      []*model.AvailabilityRule{windowRule(empID, 0, model.AvailabilityPreferred, 9, 13)},
			slotStart:  tod(10, 0),
			slotEnd:    tod(12, 0),
			expected:   model.AvailabilityPreferred,
			expectRule: true,
		},
		{
			name:       "显式可用之外视为不可用",
			rules:      []*model.AvailabilityRule{windowRule(empID, 0, model.AvailabilityAvailable, 9, 12)},
			slotStart:  tod(14, 0),
			slotEnd:    tod(18, 0),
			expected:   model.AvailabilityUnavailable,
			expectRule: true,
		},
		{
			name:       "部分超出可用窗口视为不可用",
			rules:      []*model.AvailabilityRule{windowRule(empID, 0, model.AvailabilityAvailable, 9, 12)},
			slotStart:  tod(10, 0),
			slotEnd:    tod(14, 0),
			expected:   model.AvailabilityUnavailable,
			expectRule: true,
		},
		{
			name:       "其他天的规则不影响",
			rules:      []*model.AvailabilityRule{allDayRule(empID, 1, model.AvailabilityUnavailable)},
			slotStart:  tod(9, 0),
			slotEnd:    tod(12, 0),
			expectRule: false,
		},
		{
			name:       "其他员工的规则不影响",
			rules:      []*model.AvailabilityRule{allDayRule(uuid.New(), 0, model.AvailabilityUnavailable)},
			slotStart:  tod(9, 0),
			slotEnd:    tod(12, 0),
			expectRule: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifySlot(empID, 0, tt.slotStart, tt.slotEnd, tt.rules)
			if ok != tt.expectRule {
				t.Fatalf("ClassifySlot ok = %v, expected %v", ok, tt.expectRule)
			}
			if ok && got != tt.expected {
				t.Errorf("ClassifySlot = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCanWork(t *testing.T) {
	deptID := uuid.New()
	otherDept := uuid.New()
	emp := &model.Employee{
		ID:            uuid.New(),
		DepartmentIDs: []uuid.UUID{deptID},
	}

	// 2026-03-02 周一
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	end := time.Date(2026, 3, 2, 17, 0, 0, 0, time.Local)

	t.Run("无任何限制可工作", func(t *testing.T) {
		ok, reason := CanWork(emp, start, end, deptID, nil, nil, nil)
		if !ok {
			t.Errorf("应可工作, 原因: %s", reason)
		}
	})

	t.Run("部门不匹配", func(t *testing.T) {
		if ok, _ := CanWork(emp, start, end, otherDept, nil, nil, nil); ok {
			t.Error("部门不匹配时不应可工作")
		}
	})

	t.Run("休假冲突", func(t *testing.T) {
		timeOffs := []*model.TimeOffRequest{{
			EmployeeID:    emp.ID,
			StartDateTime: time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
			EndDateTime:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local),
		}}
		if ok, _ := CanWork(emp, start, end, deptID, nil, timeOffs, nil); ok {
			t.Error("休假期间不应可工作")
		}
	})

	t.Run("休假首尾相接不冲突", func(t *testing.T) {
		timeOffs := []*model.TimeOffRequest{{
			EmployeeID:    emp.ID,
			StartDateTime: time.Date(2026, 3, 2, 17, 0, 0, 0, time.Local),
			EndDateTime:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local),
		}}
		if ok, reason := CanWork(emp, start, end, deptID, nil, timeOffs, nil); !ok {
			t.Errorf("半开区间首尾相接不应冲突, 原因: %s", reason)
		}
	})

	t.Run("不可用规则", func(t *testing.T) {
		rules := []*model.AvailabilityRule{allDayRule(emp.ID, 0, model.AvailabilityUnavailable)}
		if ok, _ := CanWork(emp, start, end, deptID, rules, nil, nil); ok {
			t.Error("不可用时段不应可工作")
		}
	})

	t.Run("既有班次冲突", func(t *testing.T) {
		existing := []*model.Shift{{
			EmployeeID:    emp.ID,
			DepartmentID:  deptID,
			StartDateTime: time.Date(2026, 3, 2, 14, 0, 0, 0, time.Local),
			EndDateTime:   time.Date(2026, 3, 2, 20, 0, 0, 0, time.Local),
		}}
		if ok, _ := CanWork(emp, start, end, deptID, nil, nil, existing); ok {
			t.Error("与既有班次重叠不应可工作")
		}
	})

	t.Run("他人班次不冲突", func(t *testing.T) {
		existing := []*model.Shift{{
			EmployeeID:    uuid.New(),
			DepartmentID:  deptID,
			StartDateTime: start,
			EndDateTime:   end,
		}}
		if ok, reason := CanWork(emp, start, end, deptID, nil, nil, existing); !ok {
			t.Errorf("他人的班次不应影响, 原因: %s", reason)
		}
	})
}

func TestRankEmployeesForSlot(t *testing.T) {
	deptID := uuid.New()
	newEmp := func() *model.Employee {
		return &model.Employee{ID: uuid.New(), DepartmentIDs: []uuid.UUID{deptID}}
	}

	preferred := newEmp()
	available := newEmp()
	noRule := newEmp()
	blocked := newEmp()

	rules := []*model.AvailabilityRule{
		windowRule(preferred.ID, 0, model.AvailabilityPreferred, 9, 17),
		allDayRule(available.ID, 0, model.AvailabilityAvailable),
		allDayRule(blocked.ID, 0, model.AvailabilityUnavailable),
	}

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)
	end := time.Date(2026, 3, 2, 14, 0, 0, 0, time.Local)

	ranked := RankEmployeesForSlot(
		[]*model.Employee{noRule, blocked, available, preferred},
		start, end, deptID, rules, nil, nil)

	if len(ranked) != 3 {
		t.Fatalf("应有3名候选, 实际 %d", len(ranked))
	}
	if ranked[0].Employee != preferred {
		t.Error("偏好员工应排第一")
	}
	if ranked[1].Employee != available {
		t.Error("可用员工应排第二")
	}
	if ranked[2].Employee != noRule {
		t.Error("无规则员工应排最后")
	}
}
