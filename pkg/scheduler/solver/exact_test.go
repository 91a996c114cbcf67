package solver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/errors"
	"github.com/zhoupai/zhoupai/pkg/model"
)

func TestOptions_Slots(t *testing.T) {
	opts := DefaultOptions()

	if got := opts.SlotsPerHour(); got != 1 {
		t.Errorf("SlotsPerHour() = %d, expected 1", got)
	}
	if got := opts.SlotsPerDay(); got != 16 {
		t.Errorf("SlotsPerDay() = %d, expected 16", got)
	}
	if got := opts.SlotTime(0); got != model.NewTimeOfDay(6, 0) {
		t.Errorf("SlotTime(0) = %v, expected 06:00", got)
	}
	if got := opts.SlotTime(16); got != model.NewTimeOfDay(22, 0) {
		t.Errorf("SlotTime(16) = %v, expected 22:00", got)
	}
	if got := opts.TimeSlot(model.NewTimeOfDay(10, 0)); got != 4 {
		t.Errorf("TimeSlot(10:00) = %d, expected 4", got)
	}

	opts.SlotDurationMinutes = 30
	if got := opts.SlotsPerDay(); got != 32 {
		t.Errorf("30分钟槽位 SlotsPerDay() = %d, expected 32", got)
	}
	if got := opts.TimeSlot(model.NewTimeOfDay(6, 30)); got != 1 {
		t.Errorf("TimeSlot(06:30) = %d, expected 1", got)
	}
}

func TestOptions_ShiftLengthSlots(t *testing.T) {
	opts := DefaultOptions()

	// 非店长 4..9 小时
	regular := opts.ShiftLengthSlots(false)
	if len(regular) != 6 || regular[0] != 4 || regular[len(regular)-1] != 9 {
		t.Errorf("非店长时长候选 = %v", regular)
	}

	// 店长 4..12 小时
	manager := opts.ShiftLengthSlots(true)
	if len(manager) != 9 || manager[len(manager)-1] != 12 {
		t.Errorf("店长时长候选 = %v", manager)
	}

	// 30分钟槽位下仍为整小时倍数
	opts.SlotDurationMinutes = 30
	regular = opts.ShiftLengthSlots(false)
	if regular[0] != 8 || regular[1] != 10 {
		t.Errorf("30分钟槽位时长候选应为槽位数的整小时倍数: %v", regular)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"默认参数合法", func(o *Options) {}, false},
		{"槽位不整除60", func(o *Options) { o.SlotDurationMinutes = 45 }, true},
		{"工作日窗口颠倒", func(o *Options) { o.DayStartHour = 22; o.DayEndHour = 6 }, true},
		{"最短班次为0", func(o *Options) { o.MinShiftHours = 0 }, true},
		{"上限小于下限", func(o *Options) { o.MaxRegularHours = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			if err := opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExact_BuildAvailabilityMatrix(t *testing.T) {
	deptID := uuid.New()
	emp := newEmployee(deptID, 0)
	schedCtx := newContext(emp)

	schedCtx.SetAvailabilityRules([]*model.AvailabilityRule{
		availableRule(emp.ID, 0, 10, 14),
	})

	solver := NewExactSolver(DefaultOptions())
	avail, pref := solver.buildAvailabilityMatrix(emp, schedCtx)

	// 周一仅 10:00-14:00 的槽位可排（槽位4..7）
	for slot := 0; slot < 16; slot++ {
		expected := slot >= 4 && slot < 8
		if avail[0][slot] != expected {
			t.Errorf("周一槽位 %d 可排 = %v, expected %v", slot, avail[0][slot], expected)
		}
		if pref[0][slot] {
			t.Errorf("无偏好规则时槽位 %d 不应为偏好", slot)
		}
	}

	// 其他天无规则默认全部可排
	for slot := 0; slot < 16; slot++ {
		if !avail[1][slot] {
			t.Errorf("周二槽位 %d 应可排", slot)
		}
	}
}

func TestExact_BuildAvailabilityMatrix_TimeOffAndExisting(t *testing.T) {
	deptID := uuid.New()
	emp := newEmployee(deptID, 0)
	schedCtx := newContext(emp)

	schedCtx.TimeOffRequests = []*model.TimeOffRequest{{
		EmployeeID:    emp.ID,
		StartDateTime: time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local),
		EndDateTime:   time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local),
	}}
	schedCtx.ExistingShifts = []*model.Shift{{
		EmployeeID:    emp.ID,
		DepartmentID:  deptID,
		StartDateTime: time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local),
		EndDateTime:   time.Date(2026, 3, 4, 14, 0, 0, 0, time.Local),
	}}

	solver := NewExactSolver(DefaultOptions())
	avail, _ := solver.buildAvailabilityMatrix(emp, schedCtx)

	// 周二全天休假
	for slot := 0; slot < 16; slot++ {
		if avail[1][slot] {
			t.Errorf("休假日槽位 %d 不应可排", slot)
		}
	}
	// 周三 10:00-14:00 被既有班次占用
	for slot := 4; slot < 8; slot++ {
		if avail[2][slot] {
			t.Errorf("既有班次槽位 %d 不应可排", slot)
		}
	}
	if !avail[2][0] || !avail[2][15] {
		t.Error("既有班次之外的槽位应可排")
	}
}

func TestExact_EnumerateKeys(t *testing.T) {
	deptID := uuid.New()
	emp := newEmployee(deptID, 0)
	schedCtx := newContext(emp)

	schedCtx.SetAvailabilityRules([]*model.AvailabilityRule{
		availableRule(emp.ID, 0, 10, 14), // 周一仅4小时窗口
		{EmployeeID: emp.ID, DayOfWeek: 1, RuleType: model.AvailabilityUnavailable},
		{EmployeeID: emp.ID, DayOfWeek: 2, RuleType: model.AvailabilityUnavailable},
		{EmployeeID: emp.ID, DayOfWeek: 3, RuleType: model.AvailabilityUnavailable},
		{EmployeeID: emp.ID, DayOfWeek: 4, RuleType: model.AvailabilityUnavailable},
		{EmployeeID: emp.ID, DayOfWeek: 5, RuleType: model.AvailabilityUnavailable},
		{EmployeeID: emp.ID, DayOfWeek: 6, RuleType: model.AvailabilityUnavailable},
	})

	solver := NewExactSolver(DefaultOptions())
	em := &exactModel{
		schedCtx:      schedCtx,
		opts:          solver.opts,
		availMatrix:   make(map[uuid.UUID][][]bool),
		prefMatrix:    make(map[uuid.UUID][][]bool),
		existingHours: make(map[uuid.UUID]float64),
		existingDays:  map[uuid.UUID]map[int]bool{emp.ID: {}},
	}
	em.availMatrix[emp.ID], em.prefMatrix[emp.ID] = solver.buildAvailabilityMatrix(emp, schedCtx)

	em.enumerateKeys()

	// 周一 10:00-14:00 只能容纳一个4小时班（槽位4起）
	if len(em.keys) != 1 {
		t.Fatalf("可行变量数 = %d, expected 1: %v", len(em.keys), em.keys)
	}
	key := em.keys[0]
	if key.day != 0 || key.startSlot != 4 || key.lengthSlot != 4 || key.deptID != deptID {
		t.Errorf("变量标识不符: %+v", key)
	}
	if !key.covers(5) || key.covers(8) {
		t.Error("covers 判定错误")
	}
}

func TestExact_ExistingShiftDaySkipped(t *testing.T) {
	deptID := uuid.New()
	emp := newEmployee(deptID, 0)
	schedCtx := newContext(emp)
	schedCtx.ExistingShifts = []*model.Shift{{
		EmployeeID:    emp.ID,
		DepartmentID:  deptID,
		StartDateTime: time.Date(2026, 3, 2, 6, 0, 0, 0, time.Local),
		EndDateTime:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local),
	}}

	solver := NewExactSolver(DefaultOptions())
	em := &exactModel{
		schedCtx:      schedCtx,
		opts:          solver.opts,
		availMatrix:   make(map[uuid.UUID][][]bool),
		prefMatrix:    make(map[uuid.UUID][][]bool),
		existingHours: map[uuid.UUID]float64{emp.ID: 4},
		existingDays:  map[uuid.UUID]map[int]bool{emp.ID: {0: true}},
	}
	em.availMatrix[emp.ID], em.prefMatrix[emp.ID] = solver.buildAvailabilityMatrix(emp, schedCtx)

	em.enumerateKeys()

	for _, key := range em.keys {
		if key.day == 0 {
			t.Error("有既有班次的日期不应产生决策变量")
		}
	}
}

func TestExact_CapacityExceeded(t *testing.T) {
	deptID := uuid.New()
	emp := newEmployee(deptID, 40)
	schedCtx := newContext(emp)

	opts := DefaultOptions()
	opts.MaxVariables = 10 // 一名无限制员工一周的变量数远超10

	_, err := NewExactSolver(opts).Solve(context.Background(), schedCtx)
	if err == nil {
		t.Fatal("超出容量上限应报错")
	}
	if !errors.Is(err, errors.CodeCapacityExceeded) {
		t.Errorf("错误码 = %v, expected CAPACITY_EXCEEDED", errors.GetCode(err))
	}
}

func TestExact_SlotAlignmentWarning(t *testing.T) {
	deptID := uuid.New()
	emp := newEmployee(deptID, 0)
	schedCtx := newContext(emp)
	schedCtx.CoverageRequirements = []*model.CoverageRequirement{{
		ID:           uuid.New(),
		DepartmentID: deptID,
		DayOfWeek:    0,
		StartTime:    model.NewTimeOfDay(9, 30), // 未对齐60分钟槽位
		EndTime:      model.NewTimeOfDay(14, 0),
		MinStaff:     1,
	}}

	solver := NewExactSolver(DefaultOptions())
	warnings := solver.checkSlotAlignment(schedCtx)
	if len(warnings) != 1 {
		t.Errorf("应有1条对齐警告, 实际 %d: %v", len(warnings), warnings)
	}

	// 30分钟槽位下无警告
	opts := DefaultOptions()
	opts.SlotDurationMinutes = 30
	if warnings := NewExactSolver(opts).checkSlotAlignment(schedCtx); len(warnings) != 0 {
		t.Errorf("30分钟槽位不应有警告: %v", warnings)
	}
}
