package generator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/errors"
	"github.com/zhoupai/zhoupai/pkg/model"
	"github.com/zhoupai/zhoupai/pkg/scheduler/solver"
)

// 2026-03-02 是周一
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

func validContext() *model.ScheduleContext {
	deptID := uuid.New()
	ctx := model.NewScheduleContext(uuid.New(), monday)
	ctx.SetEmployees([]*model.Employee{{
		ID:            uuid.New(),
		StoreID:       ctx.StoreID,
		DepartmentIDs: []uuid.UUID{deptID},
	}})
	return ctx
}

func TestGenerate_WeekStartMustBeMonday(t *testing.T) {
	ctx := validContext()
	ctx.WeekStart = time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local) // 周二

	_, err := NewDefault().Generate(context.Background(), ctx, solver.StrategyGreedy)
	if err == nil {
		t.Fatal("非周一的周起始应报错")
	}
	if !errors.Is(err, errors.CodeInvalidInput) {
		t.Errorf("错误码 = %v, expected INVALID_INPUT", errors.GetCode(err))
	}
}

func TestGenerate_EmptyRequirements(t *testing.T) {
	ctx := validContext()

	result, err := NewDefault().Generate(context.Background(), ctx, solver.StrategyGreedy)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	if !result.Success {
		t.Error("无需求且合同工时为0时应成功")
	}
	if len(result.Shifts) != 0 {
		t.Errorf("不应产出班次, 实际 %d", len(result.Shifts))
	}
}

func TestGenerate_UnknownStrategy(t *testing.T) {
	ctx := validContext()

	if _, err := NewDefault().Generate(context.Background(), ctx, solver.Strategy("annealing")); err == nil {
		t.Error("未知策略应报错")
	}
}

func TestValidateContext(t *testing.T) {
	start := model.NewTimeOfDay(9, 0)
	end := model.NewTimeOfDay(17, 0)

	tests := []struct {
		name    string
		mutate  func(*model.ScheduleContext)
		wantErr bool
	}{
		{"合法上下文", func(c *model.ScheduleContext) {}, false},
		{
			"负合同工时",
			func(c *model.ScheduleContext) {
				c.Employees[0].ContractedWeeklyHours = -1
			},
			true,
		},
		{
			"规则只有开始时间",
			func(c *model.ScheduleContext) {
				c.SetAvailabilityRules([]*model.AvailabilityRule{{
					EmployeeID: c.Employees[0].ID,
					RuleType:   model.AvailabilityAvailable,
					StartTime:  &start,
				}})
			},
			true,
		},
		{
			"规则窗口颠倒",
			func(c *model.ScheduleContext) {
				c.SetAvailabilityRules([]*model.AvailabilityRule{{
					EmployeeID: c.Employees[0].ID,
					RuleType:   model.AvailabilityAvailable,
					StartTime:  &end,
					EndTime:    &start,
				}})
			},
			true,
		},
		{
			"休假起止颠倒",
			func(c *model.ScheduleContext) {
				c.TimeOffRequests = []*model.TimeOffRequest{{
					EmployeeID:    c.Employees[0].ID,
					StartDateTime: monday.AddDate(0, 0, 1),
					EndDateTime:   monday,
				}}
			},
			true,
		},
		{
			"覆盖需求窗口颠倒",
			func(c *model.ScheduleContext) {
				c.CoverageRequirements = []*model.CoverageRequirement{{
					ID:           uuid.New(),
					DepartmentID: c.Employees[0].DepartmentIDs[0],
					StartTime:    end,
					EndTime:      start,
					MinStaff:     1,
				}}
			},
			true,
		},
		{
			"既有班次部门不属于员工",
			func(c *model.ScheduleContext) {
				c.ExistingShifts = []*model.Shift{{
					EmployeeID:    c.Employees[0].ID,
					DepartmentID:  uuid.New(),
					StartDateTime: monday.Add(9 * time.Hour),
					EndDateTime:   monday.Add(17 * time.Hour),
				}}
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := validContext()
			tt.mutate(ctx)
			if err := ValidateContext(ctx); (err != nil) != tt.wantErr {
				t.Errorf("ValidateContext() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
