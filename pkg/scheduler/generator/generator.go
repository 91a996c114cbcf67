// Package generator 提供排班生成的门面
//
// 校验输入上下文后分发到指定策略的求解器。
// 输入校验错误直接返回；可行性不足不报错，由结果值承载。
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/zhoupai/zhoupai/pkg/errors"
	"github.com/zhoupai/zhoupai/pkg/model"
	"github.com/zhoupai/zhoupai/pkg/scheduler/solver"
)

// Generator 排班生成器
type Generator struct {
	opts solver.Options
}

// New 创建生成器
func New(opts solver.Options) *Generator {
	return &Generator{opts: opts}
}

// NewDefault 创建默认参数的生成器
func NewDefault() *Generator {
	return New(solver.DefaultOptions())
}

// Generate 为单店单周生成排班
func (g *Generator) Generate(ctx context.Context, schedCtx *model.ScheduleContext, strategy solver.Strategy) (*model.ScheduleResult, error) {
	if err := ValidateContext(schedCtx); err != nil {
		return nil, err
	}

	s, err := solver.New(strategy, g.opts)
	if err != nil {
		return nil, err
	}

	return s.Solve(ctx, schedCtx)
}

// ValidateContext 校验排班上下文
// 检查：周起始必须是周一、合同工时非负、时间窗合法、既有班次部门归属
func ValidateContext(schedCtx *model.ScheduleContext) error {
	if schedCtx == nil {
		return errors.InvalidInput("context", "排班上下文为空")
	}

	if schedCtx.WeekStart.IsZero() {
		return errors.InvalidInput("week_start", "未设置周起始日期")
	}
	if model.DayOfWeek(schedCtx.WeekStart) != 0 {
		return errors.InvalidInput("week_start",
			fmt.Sprintf("%s 不是周一", schedCtx.WeekStart.Format("2006-01-02")))
	}

	for _, emp := range schedCtx.Employees {
		if emp.ContractedWeeklyHours < 0 {
			return errors.InvalidInput("contracted_weekly_hours",
				fmt.Sprintf("员工 %s 的合同工时为负", emp.ID))
		}
	}

	for _, rule := range schedCtx.AvailabilityRules {
		if (rule.StartTime == nil) != (rule.EndTime == nil) {
			return errors.InvalidInput("availability_rule",
				fmt.Sprintf("员工 %s 的规则起止时间必须同时存在或同时为空", rule.EmployeeID))
		}
		if rule.StartTime != nil && *rule.EndTime <= *rule.StartTime {
			return errors.InvalidInput("availability_rule",
				fmt.Sprintf("员工 %s 的可用性规则窗口 %s-%s", rule.EmployeeID, rule.StartTime, rule.EndTime))
		}
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			return errors.InvalidInput("day_of_week",
				fmt.Sprintf("员工 %s 的规则星期序号 %d 越界", rule.EmployeeID, rule.DayOfWeek))
		}
	}

	for _, req := range schedCtx.TimeOffRequests {
		if !req.EndDateTime.After(req.StartDateTime) {
			return errors.InvalidInput("time_off_requests",
				fmt.Sprintf("员工 %s 的休假 %s 起止颠倒", req.EmployeeID, req.StartDateTime.Format(time.RFC3339)))
		}
	}

	for _, req := range schedCtx.CoverageRequirements {
		if req.EndTime <= req.StartTime {
			return errors.InvalidInput("coverage_requirements",
				fmt.Sprintf("覆盖需求 %s 的窗口 %s-%s", req.ID, req.StartTime, req.EndTime))
		}
	}

	for _, req := range schedCtx.RoleRequirements {
		if req.EndTime <= req.StartTime {
			return errors.InvalidInput("role_requirements",
				fmt.Sprintf("角色需求 %s 的窗口 %s-%s", req.ID, req.StartTime, req.EndTime))
		}
	}

	for _, shift := range schedCtx.ExistingShifts {
		if !shift.EndDateTime.After(shift.StartDateTime) {
			return errors.InvalidInput("existing_shifts",
				fmt.Sprintf("员工 %s 的既有班次起止颠倒", shift.EmployeeID))
		}
		emp := schedCtx.GetEmployee(shift.EmployeeID)
		if emp != nil && !emp.InDepartment(shift.DepartmentID) {
			return errors.InvalidInput("existing_shifts",
				fmt.Sprintf("员工 %s 的班次部门 %s 不在其部门集合内", shift.EmployeeID, shift.DepartmentID))
		}
	}

	return nil
}
