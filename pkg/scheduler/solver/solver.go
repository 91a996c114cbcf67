// Package solver 提供周排班求解器
//
// 两种策略共用同一契约：贪心构造求解器与基于 MIP 后端的精确优化求解器。
// 两者的未满足集合都交给共享校验器重算，保证报告口径一致。
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/zhoupai/zhoupai/pkg/errors"
	"github.com/zhoupai/zhoupai/pkg/model"
	"github.com/zhoupai/zhoupai/pkg/scheduler/validator"
)

// Strategy 求解策略标识
type Strategy string

const (
	StrategyGreedy Strategy = "greedy" // 贪心构造
	StrategyExact  Strategy = "exact"  // 精确优化
)

// Weights 软约束权重（正为奖励，负为惩罚）
type Weights struct {
	UnmetCoverageSlot    int `json:"unmet_coverage_slot"`
	UnmetRoleSlot        int `json:"unmet_role_slot"`
	UnmetContractedHour  int `json:"unmet_contracted_hour"` // 每小时缺口
	OvertimeHour         int `json:"overtime_hour"`         // 每小时超时
	PrimaryDepartment    int `json:"primary_department"`
	NonPrimaryDepartment int `json:"non_primary_department"`
	PreferredWindow      int `json:"preferred_window"`
	Shift8h              int `json:"shift_8h"`
	Shift6h              int `json:"shift_6h"`
	Shift4h              int `json:"shift_4h"`
	ShiftOther           int `json:"shift_other"`
}

// DefaultWeights 返回默认权重
func DefaultWeights() Weights {
	return Weights{
		UnmetCoverageSlot:    -1000,
		UnmetRoleSlot:        -1000,
		UnmetContractedHour:  -100,
		OvertimeHour:         -3,
		PrimaryDepartment:    25,
		NonPrimaryDepartment: -15,
		PreferredWindow:      15,
		Shift8h:              10,
		Shift6h:              8,
		Shift4h:              7,
		ShiftOther:           5,
	}
}

// Options 求解器调优参数
type Options struct {
	SlotDurationMinutes int           `json:"slot_duration_minutes"` // 必须整除60
	DayStartHour        int           `json:"day_start_hour"`
	DayEndHour          int           `json:"day_end_hour"`
	MinShiftHours       int           `json:"min_shift_hours"`
	MaxRegularHours     int           `json:"max_regular_hours"`
	MaxManagerHours     int           `json:"max_manager_hours"`
	MinRestHours        int           `json:"min_rest_hours"`
	TimeBudget          time.Duration `json:"time_budget"`
	MaxVariables        int           `json:"max_variables"`
	Weights             Weights       `json:"weights"`
}

// DefaultOptions 返回默认参数
// 60分钟槽位仅在所有需求窗口整点对齐时无损，否则应降为30分钟
func DefaultOptions() Options {
	return Options{
		SlotDurationMinutes: 60,
		DayStartHour:        6,
		DayEndHour:          22,
		MinShiftHours:       4,
		MaxRegularHours:     9,
		MaxManagerHours:     12,
		MinRestHours:        12,
		TimeBudget:          120 * time.Second,
		MaxVariables:        100000,
		Weights:             DefaultWeights(),
	}
}

// Validate 检查参数合法性
func (o Options) Validate() error {
	if o.SlotDurationMinutes <= 0 || 60%o.SlotDurationMinutes != 0 {
		return errors.InvalidInput("slot_duration_minutes", "必须整除60")
	}
	if o.DayStartHour < 0 || o.DayEndHour > 24 || o.DayStartHour >= o.DayEndHour {
		return errors.InvalidInput("day_start_hour/day_end_hour", "工作日窗口无效")
	}
	if o.MinShiftHours < 1 {
		return errors.InvalidInput("min_shift_hours", "必须至少为1小时")
	}
	if o.MaxRegularHours < o.MinShiftHours || o.MaxManagerHours < o.MinShiftHours {
		return errors.InvalidInput("max_regular_hours/max_manager_hours", "不能小于最短班次时长")
	}
	return nil
}

// SlotsPerHour 返回每小时槽位数
func (o Options) SlotsPerHour() int {
	return 60 / o.SlotDurationMinutes
}

// SlotsPerDay 返回每天槽位数
func (o Options) SlotsPerDay() int {
	return (o.DayEndHour - o.DayStartHour) * o.SlotsPerHour()
}

// SlotTime 槽位序号转时刻（槽位0 = 工作日起点）
func (o Options) SlotTime(slot int) model.TimeOfDay {
	return model.TimeOfDay(o.DayStartHour*60 + slot*o.SlotDurationMinutes)
}

// TimeSlot 时刻转槽位序号（向下取整）
func (o Options) TimeSlot(t model.TimeOfDay) int {
	return (t.Minutes() - o.DayStartHour*60) / o.SlotDurationMinutes
}

// ShiftLengthSlots 返回按角色允许的班次长度（槽位数，整小时倍数）
func (o Options) ShiftLengthSlots(isManager bool) []int {
	maxHours := o.MaxRegularHours
	if isManager {
		maxHours = o.MaxManagerHours
	}
	sph := o.SlotsPerHour()
	var lengths []int
	for slots := o.MinShiftHours * sph; slots <= maxHours*sph; slots += sph {
		lengths = append(lengths, slots)
	}
	return lengths
}

// Solver 求解器接口
type Solver interface {
	// Solve 生成排班方案；仅容量超限与上下文取消通过 error 返回（输入校验由 generator 负责）
	Solve(ctx context.Context, schedCtx *model.ScheduleContext) (*model.ScheduleResult, error)

	// Name 返回求解器名称
	Name() string
}

// New 按策略创建求解器
func New(strategy Strategy, opts Options) (Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch strategy {
	case StrategyGreedy:
		return NewGreedySolver(opts), nil
	case StrategyExact:
		return NewExactSolver(opts), nil
	default:
		return nil, errors.InvalidInput("strategy", fmt.Sprintf("未知的求解策略 %q", strategy))
	}
}

// finalizeResult 汇总求解结果
// newShifts 为本次求解新产出的班次；未满足集合由校验器在新旧班次并集上重算
func finalizeResult(schedCtx *model.ScheduleContext, newShifts []*model.Shift, warnings []string) *model.ScheduleResult {
	all := make([]*model.Shift, 0, len(newShifts)+len(schedCtx.ExistingShifts))
	all = append(all, schedCtx.ExistingShifts...)
	all = append(all, newShifts...)

	validation := validator.New().Validate(schedCtx, all)

	result := model.NewScheduleResult()
	result.Shifts = newShifts
	result.UnmetCoverage = validation.UnmetCoverage()
	result.UnmetRoleRequirements = validation.UnmetRoles()
	result.UnmetContractedHours = validation.HourShortfalls
	result.Success = validation.Valid
	result.Warnings = append(result.Warnings, warnings...)

	if n := len(result.UnmetCoverage); n > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d 个覆盖需求未完全满足", n))
	}
	if n := len(result.UnmetRoleRequirements); n > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d 个角色需求未完全满足", n))
	}
	if n := len(result.UnmetContractedHours); n > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d 名员工未达到合同工时", n))
	}

	return result
}

// splitNewShifts 从工作集中剔除既有班次，得到新产出的班次
func splitNewShifts(all []*model.Shift, existing []*model.Shift) []*model.Shift {
	existingKeys := make(map[string]bool, len(existing))
	for _, s := range existing {
		existingKeys[s.Key()] = true
	}

	newShifts := make([]*model.Shift, 0, len(all))
	for _, s := range all {
		if !existingKeys[s.Key()] {
			newShifts = append(newShifts, s)
		}
	}
	return newShifts
}
