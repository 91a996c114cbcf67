// Package validator 对完整班次集合做事后校验
//
// 覆盖需求与角色需求按 30 分钟步长采样，每个采样点都满足才算达标。
// 两个求解器的未满足集合统一由这里产出，保证报告口径一致。
package validator

import (
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/model"
)

// DefaultSampleInterval 默认采样步长
const DefaultSampleInterval = 30 * time.Minute

// CoverageGap 覆盖需求缺口
type CoverageGap struct {
	Requirement *model.CoverageRequirement `json:"requirement"`
	Gaps        []time.Time                `json:"gaps"`
}

// RoleGap 角色需求缺口
type RoleGap struct {
	Requirement *model.RoleRequirement `json:"requirement"`
	Gaps        []time.Time            `json:"gaps"`
}

// Validation 校验结果
type Validation struct {
	Valid          bool                  `json:"valid"`
	CoverageGaps   []CoverageGap         `json:"coverage_gaps"`
	RoleGaps       []RoleGap             `json:"role_gaps"`
	HourShortfalls map[uuid.UUID]float64 `json:"hour_shortfalls"`
}

// UnmetCoverage 返回未满足的覆盖需求列表
func (v *Validation) UnmetCoverage() []*model.CoverageRequirement {
	reqs := make([]*model.CoverageRequirement, 0, len(v.CoverageGaps))
	for _, g := range v.CoverageGaps {
		reqs = append(reqs, g.Requirement)
	}
	return reqs
}

// UnmetRoles 返回未满足的角色需求列表
func (v *Validation) UnmetRoles() []*model.RoleRequirement {
	reqs := make([]*model.RoleRequirement, 0, len(v.RoleGaps))
	for _, g := range v.RoleGaps {
		reqs = append(reqs, g.Requirement)
	}
	return reqs
}

// Validator 排班校验器
type Validator struct {
	interval time.Duration
}

// New 创建校验器（30分钟采样）
func New() *Validator {
	return &Validator{interval: DefaultSampleInterval}
}

// NewWithInterval 创建指定采样步长的校验器
func NewWithInterval(interval time.Duration) *Validator {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Validator{interval: interval}
}

// ShiftsCoveringTime 返回某时刻在岗的班次（半开区间），可按部门过滤
func ShiftsCoveringTime(shifts []*model.Shift, at time.Time, departmentID *uuid.UUID) []*model.Shift {
	var covering []*model.Shift
	for _, s := range shifts {
		if !s.Covers(at) {
			continue
		}
		if departmentID != nil && s.DepartmentID != *departmentID {
			continue
		}
		covering = append(covering, s)
	}
	return covering
}

// CheckCoverageAt 检查某时刻覆盖需求是否满足，返回（是否满足, 当前人数）
func CheckCoverageAt(shifts []*model.Shift, req *model.CoverageRequirement, at time.Time) (bool, int) {
	covering := ShiftsCoveringTime(shifts, at, &req.DepartmentID)
	return len(covering) >= req.MinStaff, len(covering)
}

// CheckRoleAt 检查某时刻角色需求是否满足
// 开钥匙人需求 ⇔ 至少一名在岗员工持有钥匙；店长需求 ⇔ 在岗店长数 ≥ MinManagerCount
func CheckRoleAt(shifts []*model.Shift, employees map[uuid.UUID]*model.Employee, req *model.RoleRequirement, at time.Time) bool {
	active := ShiftsCoveringTime(shifts, at, req.DepartmentID)

	hasKeyholder := false
	managerCount := 0
	for _, s := range active {
		emp := employees[s.EmployeeID]
		if emp == nil {
			continue
		}
		if emp.IsKeyholder {
			hasKeyholder = true
		}
		if emp.IsManager {
			managerCount++
		}
	}

	if req.RequiresKeyholder && !hasKeyholder {
		return false
	}
	if req.RequiresManager && managerCount < req.MinManagerCount {
		return false
	}
	return true
}

// checkCoverageWindow 在需求窗口内采样，返回缺口时刻
func (v *Validator) checkCoverageWindow(shifts []*model.Shift, req *model.CoverageRequirement, weekStart time.Time) []time.Time {
	start, end := req.WindowOnWeek(weekStart)

	var gaps []time.Time
	for at := start; at.Before(end); at = at.Add(v.interval) {
		if met, _ := CheckCoverageAt(shifts, req, at); !met {
			gaps = append(gaps, at)
		}
	}
	return gaps
}

// checkRoleWindow 在需求适用的每一天内采样，返回缺口时刻
// DayOfWeek 为空的需求在七天全部检查
func (v *Validator) checkRoleWindow(shifts []*model.Shift, employees map[uuid.UUID]*model.Employee, req *model.RoleRequirement, weekStart time.Time) []time.Time {
	var gaps []time.Time
	for _, day := range req.Days() {
		start, end := req.WindowOnDay(weekStart, day)
		for at := start; at.Before(end); at = at.Add(v.interval) {
			if !CheckRoleAt(shifts, employees, req, at) {
				gaps = append(gaps, at)
			}
		}
	}
	return gaps
}

// EmployeeHours 统计某员工的总排班时长（小时）
func EmployeeHours(shifts []*model.Shift, employeeID uuid.UUID) float64 {
	var total float64
	for _, s := range shifts {
		if s.EmployeeID == employeeID {
			total += s.DurationHours()
		}
	}
	return total
}

// checkContractedHours 统计每位员工的合同工时缺口
func checkContractedHours(shifts []*model.Shift, employees []*model.Employee) map[uuid.UUID]float64 {
	shortfalls := make(map[uuid.UUID]float64)
	for _, emp := range employees {
		assigned := EmployeeHours(shifts, emp.ID)
		shortfall := float64(emp.ContractedWeeklyHours) - assigned
		if shortfall > 0 {
			shortfalls[emp.ID] = shortfall
		}
	}
	return shortfalls
}

// Validate 校验完整班次集合（调用方传入新班次与既有班次的并集）
func (v *Validator) Validate(schedCtx *model.ScheduleContext, shifts []*model.Shift) *Validation {
	result := &Validation{
		CoverageGaps:   make([]CoverageGap, 0),
		RoleGaps:       make([]RoleGap, 0),
		HourShortfalls: make(map[uuid.UUID]float64),
	}

	empMap := make(map[uuid.UUID]*model.Employee, len(schedCtx.Employees))
	for _, e := range schedCtx.Employees {
		empMap[e.ID] = e
	}

	for _, req := range schedCtx.CoverageRequirements {
		if gaps := v.checkCoverageWindow(shifts, req, schedCtx.WeekStart); len(gaps) > 0 {
			result.CoverageGaps = append(result.CoverageGaps, CoverageGap{Requirement: req, Gaps: gaps})
		}
	}

	for _, req := range schedCtx.RoleRequirements {
		if gaps := v.checkRoleWindow(shifts, empMap, req, schedCtx.WeekStart); len(gaps) > 0 {
			result.RoleGaps = append(result.RoleGaps, RoleGap{Requirement: req, Gaps: gaps})
		}
	}

	result.HourShortfalls = checkContractedHours(shifts, schedCtx.Employees)

	result.Valid = len(result.CoverageGaps) == 0 &&
		len(result.RoleGaps) == 0 &&
		len(result.HourShortfalls) == 0

	return result
}
