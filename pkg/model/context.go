// Package model 定义周排班核心的数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleContext 单店单周求解的只读输入快照
type ScheduleContext struct {
	StoreID              uuid.UUID              `json:"store_id"`
	WeekStart            time.Time              `json:"week_start"` // 必须为周一
	Employees            []*Employee            `json:"employees"`
	AvailabilityRules    []*AvailabilityRule    `json:"availability_rules"`
	TimeOffRequests      []*TimeOffRequest      `json:"time_off_requests"`
	CoverageRequirements []*CoverageRequirement `json:"coverage_requirements"`
	RoleRequirements     []*RoleRequirement     `json:"role_requirements"`
	ExistingShifts       []*Shift               `json:"existing_shifts"`

	// 索引缓存
	employeeMap     map[uuid.UUID]*Employee
	rulesByEmployee map[uuid.UUID][]*AvailabilityRule
}

// NewScheduleContext 创建排班上下文
func NewScheduleContext(storeID uuid.UUID, weekStart time.Time) *ScheduleContext {
	return &ScheduleContext{
		StoreID:         storeID,
		WeekStart:       DateOnly(weekStart),
		employeeMap:     make(map[uuid.UUID]*Employee),
		rulesByEmployee: make(map[uuid.UUID][]*AvailabilityRule),
	}
}

// SetEmployees 设置员工列表并重建索引
func (c *ScheduleContext) SetEmployees(employees []*Employee) {
	c.Employees = employees
	c.employeeMap = make(map[uuid.UUID]*Employee, len(employees))
	for _, e := range employees {
		c.employeeMap[e.ID] = e
	}
}

// SetAvailabilityRules 设置可用性规则并重建索引
func (c *ScheduleContext) SetAvailabilityRules(rules []*AvailabilityRule) {
	c.AvailabilityRules = rules
	c.rulesByEmployee = make(map[uuid.UUID][]*AvailabilityRule)
	for _, r := range rules {
		c.rulesByEmployee[r.EmployeeID] = append(c.rulesByEmployee[r.EmployeeID], r)
	}
}

// GetEmployee 按ID获取员工
func (c *ScheduleContext) GetEmployee(id uuid.UUID) *Employee {
	if c.employeeMap == nil {
		c.SetEmployees(c.Employees)
	}
	return c.employeeMap[id]
}

// RulesForEmployee 获取员工的全部可用性规则
func (c *ScheduleContext) RulesForEmployee(id uuid.UUID) []*AvailabilityRule {
	if c.rulesByEmployee == nil {
		c.SetAvailabilityRules(c.AvailabilityRules)
	}
	return c.rulesByEmployee[id]
}

// DateOfDay 返回本周第 day 天的日期（day: 周一=0）
func (c *ScheduleContext) DateOfDay(day int) time.Time {
	return c.WeekStart.AddDate(0, 0, day)
}

// WeekEnd 返回本周周日的日期
func (c *ScheduleContext) WeekEnd() time.Time {
	return c.WeekStart.AddDate(0, 0, 6)
}

// ScheduleResult 求解结果
// Shifts 仅包含新产出的班次，不含 ExistingShifts
// Success 当且仅当三个未满足集合全部为空
type ScheduleResult struct {
	Success               bool                   `json:"success"`
	Shifts                []*Shift               `json:"shifts"`
	UnmetCoverage         []*CoverageRequirement `json:"unmet_coverage"`
	UnmetRoleRequirements []*RoleRequirement     `json:"unmet_role_requirements"`
	UnmetContractedHours  map[uuid.UUID]float64  `json:"unmet_contracted_hours"`
	Warnings              []string               `json:"warnings"`
}

// NewScheduleResult 创建空的求解结果
func NewScheduleResult() *ScheduleResult {
	return &ScheduleResult{
		Shifts:                make([]*Shift, 0),
		UnmetCoverage:         make([]*CoverageRequirement, 0),
		UnmetRoleRequirements: make([]*RoleRequirement, 0),
		UnmetContractedHours:  make(map[uuid.UUID]float64),
		Warnings:              make([]string, 0),
	}
}
