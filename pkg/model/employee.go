// Package model 定义周排班核心的数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityType 可用性类型
type AvailabilityType string

const (
	AvailabilityAvailable   AvailabilityType = "AVAILABLE"   // 可用
	AvailabilityUnavailable AvailabilityType = "UNAVAILABLE" // 不可用
	AvailabilityPreferred   AvailabilityType = "PREFERRED"   // 偏好
)

// Employee 员工（单次求解内不可变）
type Employee struct {
	ID                    uuid.UUID   `json:"id" db:"id"`
	StoreID               uuid.UUID   `json:"store_id" db:"store_id"`
	Name                  string      `json:"name,omitempty" db:"name"`
	IsKeyholder           bool        `json:"is_keyholder" db:"is_keyholder"`
	IsManager             bool        `json:"is_manager" db:"is_manager"`
	ContractedWeeklyHours int         `json:"contracted_weekly_hours" db:"contracted_weekly_hours"`
	DepartmentIDs         []uuid.UUID `json:"department_ids" db:"-"`
	PrimaryDepartmentID   *uuid.UUID  `json:"primary_department_id,omitempty" db:"-"`
}

// InDepartment 检查员工是否属于某部门
func (e *Employee) InDepartment(deptID uuid.UUID) bool {
	for _, d := range e.DepartmentIDs {
		if d == deptID {
			return true
		}
	}
	return false
}

// IsSchedulable 检查员工是否可被排班（至少属于一个部门）
func (e *Employee) IsSchedulable() bool {
	return len(e.DepartmentIDs) > 0
}

// DefaultDepartment 返回主部门，无主部门时返回第一个部门
func (e *Employee) DefaultDepartment() (uuid.UUID, bool) {
	if e.PrimaryDepartmentID != nil {
		return *e.PrimaryDepartmentID, true
	}
	if len(e.DepartmentIDs) > 0 {
		return e.DepartmentIDs[0], true
	}
	return uuid.Nil, false
}

// AvailabilityRule 可用性规则
// StartTime 与 EndTime 要么同时存在，要么同时为空（表示全天）
type AvailabilityRule struct {
	EmployeeID uuid.UUID        `json:"employee_id" db:"employee_id"`
	DayOfWeek  int              `json:"day_of_week" db:"day_of_week"` // 周一=0
	RuleType   AvailabilityType `json:"rule_type" db:"rule_type"`
	StartTime  *TimeOfDay       `json:"start_time,omitempty" db:"start_time"`
	EndTime    *TimeOfDay       `json:"end_time,omitempty" db:"end_time"`
}

// AllDay 检查是否为全天规则
func (r *AvailabilityRule) AllDay() bool {
	return r.StartTime == nil && r.EndTime == nil
}

// OverlapsWindow 检查规则窗口是否与时间窗重叠（全天规则视为重叠）
func (r *AvailabilityRule) OverlapsWindow(start, end TimeOfDay) bool {
	if r.AllDay() {
		return true
	}
	return TimesOverlap(start, end, *r.StartTime, *r.EndTime)
}

// CoversWindow 检查规则窗口是否完整覆盖时间窗（全天规则视为覆盖）
func (r *AvailabilityRule) CoversWindow(start, end TimeOfDay) bool {
	if r.AllDay() {
		return true
	}
	return start >= *r.StartTime && end <= *r.EndTime
}

// TimeOffRequest 已批准的休假申请（半开区间）
type TimeOffRequest struct {
	EmployeeID    uuid.UUID `json:"employee_id" db:"employee_id"`
	StartDateTime time.Time `json:"start_datetime" db:"start_datetime"`
	EndDateTime   time.Time `json:"end_datetime" db:"end_datetime"`
}

// Overlaps 检查休假是否与时间窗重叠
func (t *TimeOffRequest) Overlaps(start, end time.Time) bool {
	return RangesOverlap(start, end, t.StartDateTime, t.EndDateTime)
}
