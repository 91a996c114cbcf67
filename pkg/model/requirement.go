// Package model 定义周排班核心的数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// CoverageRequirement 覆盖需求：部门在某时间窗内每一时刻的最低在岗人数
// MaxStaff 仅作为输入携带，两个求解器均不强制执行
type CoverageRequirement struct {
	ID           uuid.UUID `json:"id" db:"id"`
	StoreID      uuid.UUID `json:"store_id" db:"store_id"`
	DepartmentID uuid.UUID `json:"department_id" db:"department_id"`
	DayOfWeek    int       `json:"day_of_week" db:"day_of_week"` // 周一=0
	StartTime    TimeOfDay `json:"start_time" db:"start_time"`
	EndTime      TimeOfDay `json:"end_time" db:"end_time"`
	MinStaff     int       `json:"min_staff" db:"min_staff"`
	MaxStaff     *int      `json:"max_staff,omitempty" db:"max_staff"`
}

// WindowOnWeek 返回需求窗口在指定周的绝对时间范围
func (r *CoverageRequirement) WindowOnWeek(weekStart time.Time) (time.Time, time.Time) {
	date := weekStart.AddDate(0, 0, r.DayOfWeek)
	return r.StartTime.AtDate(date), r.EndTime.AtDate(date)
}

// RoleRequirement 角色需求：某时间窗内必须在岗的能力要求
// DepartmentID 为空表示全店，DayOfWeek 为空表示每天
type RoleRequirement struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	StoreID           uuid.UUID  `json:"store_id" db:"store_id"`
	DepartmentID      *uuid.UUID `json:"department_id,omitempty" db:"department_id"`
	DayOfWeek         *int       `json:"day_of_week,omitempty" db:"day_of_week"`
	StartTime         TimeOfDay  `json:"start_time" db:"start_time"`
	EndTime           TimeOfDay  `json:"end_time" db:"end_time"`
	RequiresKeyholder bool       `json:"requires_keyholder" db:"requires_keyholder"`
	RequiresManager   bool       `json:"requires_manager" db:"requires_manager"`
	MinManagerCount   int        `json:"min_manager_count" db:"min_manager_count"`
}

// Days 返回需求适用的星期序号列表
func (r *RoleRequirement) Days() []int {
	if r.DayOfWeek != nil {
		return []int{*r.DayOfWeek}
	}
	return []int{0, 1, 2, 3, 4, 5, 6}
}

// WindowOnDay 返回需求窗口在指定周某天的绝对时间范围
func (r *RoleRequirement) WindowOnDay(weekStart time.Time, day int) (time.Time, time.Time) {
	date := weekStart.AddDate(0, 0, day)
	return r.StartTime.AtDate(date), r.EndTime.AtDate(date)
}
