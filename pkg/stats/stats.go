// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/model"
)

// ScheduleStats 排班统计
type ScheduleStats struct {
	TotalShifts         int     `json:"total_shifts"`           // 新产出班次数
	TotalHours          float64 `json:"total_hours"`            // 新产出总工时
	EmployeesScheduled  int     `json:"employees_scheduled"`    // 被排班员工数
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"` // 被排班员工的人均工时
	CoverageFillRate    float64 `json:"coverage_fill_rate"`     // 覆盖需求满足率 (%)
	RoleFillRate        float64 `json:"role_fill_rate"`         // 角色需求满足率 (%)
	ContractedFillCount int     `json:"contracted_fill_count"`  // 达到合同工时的员工数
	HoursStdDev         float64 `json:"hours_std_dev"`          // 工时标准差（公平性）
	HoursRange          float64 `json:"hours_range"`            // 工时极差

	EmployeeHours map[uuid.UUID]float64 `json:"employee_hours"` // 各员工总工时（含既有班次）
}

// Compute 根据求解结果计算统计指标
func Compute(schedCtx *model.ScheduleContext, result *model.ScheduleResult) *ScheduleStats {
	s := &ScheduleStats{
		TotalShifts:   len(result.Shifts),
		EmployeeHours: make(map[uuid.UUID]float64),
	}

	for _, shift := range result.Shifts {
		s.TotalHours += shift.DurationHours()
	}

	// 含既有班次的总工时分布
	all := make([]*model.Shift, 0, len(result.Shifts)+len(schedCtx.ExistingShifts))
	all = append(all, schedCtx.ExistingShifts...)
	all = append(all, result.Shifts...)
	for _, shift := range all {
		s.EmployeeHours[shift.EmployeeID] += shift.DurationHours()
	}

	s.EmployeesScheduled = len(s.EmployeeHours)
	if s.EmployeesScheduled > 0 {
		var total float64
		for _, h := range s.EmployeeHours {
			total += h
		}
		s.AvgHoursPerEmployee = total / float64(s.EmployeesScheduled)
	}

	if n := len(schedCtx.CoverageRequirements); n > 0 {
		met := n - len(result.UnmetCoverage)
		s.CoverageFillRate = float64(met) / float64(n) * 100
	} else {
		s.CoverageFillRate = 100
	}

	if n := len(schedCtx.RoleRequirements); n > 0 {
		met := n - len(result.UnmetRoleRequirements)
		s.RoleFillRate = float64(met) / float64(n) * 100
	} else {
		s.RoleFillRate = 100
	}

	for _, emp := range schedCtx.Employees {
		if _, short := result.UnmetContractedHours[emp.ID]; !short {
			s.ContractedFillCount++
		}
	}

	s.HoursStdDev, s.HoursRange = hoursSpread(s.EmployeeHours)

	return s
}

// hoursSpread 计算工时分布的标准差与极差
func hoursSpread(employeeHours map[uuid.UUID]float64) (stdDev, hoursRange float64) {
	if len(employeeHours) == 0 {
		return 0, 0
	}

	hours := make([]float64, 0, len(employeeHours))
	for _, h := range employeeHours {
		hours = append(hours, h)
	}
	sort.Float64s(hours)

	var sum float64
	for _, h := range hours {
		sum += h
	}
	mean := sum / float64(len(hours))

	var variance float64
	for _, h := range hours {
		variance += (h - mean) * (h - mean)
	}
	variance /= float64(len(hours))

	return math.Sqrt(variance), hours[len(hours)-1] - hours[0]
}
