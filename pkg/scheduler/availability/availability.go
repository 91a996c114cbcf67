// Package availability 判定员工能否承担候选班次窗口
//
// 两个求解器共享这里的判定逻辑：
// 分类遵循固定的优先级顺序（不可用 > 可用 > 偏好 > 显式可用之外 > 无规则），
// 无任何规则的员工默认视为可用。
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/model"
)

// ClassifySlot 对员工在某天某时间窗的可用性分类
// 返回值 ok=false 表示该员工当天没有任何规则（默认可用）
//
// 优先级：
//  1. 任一不可用规则与窗口重叠（全天或时间窗）→ UNAVAILABLE
//  2. 任一可用规则完整覆盖窗口，且有时间窗偏好规则重叠 → PREFERRED，否则 AVAILABLE
//  3. 任一偏好规则与窗口重叠（全天或时间窗）→ PREFERRED
//  4. 当天存在可用规则但均不覆盖此窗口 → UNAVAILABLE（显式列出可用时段意味着其余时段禁排）
//  5. 无匹配规则 → ok=false
func ClassifySlot(employeeID uuid.UUID, dayOfWeek int, slotStart, slotEnd model.TimeOfDay, rules []*model.AvailabilityRule) (model.AvailabilityType, bool) {
	var empRules []*model.AvailabilityRule
	for _, r := range rules {
		if r.EmployeeID == employeeID && r.DayOfWeek == dayOfWeek {
			empRules = append(empRules, r)
		}
	}

	if len(empRules) == 0 {
		return "", false
	}

	// 不可用规则优先级最高
	for _, r := range empRules {
		if r.RuleType == model.AvailabilityUnavailable && r.OverlapsWindow(slotStart, slotEnd) {
			return model.AvailabilityUnavailable, true
		}
	}

	// 可用规则：需要完整覆盖窗口
	for _, r := range empRules {
		if r.RuleType != model.AvailabilityAvailable {
			continue
		}
		if r.CoversWindow(slotStart, slotEnd) {
			if preferredWindowOverlaps(empRules, slotStart, slotEnd) {
				return model.AvailabilityPreferred, true
			}
			return model.AvailabilityAvailable, true
		}
	}

	// 仅有偏好规则（偏好隐含可用）
	for _, r := range empRules {
		if r.RuleType == model.AvailabilityPreferred && r.OverlapsWindow(slotStart, slotEnd) {
			return model.AvailabilityPreferred, true
		}
	}

	// 有可用规则但都不覆盖此窗口：未列出的时段视为禁排
	for _, r := range empRules {
		if r.RuleType == model.AvailabilityAvailable {
			return model.AvailabilityUnavailable, true
		}
	}

	return "", false
}

// preferredWindowOverlaps 检查是否存在时间窗偏好规则与窗口重叠
func preferredWindowOverlaps(rules []*model.AvailabilityRule, slotStart, slotEnd model.TimeOfDay) bool {
	for _, r := range rules {
		if r.RuleType != model.AvailabilityPreferred || r.AllDay() {
			continue
		}
		if model.TimesOverlap(slotStart, slotEnd, *r.StartTime, *r.EndTime) {
			return true
		}
	}
	return false
}

// IsOnTimeOff 检查员工在时间窗内是否有已批准的休假
func IsOnTimeOff(employeeID uuid.UUID, start, end time.Time, timeOffs []*model.TimeOffRequest) bool {
	for _, req := range timeOffs {
		if req.EmployeeID != employeeID {
			continue
		}
		if req.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// CanWork 检查员工能否承担候选班次
// 按顺序检查：部门归属、休假、可用性规则、与既有班次的冲突
func CanWork(
	employee *model.Employee,
	start, end time.Time,
	departmentID uuid.UUID,
	rules []*model.AvailabilityRule,
	timeOffs []*model.TimeOffRequest,
	otherShifts []*model.Shift,
) (bool, string) {
	if !employee.InDepartment(departmentID) {
		return false, fmt.Sprintf("员工不属于部门 %s", departmentID)
	}

	if IsOnTimeOff(employee.ID, start, end, timeOffs) {
		return false, "员工有已批准的休假"
	}

	dayOfWeek := model.DayOfWeek(start)
	slotStart := model.NewTimeOfDay(start.Hour(), start.Minute())
	slotEnd := model.NewTimeOfDay(end.Hour(), end.Minute())

	if avail, ok := ClassifySlot(employee.ID, dayOfWeek, slotStart, slotEnd, rules); ok && avail == model.AvailabilityUnavailable {
		return false, "员工在该时段不可用"
	}

	for _, existing := range otherShifts {
		if existing.EmployeeID != employee.ID {
			continue
		}
		if existing.Overlaps(start, end) {
			return false, "与既有班次时间冲突"
		}
	}

	return true, "OK"
}

// Ranked 带可用性分类的候选员工
type Ranked struct {
	Employee     *model.Employee
	Availability model.AvailabilityType
	HasRule      bool
}

// RankEmployeesForSlot 返回能承担某时间窗的全部员工
// 排序：PREFERRED 优先，AVAILABLE 次之，默认可用（无规则）最后
func RankEmployeesForSlot(
	employees []*model.Employee,
	start, end time.Time,
	departmentID uuid.UUID,
	rules []*model.AvailabilityRule,
	timeOffs []*model.TimeOffRequest,
	shifts []*model.Shift,
) []Ranked {
	var ranked []Ranked

	dayOfWeek := model.DayOfWeek(start)
	slotStart := model.NewTimeOfDay(start.Hour(), start.Minute())
	slotEnd := model.NewTimeOfDay(end.Hour(), end.Minute())

	for _, emp := range employees {
		ok, _ := CanWork(emp, start, end, departmentID, rules, timeOffs, shifts)
		if !ok {
			continue
		}
		avail, hasRule := ClassifySlot(emp.ID, dayOfWeek, slotStart, slotEnd, rules)
		ranked = append(ranked, Ranked{Employee: emp, Availability: avail, HasRule: hasRule})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankOrder(ranked[i]) < rankOrder(ranked[j])
	})

	return ranked
}

// rankOrder 返回候选排序键
func rankOrder(r Ranked) int {
	if !r.HasRule {
		return 2
	}
	switch r.Availability {
	case model.AvailabilityPreferred:
		return 0
	case model.AvailabilityAvailable:
		return 1
	default:
		return 2
	}
}
