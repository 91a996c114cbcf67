// Package solver 提供周排班求解器
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nextmv-io/sdk/mip"
	"github.com/zhoupai/zhoupai/pkg/errors"
	"github.com/zhoupai/zhoupai/pkg/logger"
	"github.com/zhoupai/zhoupai/pkg/model"
	"github.com/zhoupai/zhoupai/pkg/scheduler/availability"
)

// ExactSolver 精确优化求解器
// 把一周离散为固定时长的槽位，为每个可行的
// (员工, 日期, 起始槽位, 时长, 部门) 五元组建一个0/1决策变量，
// 硬约束进线性不等式，其余全部进加权目标函数，交给 MIP 后端求最优
type ExactSolver struct {
	opts   Options
	logger *logger.SchedulerLogger
}

// NewExactSolver 创建精确求解器
func NewExactSolver(opts Options) *ExactSolver {
	return &ExactSolver{
		opts:   opts,
		logger: logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *ExactSolver) Name() string {
	return "ExactSolver"
}

// varKey 决策变量标识
type varKey struct {
	employeeID uuid.UUID
	day        int
	startSlot  int
	lengthSlot int
	deptID     uuid.UUID
}

// exactModel 模型构建过程中的工作数据
type exactModel struct {
	schedCtx *model.ScheduleContext
	opts     Options

	availMatrix map[uuid.UUID][][]bool // [day][slot] 可排
	prefMatrix  map[uuid.UUID][][]bool // [day][slot] 偏好

	existingHours map[uuid.UUID]float64
	existingDays  map[uuid.UUID]map[int]bool

	keys []varKey
	vars map[varKey]mip.Bool

	m           mip.Model
	constraints int
}

// Solve 执行精确求解
// 容量超限通过 error 返回；后端失败降级为 success=false 并带警告
func (s *ExactSolver) Solve(ctx context.Context, schedCtx *model.ScheduleContext) (*model.ScheduleResult, error) {
	startTime := time.Now()
	s.logger.StartSolve(s.Name(), schedCtx.StoreID.String(),
		len(schedCtx.Employees), len(schedCtx.CoverageRequirements), len(schedCtx.RoleRequirements))

	var warnings []string
	warnings = append(warnings, s.checkSlotAlignment(schedCtx)...)

	em := &exactModel{
		schedCtx:      schedCtx,
		opts:          s.opts,
		availMatrix:   make(map[uuid.UUID][][]bool),
		prefMatrix:    make(map[uuid.UUID][][]bool),
		existingHours: make(map[uuid.UUID]float64),
		existingDays:  make(map[uuid.UUID]map[int]bool),
		vars:          make(map[varKey]mip.Bool),
	}

	for _, emp := range schedCtx.Employees {
		avail, pref := s.buildAvailabilityMatrix(emp, schedCtx)
		em.availMatrix[emp.ID] = avail
		em.prefMatrix[emp.ID] = pref
		em.existingDays[emp.ID] = make(map[int]bool)
	}
	for _, shift := range schedCtx.ExistingShifts {
		em.existingHours[shift.EmployeeID] += shift.DurationHours()
		if em.existingDays[shift.EmployeeID] == nil {
			em.existingDays[shift.EmployeeID] = make(map[int]bool)
		}
		em.existingDays[shift.EmployeeID][shift.DayOfWeek()] = true
	}

	// 先枚举可行变量，超出容量上限立即拒绝，不把模型交给后端
	em.enumerateKeys()
	if len(em.keys) > s.opts.MaxVariables {
		return nil, errors.CapacityExceeded(len(em.keys), s.opts.MaxVariables)
	}

	em.m = mip.NewModel()
	em.m.Objective().SetMaximize()
	for _, key := range em.keys {
		em.vars[key] = em.m.NewBool()
	}

	s.addHardConstraints(em)
	s.addCoverageTerms(em)
	s.addRoleTerms(em)
	s.addHourTerms(em)
	s.addShiftBonusTerms(em)

	s.logger.ModelBuilt(len(em.keys), em.constraints)

	budget := s.opts.TimeBudget
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < budget {
			budget = remaining
		}
	}

	backend, err := mip.NewSolver(mip.Highs, em.m)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("优化后端初始化失败: %v", err))
		return finalizeResult(schedCtx, nil, warnings), nil
	}

	solution, err := backend.Solve(mip.SolveOptions{Duration: budget})
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("优化后端求解失败: %v", err))
		return finalizeResult(schedCtx, nil, warnings), nil
	}

	if !solution.IsOptimal() && !solution.IsSubOptimal() {
		warnings = append(warnings, "优化后端未找到可行解")
		result := finalizeResult(schedCtx, nil, warnings)
		s.logger.SolveComplete(s.Name(), schedCtx.StoreID.String(), time.Since(startTime), result.Success, 0)
		return result, nil
	}
	if solution.IsSubOptimal() {
		warnings = append(warnings, "达到时间预算，解可能非最优")
	}

	newShifts := s.extractShifts(em, solution)
	result := finalizeResult(schedCtx, newShifts, warnings)

	s.logger.SolveComplete(s.Name(), schedCtx.StoreID.String(), time.Since(startTime), result.Success, len(newShifts))
	return result, nil
}

// checkSlotAlignment 检查需求窗口是否对齐槽位粒度
// 未对齐的窗口会被向下取整到槽位边界，据此发出警告
func (s *ExactSolver) checkSlotAlignment(schedCtx *model.ScheduleContext) []string {
	var warnings []string
	aligned := func(t model.TimeOfDay) bool {
		return t.Minutes()%s.opts.SlotDurationMinutes == 0
	}
	for _, req := range schedCtx.CoverageRequirements {
		if !aligned(req.StartTime) || !aligned(req.EndTime) {
			warnings = append(warnings, fmt.Sprintf(
				"覆盖需求 %s 的窗口 %s-%s 未对齐 %d 分钟槽位", req.ID, req.StartTime, req.EndTime, s.opts.SlotDurationMinutes))
		}
	}
	for _, req := range schedCtx.RoleRequirements {
		if !aligned(req.StartTime) || !aligned(req.EndTime) {
			warnings = append(warnings, fmt.Sprintf(
				"角色需求 %s 的窗口 %s-%s 未对齐 %d 分钟槽位", req.ID, req.StartTime, req.EndTime, s.opts.SlotDurationMinutes))
		}
	}
	return warnings
}

// buildAvailabilityMatrix 构建员工的逐槽可排/偏好矩阵（7 × 每日槽位数）
// 可排 = 可用性非不可用，且无休假、无既有班次冲突
func (s *ExactSolver) buildAvailabilityMatrix(emp *model.Employee, schedCtx *model.ScheduleContext) ([][]bool, [][]bool) {
	slotsPerDay := s.opts.SlotsPerDay()
	avail := make([][]bool, 7)
	pref := make([][]bool, 7)

	for day := 0; day < 7; day++ {
		avail[day] = make([]bool, slotsPerDay)
		pref[day] = make([]bool, slotsPerDay)
		date := schedCtx.DateOfDay(day)

		for slot := 0; slot < slotsPerDay; slot++ {
			slotStart := s.opts.SlotTime(slot)
			slotEnd := s.opts.SlotTime(slot + 1)

			classified, hasRule := availability.ClassifySlot(emp.ID, day, slotStart, slotEnd, schedCtx.AvailabilityRules)
			if hasRule && classified == model.AvailabilityUnavailable {
				continue
			}

			startDt := slotStart.AtDate(date)
			endDt := slotEnd.AtDate(date)

			if availability.IsOnTimeOff(emp.ID, startDt, endDt, schedCtx.TimeOffRequests) {
				continue
			}

			conflict := false
			for _, existing := range schedCtx.ExistingShifts {
				if existing.EmployeeID != emp.ID {
					continue
				}
				if existing.Overlaps(startDt, endDt) {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}

			avail[day][slot] = true
			if hasRule && classified == model.AvailabilityPreferred {
				pref[day][slot] = true
			}
		}
	}
	return avail, pref
}

// enumerateKeys 枚举全部可行的决策变量标识
// 有既有班次的日期整天跳过；班次区间内每个槽位都必须可排
func (em *exactModel) enumerateKeys() {
	slotsPerDay := em.opts.SlotsPerDay()

	for _, emp := range em.schedCtx.Employees {
		lengths := em.opts.ShiftLengthSlots(emp.IsManager)
		avail := em.availMatrix[emp.ID]

		for day := 0; day < 7; day++ {
			if em.existingDays[emp.ID][day] {
				continue
			}

			for startSlot := 0; startSlot < slotsPerDay; startSlot++ {
				for _, length := range lengths {
					endSlot := startSlot + length
					if endSlot > slotsPerDay {
						continue
					}

					allAvailable := true
					for slot := startSlot; slot < endSlot; slot++ {
						if !avail[day][slot] {
							allAvailable = false
							break
						}
					}
					if !allAvailable {
						continue
					}

					for _, deptID := range emp.DepartmentIDs {
						em.keys = append(em.keys, varKey{
							employeeID: emp.ID,
							day:        day,
							startSlot:  startSlot,
							lengthSlot: length,
							deptID:     deptID,
						})
					}
				}
			}
		}
	}
}

// covers 检查变量对应的班次是否覆盖某槽位
func (k varKey) covers(slot int) bool {
	return k.startSlot <= slot && slot < k.startSlot+k.lengthSlot
}

// endMinutes 返回变量对应班次的收工时刻（自零点起分钟数）
func (em *exactModel) endMinutes(k varKey) int {
	return em.opts.DayStartHour*60 + (k.startSlot+k.lengthSlot)*em.opts.SlotDurationMinutes
}

// startMinutes 返回变量对应班次的开工时刻（自零点起分钟数）
func (em *exactModel) startMinutes(k varKey) int {
	return em.opts.DayStartHour*60 + k.startSlot*em.opts.SlotDurationMinutes
}

// addHardConstraints 添加硬约束：每人每天至多一个新班次、跨日最小休息
func (s *ExactSolver) addHardConstraints(em *exactModel) {
	minRestMinutes := s.opts.MinRestHours * 60

	// 按员工×日期分桶
	byEmpDay := make(map[uuid.UUID]map[int][]varKey)
	for _, key := range em.keys {
		if byEmpDay[key.employeeID] == nil {
			byEmpDay[key.employeeID] = make(map[int][]varKey)
		}
		byEmpDay[key.employeeID][key.day] = append(byEmpDay[key.employeeID][key.day], key)
	}

	for _, emp := range em.schedCtx.Employees {
		days := byEmpDay[emp.ID]

		// 每人每天至多一个新班次
		for day := 0; day < 7; day++ {
			dayKeys := days[day]
			if len(dayKeys) == 0 {
				continue
			}
			c := em.m.NewConstraint(mip.LessThanOrEqual, 1)
			for _, key := range dayKeys {
				c.NewTerm(1, em.vars[key])
			}
			em.constraints++
		}

		// 跨日休息：相邻两天的新班次对
		for day := 0; day < 6; day++ {
			for _, k1 := range days[day] {
				end1 := em.endMinutes(k1)
				for _, k2 := range days[day+1] {
					rest := (24*60 - end1) + em.startMinutes(k2)
					if rest < minRestMinutes {
						c := em.m.NewConstraint(mip.LessThanOrEqual, 1)
						c.NewTerm(1, em.vars[k1])
						c.NewTerm(1, em.vars[k2])
						em.constraints++
					}
				}
			}
		}

		// 与既有班次的单边排斥：休息不足的候选强制为0
		for _, existing := range em.schedCtx.ExistingShifts {
			if existing.EmployeeID != emp.ID {
				continue
			}
			existingDay := existing.DayOfWeek()
			existingEnd := existing.EndDateTime.Hour()*60 + existing.EndDateTime.Minute()
			existingStart := existing.StartDateTime.Hour()*60 + existing.StartDateTime.Minute()

			if existingDay < 6 {
				for _, k2 := range days[existingDay+1] {
					rest := (24*60 - existingEnd) + em.startMinutes(k2)
					if rest < minRestMinutes {
						c := em.m.NewConstraint(mip.LessThanOrEqual, 0)
						c.NewTerm(1, em.vars[k2])
						em.constraints++
					}
				}
			}
			if existingDay > 0 {
				for _, k1 := range days[existingDay-1] {
					rest := (24*60 - em.endMinutes(k1)) + existingStart
					if rest < minRestMinutes {
						c := em.m.NewConstraint(mip.LessThanOrEqual, 0)
						c.NewTerm(1, em.vars[k1])
						em.constraints++
					}
				}
			}
		}
	}
}

// addCoverageTerms 覆盖需求的软约束
// 每个 (需求, 采样槽位)：覆盖变量之和 + 松弛 ≥ 缺口，松弛线性受罚；
// 完全无人可排的槽位记入固定惩罚，保持不可行实例之间的量级可比
func (s *ExactSolver) addCoverageTerms(em *exactModel) {
	weight := float64(s.opts.Weights.UnmetCoverageSlot)

	for _, req := range em.schedCtx.CoverageRequirements {
		startSlot := s.opts.TimeSlot(req.StartTime)
		endSlot := s.opts.TimeSlot(req.EndTime)
		date := em.schedCtx.DateOfDay(req.DayOfWeek)

		for slot := startSlot; slot < endSlot; slot++ {
			slotDt := s.opts.SlotTime(slot).AtDate(date)

			existingCoverage := 0
			for _, shift := range em.schedCtx.ExistingShifts {
				if shift.DepartmentID == req.DepartmentID && shift.Covers(slotDt) {
					existingCoverage++
				}
			}

			needed := req.MinStaff - existingCoverage
			if needed <= 0 {
				continue
			}

			var covering []varKey
			for _, key := range em.keys {
				if key.day == req.DayOfWeek && key.deptID == req.DepartmentID && key.covers(slot) {
					covering = append(covering, key)
				}
			}

			if len(covering) == 0 {
				fixed := em.m.NewFloat(float64(needed), float64(needed))
				em.m.Objective().NewTerm(weight, fixed)
				continue
			}

			slack := em.m.NewFloat(0, float64(needed))
			c := em.m.NewConstraint(mip.GreaterThanOrEqual, float64(needed))
			for _, key := range covering {
				c.NewTerm(1, em.vars[key])
			}
			c.NewTerm(1, slack)
			em.constraints++
			em.m.Objective().NewTerm(weight, slack)
		}
	}
}

// addRoleTerms 角色需求的软约束（开钥匙人缺位或每名缺位店长各计一次惩罚）
func (s *ExactSolver) addRoleTerms(em *exactModel) {
	weight := float64(s.opts.Weights.UnmetRoleSlot)

	empMap := make(map[uuid.UUID]*model.Employee, len(em.schedCtx.Employees))
	for _, e := range em.schedCtx.Employees {
		empMap[e.ID] = e
	}

	for _, req := range em.schedCtx.RoleRequirements {
		startSlot := s.opts.TimeSlot(req.StartTime)
		endSlot := s.opts.TimeSlot(req.EndTime)

		for _, day := range req.Days() {
			date := em.schedCtx.DateOfDay(day)

			for slot := startSlot; slot < endSlot; slot++ {
				slotDt := s.opts.SlotTime(slot).AtDate(date)

				existingKeyholders := 0
				existingManagers := 0
				for _, shift := range em.schedCtx.ExistingShifts {
					if !shift.Covers(slotDt) {
						continue
					}
					emp := empMap[shift.EmployeeID]
					if emp == nil {
						continue
					}
					if emp.IsKeyholder {
						existingKeyholders++
					}
					if emp.IsManager {
						existingManagers++
					}
				}

				if req.RequiresKeyholder && existingKeyholders == 0 {
					var covering []varKey
					for _, key := range em.keys {
						if key.day != day || !key.covers(slot) {
							continue
						}
						if emp := empMap[key.employeeID]; emp != nil && emp.IsKeyholder {
							covering = append(covering, key)
						}
					}
					s.addRoleSlack(em, covering, 1, weight)
				}

				if req.RequiresManager {
					neededManagers := req.MinManagerCount - existingManagers
					if neededManagers > 0 {
						var covering []varKey
						for _, key := range em.keys {
							if key.day != day || !key.covers(slot) {
								continue
							}
							if emp := empMap[key.employeeID]; emp != nil && emp.IsManager {
								covering = append(covering, key)
							}
						}
						s.addRoleSlack(em, covering, neededManagers, weight)
					}
				}
			}
		}
	}
}

// addRoleSlack 为单个角色采样点添加松弛项
func (s *ExactSolver) addRoleSlack(em *exactModel, covering []varKey, needed int, weight float64) {
	if len(covering) == 0 {
		fixed := em.m.NewFloat(float64(needed), float64(needed))
		em.m.Objective().NewTerm(weight, fixed)
		return
	}

	slack := em.m.NewFloat(0, float64(needed))
	c := em.m.NewConstraint(mip.GreaterThanOrEqual, float64(needed))
	for _, key := range covering {
		c.NewTerm(1, em.vars[key])
	}
	c.NewTerm(1, slack)
	em.constraints++
	em.m.Objective().NewTerm(weight, slack)
}

// addHourTerms 合同工时缺口与超时的软约束
// 工时按槽位建模，惩罚系数为小时权重除以每小时槽位数
func (s *ExactSolver) addHourTerms(em *exactModel) {
	sph := s.opts.SlotsPerHour()
	shortfallWeight := float64(s.opts.Weights.UnmetContractedHour) / float64(sph)
	overtimeWeight := float64(s.opts.Weights.OvertimeHour) / float64(sph)
	maxSlots := float64(7 * s.opts.SlotsPerDay())

	byEmp := make(map[uuid.UUID][]varKey)
	for _, key := range em.keys {
		byEmp[key.employeeID] = append(byEmp[key.employeeID], key)
	}

	for _, emp := range em.schedCtx.Employees {
		empKeys := byEmp[emp.ID]
		if len(empKeys) == 0 {
			continue
		}

		contractedSlots := emp.ContractedWeeklyHours * sph
		existingSlots := int(em.existingHours[emp.ID] * float64(sph))

		// 缺口 = max(0, 需求槽位 − 新班次槽位)
		neededSlots := contractedSlots - existingSlots
		if neededSlots > 0 {
			shortfall := em.m.NewFloat(0, float64(neededSlots))
			c := em.m.NewConstraint(mip.GreaterThanOrEqual, float64(neededSlots))
			for _, key := range empKeys {
				c.NewTerm(float64(key.lengthSlot), em.vars[key])
			}
			c.NewTerm(1, shortfall)
			em.constraints++
			em.m.Objective().NewTerm(shortfallWeight, shortfall)
		}

		// 超时 = max(0, 新班次槽位 + 既有槽位 − 合同槽位)
		overtime := em.m.NewFloat(0, maxSlots)
		c := em.m.NewConstraint(mip.LessThanOrEqual, float64(contractedSlots-existingSlots))
		for _, key := range empKeys {
			c.NewTerm(float64(key.lengthSlot), em.vars[key])
		}
		c.NewTerm(-1, overtime)
		em.constraints++
		em.m.Objective().NewTerm(overtimeWeight, overtime)
	}
}

// addShiftBonusTerms 逐变量的奖励项：主部门、全程偏好时段、班次时长
func (s *ExactSolver) addShiftBonusTerms(em *exactModel) {
	w := s.opts.Weights
	sph := s.opts.SlotsPerHour()

	empMap := make(map[uuid.UUID]*model.Employee, len(em.schedCtx.Employees))
	for _, e := range em.schedCtx.Employees {
		empMap[e.ID] = e
	}

	for _, key := range em.keys {
		emp := empMap[key.employeeID]
		v := em.vars[key]

		// 部门偏好
		if emp.PrimaryDepartmentID != nil && *emp.PrimaryDepartmentID == key.deptID {
			em.m.Objective().NewTerm(float64(w.PrimaryDepartment), v)
		} else {
			em.m.Objective().NewTerm(float64(w.NonPrimaryDepartment), v)
		}

		// 全程落在偏好时段
		pref := em.prefMatrix[key.employeeID]
		allPreferred := true
		for slot := key.startSlot; slot < key.startSlot+key.lengthSlot; slot++ {
			if !pref[key.day][slot] {
				allPreferred = false
				break
			}
		}
		if allPreferred {
			em.m.Objective().NewTerm(float64(w.PreferredWindow), v)
		}

		// 班次时长偏好
		var bonus int
		switch key.lengthSlot / sph {
		case 8:
			bonus = w.Shift8h
		case 6:
			bonus = w.Shift6h
		case 4:
			bonus = w.Shift4h
		default:
			bonus = w.ShiftOther
		}
		em.m.Objective().NewTerm(float64(bonus), v)
	}
}

// extractShifts 把取值为1的变量还原为班次
func (s *ExactSolver) extractShifts(em *exactModel, solution mip.Solution) []*model.Shift {
	var shifts []*model.Shift

	for _, key := range em.keys {
		if solution.Value(em.vars[key]) < 0.9 {
			continue
		}

		date := em.schedCtx.DateOfDay(key.day)
		start := s.opts.SlotTime(key.startSlot).AtDate(date)
		end := s.opts.SlotTime(key.startSlot + key.lengthSlot).AtDate(date)

		shifts = append(shifts, &model.Shift{
			EmployeeID:    key.employeeID,
			StoreID:       em.schedCtx.StoreID,
			DepartmentID:  key.deptID,
			StartDateTime: start,
			EndDateTime:   end,
		})
	}
	return shifts
}
