// Package solver 提供周排班求解器
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/logger"
	"github.com/zhoupai/zhoupai/pkg/model"
	"github.com/zhoupai/zhoupai/pkg/scheduler/availability"
	"github.com/zhoupai/zhoupai/pkg/scheduler/validator"
)

// 贪心求解的班次时长候选（小时），顺序即同分时的优先级
var (
	managerShiftHours = []int{8, 4, 6, 10}
	regularShiftHours = []int{8, 4, 6}
)

// 贪心扫描步长
const greedyStep = 30 * time.Minute

// GreedySolver 贪心构造求解器
// 按覆盖播种、角色补位、合同工时填充、覆盖回扫四个阶段依次构造班次
type GreedySolver struct {
	opts   Options
	logger *logger.SchedulerLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(opts Options) *GreedySolver {
	return &GreedySolver{
		opts:   opts,
		logger: logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// greedyState 求解过程中的工作状态
// shifts 以既有班次的副本起步，输入上下文保持只读
type greedyState struct {
	schedCtx *model.ScheduleContext
	shifts   []*model.Shift
	hours    map[uuid.UUID]float64
	days     map[uuid.UUID]map[int]bool
}

func newGreedyState(schedCtx *model.ScheduleContext) *greedyState {
	st := &greedyState{
		schedCtx: schedCtx,
		shifts:   make([]*model.Shift, 0, len(schedCtx.ExistingShifts)),
		hours:    make(map[uuid.UUID]float64),
		days:     make(map[uuid.UUID]map[int]bool),
	}
	for _, shift := range schedCtx.ExistingShifts {
		st.add(shift)
	}
	return st
}

// add 添加班次并更新工时与工作日跟踪
func (st *greedyState) add(shift *model.Shift) {
	st.shifts = append(st.shifts, shift)
	st.hours[shift.EmployeeID] += shift.DurationHours()
	if st.days[shift.EmployeeID] == nil {
		st.days[shift.EmployeeID] = make(map[int]bool)
	}
	st.days[shift.EmployeeID][shift.DayOfWeek()] = true
}

// worksOn 检查员工当天是否已有班次
func (st *greedyState) worksOn(employeeID uuid.UUID, day int) bool {
	return st.days[employeeID][day]
}

// daysWorked 返回员工本周已工作天数
func (st *greedyState) daysWorked(employeeID uuid.UUID) int {
	return len(st.days[employeeID])
}

// Solve 执行贪心求解
// 可行性不足不会报错：未满足的需求在结果中列出
func (s *GreedySolver) Solve(ctx context.Context, schedCtx *model.ScheduleContext) (*model.ScheduleResult, error) {
	startTime := time.Now()
	s.logger.StartSolve(s.Name(), schedCtx.StoreID.String(),
		len(schedCtx.Employees), len(schedCtx.CoverageRequirements), len(schedCtx.RoleRequirements))

	st := newGreedyState(schedCtx)

	// 阶段1：覆盖播种（最受约束的需求优先，两遍）
	s.logger.Phase("coverage", len(st.shifts))
	sortedReqs := s.sortRequirementsByConstraint(st)
	for _, req := range sortedReqs {
		s.coverSingleRequirement(st, req)
	}
	for _, req := range sortedReqs {
		s.coverSingleRequirement(st, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 阶段2：角色补位
	s.logger.Phase("roles", len(st.shifts))
	s.satisfyRoleRequirements(st)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 阶段3：合同工时填充
	s.logger.Phase("contracted-hours", len(st.shifts))
	s.fillContractedHours(st)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 阶段4：覆盖回扫（阶段2-3腾出的员工可能补上缺口）
	s.logger.Phase("coverage-resweep", len(st.shifts))
	for _, req := range s.sortRequirementsByConstraint(st) {
		s.coverSingleRequirement(st, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	newShifts := splitNewShifts(st.shifts, schedCtx.ExistingShifts)
	result := finalizeResult(schedCtx, newShifts, nil)

	s.logger.SolveComplete(s.Name(), schedCtx.StoreID.String(), time.Since(startTime), result.Success, len(newShifts))
	return result, nil
}

// sortRequirementsByConstraint 覆盖需求按受约束程度排序
// 可用员工数 / 最低人数 的比值越低越先处理，同比值时人数需求大的在前
func (s *GreedySolver) sortRequirementsByConstraint(st *greedyState) []*model.CoverageRequirement {
	type scored struct {
		req   *model.CoverageRequirement
		ratio float64
	}

	reqs := make([]scored, 0, len(st.schedCtx.CoverageRequirements))
	for _, req := range st.schedCtx.CoverageRequirements {
		start, end := req.WindowOnWeek(st.schedCtx.WeekStart)
		ranked := availability.RankEmployeesForSlot(
			st.schedCtx.Employees, start, end, req.DepartmentID,
			st.schedCtx.AvailabilityRules, st.schedCtx.TimeOffRequests, st.shifts)

		minStaff := req.MinStaff
		if minStaff < 1 {
			minStaff = 1
		}
		reqs = append(reqs, scored{req: req, ratio: float64(len(ranked)) / float64(minStaff)})
	}

	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].ratio != reqs[j].ratio {
			return reqs[i].ratio < reqs[j].ratio
		}
		return reqs[i].req.MinStaff > reqs[j].req.MinStaff
	})

	out := make([]*model.CoverageRequirement, len(reqs))
	for i, r := range reqs {
		out[i] = r.req
	}
	return out
}

// coverSingleRequirement 沿需求窗口扫描，在每个缺口处补班次
func (s *GreedySolver) coverSingleRequirement(st *greedyState, req *model.CoverageRequirement) {
	windowStart, windowEnd := req.WindowOnWeek(st.schedCtx.WeekStart)

	for at := windowStart; at.Before(windowEnd); at = at.Add(greedyStep) {
		met, count := validator.CheckCoverageAt(st.shifts, req, at)
		if met {
			continue
		}
		needed := req.MinStaff - count
		for i := 0; i < needed; i++ {
			shift := s.findBestShiftForTime(st, at, req.DepartmentID, windowStart, windowEnd, false)
			if shift == nil {
				break
			}
			st.add(shift)
		}
	}
}

// candidate 带评分的候选班次
type candidate struct {
	score     float64
	shift     *model.Shift
	lengthPos int
}

// pickBest 选出最优候选：分数降序，同分时长优先级靠前者胜，再同则开始时间早者胜
func pickBest(candidates []candidate) *model.Shift {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].lengthPos != candidates[j].lengthPos {
			return candidates[i].lengthPos < candidates[j].lengthPos
		}
		return candidates[i].shift.StartDateTime.Before(candidates[j].shift.StartDateTime)
	})
	return candidates[0].shift
}

// shiftHours 按角色返回时长候选
func shiftHours(isManager bool) []int {
	if isManager {
		return managerShiftHours
	}
	return regularShiftHours
}

// findBestShiftForTime 为目标时刻寻找最优班次
// 候选须覆盖目标时刻、落在工作日窗口内，并通过可用性判定
func (s *GreedySolver) findBestShiftForTime(
	st *greedyState,
	target time.Time,
	departmentID uuid.UUID,
	windowStart, windowEnd time.Time,
	roleBonus bool,
) *model.Shift {
	day := model.DayOfWeek(target)
	date := model.DateOnly(target)

	var candidates []candidate

	for _, emp := range st.schedCtx.Employees {
		if !emp.InDepartment(departmentID) {
			continue
		}
		if st.worksOn(emp.ID, day) {
			continue
		}
		if !s.hasSufficientRest(st, emp.ID, date) {
			continue
		}

		candidates = append(candidates,
			s.sweepCandidates(st, emp, departmentID, date, target, windowStart, windowEnd, roleBonus)...)
	}

	return pickBest(candidates)
}

// sweepCandidates 为某员工枚举覆盖目标时刻的 (时长, 开始时间) 候选
// 每个时长只保留与需求窗口重叠最多的开始时间（重叠相同取最早）
func (s *GreedySolver) sweepCandidates(
	st *greedyState,
	emp *model.Employee,
	departmentID uuid.UUID,
	date time.Time,
	target time.Time,
	windowStart, windowEnd time.Time,
	roleBonus bool,
) []candidate {
	dayStart := model.NewTimeOfDay(s.opts.DayStartHour, 0).AtDate(date)
	dayEnd := model.NewTimeOfDay(s.opts.DayEndHour, 0).AtDate(date)

	var out []candidate
	for pos, hours := range shiftHours(emp.IsManager) {
		length := time.Duration(hours) * time.Hour

		earliest := target.Add(-length).Add(greedyStep)
		if earliest.Before(dayStart) {
			earliest = dayStart
		}
		latest := dayEnd.Add(-length)
		if target.Before(latest) {
			latest = target
		}

		var bestStart time.Time
		bestOverlap := time.Duration(0)

		for start := earliest; !start.After(latest); start = start.Add(greedyStep) {
			end := start.Add(length)

			ok, _ := availability.CanWork(emp, start, end, departmentID,
				st.schedCtx.AvailabilityRules, st.schedCtx.TimeOffRequests, st.shifts)
			if !ok {
				continue
			}

			if overlap := windowOverlap(start, end, windowStart, windowEnd); overlap > bestOverlap {
				bestOverlap = overlap
				bestStart = start
			}
		}

		if bestOverlap <= 0 {
			continue
		}

		shift := &model.Shift{
			EmployeeID:    emp.ID,
			StoreID:       st.schedCtx.StoreID,
			DepartmentID:  departmentID,
			StartDateTime: bestStart,
			EndDateTime:   bestStart.Add(length),
		}

		score := s.scoreShift(st, shift, emp, departmentID)
		if roleBonus {
			score += 20
		}
		out = append(out, candidate{score: score, shift: shift, lengthPos: pos})
	}
	return out
}

// windowOverlap 返回班次与需求窗口的重叠时长
func windowOverlap(start, end, windowStart, windowEnd time.Time) time.Duration {
	overlapStart := start
	if windowStart.After(overlapStart) {
		overlapStart = windowStart
	}
	overlapEnd := end
	if windowEnd.Before(overlapEnd) {
		overlapEnd = windowEnd
	}
	return overlapEnd.Sub(overlapStart)
}

// scoreShift 候选班次评分，分数越高越好
func (s *GreedySolver) scoreShift(st *greedyState, shift *model.Shift, emp *model.Employee, departmentID uuid.UUID) float64 {
	score := 0.0

	// 部门人数需求越高，优先级越高
	deptMinStaff := 1
	for _, req := range st.schedCtx.CoverageRequirements {
		if req.DepartmentID == departmentID && req.MinStaff > deptMinStaff {
			deptMinStaff = req.MinStaff
		}
	}
	score += float64(deptMinStaff) * 5

	// 主部门匹配
	if emp.PrimaryDepartmentID != nil && *emp.PrimaryDepartmentID == departmentID {
		score += 25
	} else {
		score -= 15
	}

	// 可用性分类
	slotStart := model.NewTimeOfDay(shift.StartDateTime.Hour(), shift.StartDateTime.Minute())
	slotEnd := model.NewTimeOfDay(shift.EndDateTime.Hour(), shift.EndDateTime.Minute())
	avail, hasRule := availability.ClassifySlot(emp.ID, shift.DayOfWeek(), slotStart, slotEnd, st.schedCtx.AvailabilityRules)
	if hasRule {
		switch avail {
		case model.AvailabilityPreferred:
			score += 15
		case model.AvailabilityAvailable:
			score += 5
		}
	}

	// 班次时长偏好
	switch int(shift.DurationHours()) {
	case 8:
		score += 10
	case 4:
		score += 7
	case 6:
		score += 5
	case 10:
		score += 3
	}

	// 合同工时缺口优先填补，已达标则按超时惩罚
	length := shift.DurationHours()
	needed := float64(emp.ContractedWeeklyHours) - st.hours[emp.ID]
	if needed > 0 {
		fills := length
		if needed < fills {
			fills = needed
		}
		score += fills * 2
	} else {
		score -= length * 3
	}

	// 已工作天数过多的惩罚
	switch daysWorked := st.daysWorked(emp.ID); {
	case daysWorked >= 5:
		score -= 20
	case daysWorked == 4:
		score -= 5
	}

	return score
}

// hasSufficientRest 检查员工在目标日期工作时前后两天能否保证最小休息
func (s *GreedySolver) hasSufficientRest(st *greedyState, employeeID uuid.UUID, targetDate time.Time) bool {
	minRest := time.Duration(s.opts.MinRestHours) * time.Hour
	dayStart := model.NewTimeOfDay(s.opts.DayStartHour, 0).AtDate(targetDate)
	dayEnd := model.NewTimeOfDay(s.opts.DayEndHour, 0).AtDate(targetDate)

	prevDate := targetDate.AddDate(0, 0, -1)
	nextDate := targetDate.AddDate(0, 0, 1)

	for _, shift := range st.shifts {
		if shift.EmployeeID != employeeID {
			continue
		}
		shiftDate := model.DateOnly(shift.StartDateTime)

		// 前一天的班次结束到今天最早可能的开工之间
		if shiftDate.Equal(prevDate) && dayStart.Sub(shift.EndDateTime) < minRest {
			return false
		}

		// 今天最晚可能的收工到后一天的班次开始之间
		if shiftDate.Equal(nextDate) && shift.StartDateTime.Sub(dayEnd) < minRest {
			return false
		}
	}
	return true
}

// satisfyRoleRequirements 沿每个角色需求窗口扫描，在缺口处补具备能力的班次
func (s *GreedySolver) satisfyRoleRequirements(st *greedyState) {
	empMap := make(map[uuid.UUID]*model.Employee, len(st.schedCtx.Employees))
	for _, e := range st.schedCtx.Employees {
		empMap[e.ID] = e
	}

	for _, req := range st.schedCtx.RoleRequirements {
		for _, day := range req.Days() {
			windowStart, windowEnd := req.WindowOnDay(st.schedCtx.WeekStart, day)

			for at := windowStart; at.Before(windowEnd); at = at.Add(greedyStep) {
				if validator.CheckRoleAt(st.shifts, empMap, req, at) {
					continue
				}
				if shift := s.findRoleShift(st, req, at, day); shift != nil {
					st.add(shift)
				}
			}
		}
	}
}

// findRoleShift 为角色需求寻找班次
// 候选限定为具备所需能力的员工；部门取需求指定的部门，未指定时用员工主部门或第一个部门
func (s *GreedySolver) findRoleShift(st *greedyState, req *model.RoleRequirement, target time.Time, day int) *model.Shift {
	date := model.DateOnly(target)

	var candidates []candidate

	for _, emp := range st.schedCtx.Employees {
		if req.RequiresKeyholder && !emp.IsKeyholder {
			continue
		}
		if req.RequiresManager && !emp.IsManager {
			continue
		}
		if st.worksOn(emp.ID, day) {
			continue
		}
		if !s.hasSufficientRest(st, emp.ID, date) {
			continue
		}

		deptID, ok := emp.DefaultDepartment()
		if req.DepartmentID != nil {
			if !emp.InDepartment(*req.DepartmentID) {
				continue
			}
			deptID, ok = *req.DepartmentID, true
		}
		if !ok {
			continue
		}

		windowStart, windowEnd := req.WindowOnDay(st.schedCtx.WeekStart, day)
		candidates = append(candidates,
			s.sweepCandidates(st, emp, deptID, date, target, windowStart, windowEnd, true)...)
	}

	return pickBest(candidates)
}

// fillContractedHours 为未达合同工时的员工补班次，多轮直至无人欠时或无法再补
func (s *GreedySolver) fillContractedHours(st *greedyState) {
	for pass := 0; pass < 3; pass++ {
		type needing struct {
			emp    *model.Employee
			needed float64
		}

		var underHours []needing
		for _, emp := range st.schedCtx.Employees {
			if need := float64(emp.ContractedWeeklyHours) - st.hours[emp.ID]; need > 0 {
				underHours = append(underHours, needing{emp: emp, needed: need})
			}
		}
		if len(underHours) == 0 {
			return
		}

		sort.SliceStable(underHours, func(i, j int) bool {
			return underHours[i].needed > underHours[j].needed
		})

		for _, n := range underHours {
			s.fillEmployeeHours(st, n.emp, n.needed)
		}
	}
}

// fillEmployeeHours 在员工未工作的日期尝试补班，长班次优先
func (s *GreedySolver) fillEmployeeHours(st *greedyState, emp *model.Employee, needed float64) {
	lengths := make([]int, len(shiftHours(emp.IsManager)))
	copy(lengths, shiftHours(emp.IsManager))
	sort.Sort(sort.Reverse(sort.IntSlice(lengths)))

	for day := 0; day < 7 && needed > 0; day++ {
		if st.worksOn(emp.ID, day) {
			continue
		}

		date := st.schedCtx.DateOfDay(day)
		if !s.hasSufficientRest(st, emp.ID, date) {
			continue
		}

		for _, hours := range lengths {
			if shift := s.findOpenShift(st, emp, date, hours); shift != nil {
				st.add(shift)
				needed -= shift.DurationHours()
				break
			}
		}
	}
}

// findOpenShift 在指定日期为员工寻找空档班次（主部门优先，整点开工）
func (s *GreedySolver) findOpenShift(st *greedyState, emp *model.Employee, date time.Time, hours int) *model.Shift {
	length := time.Duration(hours) * time.Hour

	var departments []uuid.UUID
	if emp.PrimaryDepartmentID != nil {
		departments = append(departments, *emp.PrimaryDepartmentID)
	}
	for _, d := range emp.DepartmentIDs {
		already := false
		for _, seen := range departments {
			if seen == d {
				already = true
				break
			}
		}
		if !already {
			departments = append(departments, d)
		}
	}

	for _, deptID := range departments {
		for hour := s.opts.DayStartHour; hour+hours <= s.opts.DayEndHour; hour++ {
			start := model.NewTimeOfDay(hour, 0).AtDate(date)
			end := start.Add(length)

			ok, _ := availability.CanWork(emp, start, end, deptID,
				st.schedCtx.AvailabilityRules, st.schedCtx.TimeOffRequests, st.shifts)
			if !ok {
				continue
			}

			return &model.Shift{
				EmployeeID:    emp.ID,
				StoreID:       st.schedCtx.StoreID,
				DepartmentID:  deptID,
				StartDateTime: start,
				EndDateTime:   end,
			}
		}
	}
	return nil
}
