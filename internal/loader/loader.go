// Package loader 从持久层物化排班上下文
//
// 过滤规则：在职员工、生效的可用性规则、与目标周相交的已批准休假、
// 生效的覆盖与角色需求、目标周内未取消的班次。
// 带时区的存储时间在此转换为本地墙上时钟后才进入求解器。
package loader

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/internal/database"
	"github.com/zhoupai/zhoupai/pkg/errors"
	"github.com/zhoupai/zhoupai/pkg/model"
)

// Loader 排班上下文装载器
type Loader struct {
	db *database.DB
}

// New 创建装载器
func New(db *database.DB) *Loader {
	return &Loader{db: db}
}

// LoadScheduleContext 为单店单周装载完整的排班上下文
func (l *Loader) LoadScheduleContext(ctx context.Context, storeID uuid.UUID, weekStart time.Time) (*model.ScheduleContext, error) {
	schedCtx := model.NewScheduleContext(storeID, weekStart)
	weekEnd := schedCtx.WeekStart.AddDate(0, 0, 7)

	employees, err := l.loadEmployees(ctx, storeID)
	if err != nil {
		return nil, err
	}
	schedCtx.SetEmployees(employees)

	rules, err := l.loadAvailabilityRules(ctx, storeID)
	if err != nil {
		return nil, err
	}
	schedCtx.SetAvailabilityRules(rules)

	if schedCtx.TimeOffRequests, err = l.loadTimeOffRequests(ctx, storeID, schedCtx.WeekStart, weekEnd); err != nil {
		return nil, err
	}
	if schedCtx.CoverageRequirements, err = l.loadCoverageRequirements(ctx, storeID); err != nil {
		return nil, err
	}
	if schedCtx.RoleRequirements, err = l.loadRoleRequirements(ctx, storeID); err != nil {
		return nil, err
	}
	if schedCtx.ExistingShifts, err = l.loadShifts(ctx, storeID, schedCtx.WeekStart, weekEnd); err != nil {
		return nil, err
	}

	return schedCtx, nil
}

// loadEmployees 装载在职员工及其部门归属
func (l *Loader) loadEmployees(ctx context.Context, storeID uuid.UUID) ([]*model.Employee, error) {
	const query = `
		SELECT id, store_id, name, is_keyholder, is_manager, contracted_weekly_hours
		FROM employees
		WHERE store_id = $1 AND employment_status = 'ACTIVE'
		ORDER BY id`

	rows, err := l.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询员工失败")
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp := &model.Employee{}
		if err := rows.Scan(&emp.ID, &emp.StoreID, &emp.Name,
			&emp.IsKeyholder, &emp.IsManager, &emp.ContractedWeeklyHours); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取员工记录失败")
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "遍历员工记录失败")
	}

	for _, emp := range employees {
		if err := l.loadEmployeeDepartments(ctx, emp); err != nil {
			return nil, err
		}
	}
	return employees, nil
}

// loadEmployeeDepartments 装载员工部门归属，主部门缺失时取第一个部门
func (l *Loader) loadEmployeeDepartments(ctx context.Context, emp *model.Employee) error {
	const query = `
		SELECT department_id, is_primary
		FROM employee_departments
		WHERE employee_id = $1
		ORDER BY department_id`

	rows, err := l.db.QueryContext(ctx, query, emp.ID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "查询员工部门失败")
	}
	defer rows.Close()

	for rows.Next() {
		var deptID uuid.UUID
		var isPrimary bool
		if err := rows.Scan(&deptID, &isPrimary); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "读取员工部门失败")
		}
		emp.DepartmentIDs = append(emp.DepartmentIDs, deptID)
		if isPrimary && emp.PrimaryDepartmentID == nil {
			id := deptID
			emp.PrimaryDepartmentID = &id
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "遍历员工部门失败")
	}

	if emp.PrimaryDepartmentID == nil && len(emp.DepartmentIDs) > 0 {
		id := emp.DepartmentIDs[0]
		emp.PrimaryDepartmentID = &id
	}
	return nil
}

// loadAvailabilityRules 装载生效的可用性规则
func (l *Loader) loadAvailabilityRules(ctx context.Context, storeID uuid.UUID) ([]*model.AvailabilityRule, error) {
	const query = `
		SELECT r.employee_id, r.day_of_week, r.rule_type, r.start_time, r.end_time
		FROM availability_rules r
		JOIN employees e ON e.id = r.employee_id
		WHERE e.store_id = $1 AND r.is_active = TRUE`

	rows, err := l.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询可用性规则失败")
	}
	defer rows.Close()

	var rules []*model.AvailabilityRule
	for rows.Next() {
		rule := &model.AvailabilityRule{}
		var ruleType string
		var start, end sql.NullString
		if err := rows.Scan(&rule.EmployeeID, &rule.DayOfWeek, &ruleType, &start, &end); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取可用性规则失败")
		}
		rule.RuleType = model.AvailabilityType(ruleType)
		if rule.StartTime, err = parseTimeColumn(start); err != nil {
			return nil, err
		}
		if rule.EndTime, err = parseTimeColumn(end); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// loadTimeOffRequests 装载与目标周相交的已批准休假
func (l *Loader) loadTimeOffRequests(ctx context.Context, storeID uuid.UUID, weekStart, weekEnd time.Time) ([]*model.TimeOffRequest, error) {
	const query = `
		SELECT t.employee_id, t.start_datetime, t.end_datetime
		FROM time_off_requests t
		JOIN employees e ON e.id = t.employee_id
		WHERE e.store_id = $1 AND t.status = 'APPROVED'
		  AND t.start_datetime < $3 AND t.end_datetime > $2`

	rows, err := l.db.QueryContext(ctx, query, storeID, weekStart, weekEnd)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询休假申请失败")
	}
	defer rows.Close()

	var requests []*model.TimeOffRequest
	for rows.Next() {
		req := &model.TimeOffRequest{}
		if err := rows.Scan(&req.EmployeeID, &req.StartDateTime, &req.EndDateTime); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取休假申请失败")
		}
		req.StartDateTime = toNaiveLocal(req.StartDateTime)
		req.EndDateTime = toNaiveLocal(req.EndDateTime)
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// loadCoverageRequirements 装载生效的覆盖需求
func (l *Loader) loadCoverageRequirements(ctx context.Context, storeID uuid.UUID) ([]*model.CoverageRequirement, error) {
	const query = `
		SELECT id, store_id, department_id, day_of_week, start_time, end_time, min_staff, max_staff
		FROM coverage_requirements
		WHERE store_id = $1 AND is_active = TRUE
		ORDER BY day_of_week, start_time`

	rows, err := l.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询覆盖需求失败")
	}
	defer rows.Close()

	var reqs []*model.CoverageRequirement
	for rows.Next() {
		req := &model.CoverageRequirement{}
		var start, end string
		var maxStaff sql.NullInt64
		if err := rows.Scan(&req.ID, &req.StoreID, &req.DepartmentID, &req.DayOfWeek,
			&start, &end, &req.MinStaff, &maxStaff); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取覆盖需求失败")
		}
		if req.StartTime, err = parseTimeValue(start); err != nil {
			return nil, err
		}
		if req.EndTime, err = parseTimeValue(end); err != nil {
			return nil, err
		}
		if maxStaff.Valid {
			v := int(maxStaff.Int64)
			req.MaxStaff = &v
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// loadRoleRequirements 装载生效的角色需求
func (l *Loader) loadRoleRequirements(ctx context.Context, storeID uuid.UUID) ([]*model.RoleRequirement, error) {
	const query = `
		SELECT id, store_id, department_id, day_of_week, start_time, end_time,
		       requires_keyholder, requires_manager, min_manager_count
		FROM role_requirements
		WHERE store_id = $1 AND is_active = TRUE
		ORDER BY day_of_week, start_time`

	rows, err := l.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询角色需求失败")
	}
	defer rows.Close()

	var reqs []*model.RoleRequirement
	for rows.Next() {
		req := &model.RoleRequirement{}
		var deptID uuid.NullUUID
		var day sql.NullInt64
		var start, end string
		if err := rows.Scan(&req.ID, &req.StoreID, &deptID, &day, &start, &end,
			&req.RequiresKeyholder, &req.RequiresManager, &req.MinManagerCount); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取角色需求失败")
		}
		if deptID.Valid {
			id := deptID.UUID
			req.DepartmentID = &id
		}
		if day.Valid {
			d := int(day.Int64)
			req.DayOfWeek = &d
		}
		if req.StartTime, err = parseTimeValue(start); err != nil {
			return nil, err
		}
		if req.EndTime, err = parseTimeValue(end); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// loadShifts 装载目标周内未取消的班次
func (l *Loader) loadShifts(ctx context.Context, storeID uuid.UUID, weekStart, weekEnd time.Time) ([]*model.Shift, error) {
	const query = `
		SELECT employee_id, store_id, department_id, start_datetime, end_datetime
		FROM shifts
		WHERE store_id = $1 AND status <> 'CANCELLED'
		  AND start_datetime >= $2 AND start_datetime < $3
		ORDER BY start_datetime`

	rows, err := l.db.QueryContext(ctx, query, storeID, weekStart, weekEnd)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询班次失败")
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift := &model.Shift{}
		if err := rows.Scan(&shift.EmployeeID, &shift.StoreID, &shift.DepartmentID,
			&shift.StartDateTime, &shift.EndDateTime); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取班次失败")
		}
		shift.StartDateTime = toNaiveLocal(shift.StartDateTime)
		shift.EndDateTime = toNaiveLocal(shift.EndDateTime)
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// toNaiveLocal 把带时区的存储时间转为本地墙上时钟
// 求解器内部的所有时间比较都基于这里产出的本地时间
func toNaiveLocal(t time.Time) time.Time {
	local := t.In(time.Local)
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), 0, time.Local)
}

// parseTimeColumn 解析可空的 TIME 列
func parseTimeColumn(v sql.NullString) (*model.TimeOfDay, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := parseTimeValue(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseTimeValue 解析 TIME 列的 HH:MM[:SS] 值
func parseTimeValue(s string) (model.TimeOfDay, error) {
	if len(s) > 5 {
		s = s[:5]
	}
	t, err := model.ParseTimeOfDay(s)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "解析时间列失败")
	}
	return t, nil
}
