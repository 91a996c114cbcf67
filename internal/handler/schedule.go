// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/internal/loader"
	"github.com/zhoupai/zhoupai/internal/metrics"
	"github.com/zhoupai/zhoupai/pkg/errors"
	"github.com/zhoupai/zhoupai/pkg/logger"
	"github.com/zhoupai/zhoupai/pkg/model"
	"github.com/zhoupai/zhoupai/pkg/scheduler/generator"
	"github.com/zhoupai/zhoupai/pkg/scheduler/solver"
	"github.com/zhoupai/zhoupai/pkg/scheduler/validator"
	"github.com/zhoupai/zhoupai/pkg/stats"
)

// 请求中的本地时间格式
const datetimeLayout = "2006-01-02T15:04:05"

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	generator       *generator.Generator
	loader          *loader.Loader
	defaultStrategy solver.Strategy
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(gen *generator.Generator, l *loader.Loader, defaultStrategy solver.Strategy) *ScheduleHandler {
	return &ScheduleHandler{
		generator:       gen,
		loader:          l,
		defaultStrategy: defaultStrategy,
	}
}

// GenerateRequest 排班生成请求
// Context 内联时直接求解，为空时通过装载器从存储读取
type GenerateRequest struct {
	StoreID   string        `json:"store_id"`
	WeekStart string        `json:"week_start"` // YYYY-MM-DD，必须为周一
	Strategy  string        `json:"strategy,omitempty"`
	Context   *ContextInput `json:"context,omitempty"`
}

// ContextInput 内联排班上下文
type ContextInput struct {
	Employees            []EmployeeInput `json:"employees"`
	AvailabilityRules    []RuleInput     `json:"availability_rules,omitempty"`
	TimeOffRequests      []TimeOffInput  `json:"time_off_requests,omitempty"`
	CoverageRequirements []CoverageInput `json:"coverage_requirements,omitempty"`
	RoleRequirements     []RoleInput     `json:"role_requirements,omitempty"`
	ExistingShifts       []ShiftInput    `json:"existing_shifts,omitempty"`
}

// EmployeeInput 员工输入
type EmployeeInput struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name,omitempty"`
	IsKeyholder           bool     `json:"is_keyholder"`
	IsManager             bool     `json:"is_manager"`
	ContractedWeeklyHours int      `json:"contracted_weekly_hours"`
	DepartmentIDs         []string `json:"department_ids"`
	PrimaryDepartmentID   string   `json:"primary_department_id,omitempty"`
}

// RuleInput 可用性规则输入
type RuleInput struct {
	EmployeeID string `json:"employee_id"`
	DayOfWeek  int    `json:"day_of_week"`
	RuleType   string `json:"rule_type"`
	StartTime  string `json:"start_time,omitempty"` // HH:MM，为空表示全天
	EndTime    string `json:"end_time,omitempty"`
}

// TimeOffInput 休假输入
type TimeOffInput struct {
	EmployeeID    string `json:"employee_id"`
	StartDateTime string `json:"start_datetime"`
	EndDateTime   string `json:"end_datetime"`
}

// CoverageInput 覆盖需求输入
type CoverageInput struct {
	ID           string `json:"id,omitempty"`
	DepartmentID string `json:"department_id"`
	DayOfWeek    int    `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	MinStaff     int    `json:"min_staff"`
	MaxStaff     *int   `json:"max_staff,omitempty"`
}

// RoleInput 角色需求输入
type RoleInput struct {
	ID                string `json:"id,omitempty"`
	DepartmentID      string `json:"department_id,omitempty"`
	DayOfWeek         *int   `json:"day_of_week,omitempty"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	RequiresKeyholder bool   `json:"requires_keyholder"`
	RequiresManager   bool   `json:"requires_manager"`
	MinManagerCount   int    `json:"min_manager_count"`
}

// ShiftInput 班次输入
type ShiftInput struct {
	EmployeeID    string `json:"employee_id"`
	DepartmentID  string `json:"department_id"`
	StartDateTime string `json:"start_datetime"`
	EndDateTime   string `json:"end_datetime"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success               bool                         `json:"success"`
	Strategy              string                       `json:"strategy"`
	Shifts                []*model.Shift               `json:"shifts"`
	UnmetCoverage         []*model.CoverageRequirement `json:"unmet_coverage"`
	UnmetRoleRequirements []*model.RoleRequirement     `json:"unmet_role_requirements"`
	UnmetContractedHours  map[uuid.UUID]float64        `json:"unmet_contracted_hours"`
	Warnings              []string                     `json:"warnings"`
	Statistics            *stats.ScheduleStats         `json:"statistics"`
	Duration              string                       `json:"duration"`
}

// HandleGenerate 处理 POST /api/v1/schedule/generate
func (h *ScheduleHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, errors.New(errors.CodeInvalidInput, "仅支持 POST"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}

	schedCtx, err := h.buildContext(r, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	strategy := h.defaultStrategy
	if req.Strategy != "" {
		strategy = solver.Strategy(req.Strategy)
	}

	start := time.Now()
	result, err := h.generator.Generate(r.Context(), schedCtx, strategy)
	duration := time.Since(start)

	metrics.RecordScheduleSolve(string(strategy), err == nil && result != nil && result.Success, duration)
	if err != nil {
		writeError(w, err)
		return
	}

	st := stats.Compute(schedCtx, result)
	metrics.SetCoverageFillRate(schedCtx.StoreID.String(), st.CoverageFillRate)

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success:               result.Success,
		Strategy:              string(strategy),
		Shifts:                result.Shifts,
		UnmetCoverage:         result.UnmetCoverage,
		UnmetRoleRequirements: result.UnmetRoleRequirements,
		UnmetContractedHours:  result.UnmetContractedHours,
		Warnings:              result.Warnings,
		Statistics:            st,
		Duration:              duration.String(),
	})
}

// ValidateRequest 排班校验请求
type ValidateRequest struct {
	StoreID   string        `json:"store_id"`
	WeekStart string        `json:"week_start"`
	Context   *ContextInput `json:"context"`
	Shifts    []ShiftInput  `json:"shifts"`
}

// HandleValidate 处理 POST /api/v1/schedule/validate
// 对提交的班次集合（并上上下文中的既有班次）运行校验器
func (h *ScheduleHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, errors.New(errors.CodeInvalidInput, "仅支持 POST"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}

	genReq := GenerateRequest{StoreID: req.StoreID, WeekStart: req.WeekStart, Context: req.Context}
	schedCtx, err := h.buildContext(r, &genReq)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := generator.ValidateContext(schedCtx); err != nil {
		writeError(w, err)
		return
	}

	shifts := make([]*model.Shift, 0, len(req.Shifts)+len(schedCtx.ExistingShifts))
	shifts = append(shifts, schedCtx.ExistingShifts...)
	for _, in := range req.Shifts {
		shift, err := parseShift(in, schedCtx.StoreID)
		if err != nil {
			writeError(w, err)
			return
		}
		shifts = append(shifts, shift)
	}

	validation := validator.New().Validate(schedCtx, shifts)
	writeJSON(w, http.StatusOK, validation)
}

// buildContext 构建排班上下文：内联优先，否则走装载器
func (h *ScheduleHandler) buildContext(r *http.Request, req *GenerateRequest) (*model.ScheduleContext, error) {
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return nil, errors.InvalidInput("store_id", "不是合法的UUID")
	}

	weekStart, err := time.ParseInLocation("2006-01-02", req.WeekStart, time.Local)
	if err != nil {
		return nil, errors.InvalidInput("week_start", "日期格式应为 YYYY-MM-DD")
	}

	if req.Context == nil {
		if h.loader == nil {
			return nil, errors.New(errors.CodeInvalidInput, "未提供内联上下文且服务未配置数据源")
		}
		return h.loader.LoadScheduleContext(r.Context(), storeID, weekStart)
	}

	return parseContext(req.Context, storeID, weekStart)
}

// parseContext 把内联输入转换为领域上下文
func parseContext(in *ContextInput, storeID uuid.UUID, weekStart time.Time) (*model.ScheduleContext, error) {
	schedCtx := model.NewScheduleContext(storeID, weekStart)

	employees := make([]*model.Employee, 0, len(in.Employees))
	for _, e := range in.Employees {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, errors.InvalidInput("employees.id", "不是合法的UUID")
		}
		emp := &model.Employee{
			ID:                    id,
			StoreID:               storeID,
			Name:                  e.Name,
			IsKeyholder:           e.IsKeyholder,
			IsManager:             e.IsManager,
			ContractedWeeklyHours: e.ContractedWeeklyHours,
		}
		for _, d := range e.DepartmentIDs {
			deptID, err := uuid.Parse(d)
			if err != nil {
				return nil, errors.InvalidInput("employees.department_ids", "不是合法的UUID")
			}
			emp.DepartmentIDs = append(emp.DepartmentIDs, deptID)
		}
		if e.PrimaryDepartmentID != "" {
			primary, err := uuid.Parse(e.PrimaryDepartmentID)
			if err != nil {
				return nil, errors.InvalidInput("employees.primary_department_id", "不是合法的UUID")
			}
			emp.PrimaryDepartmentID = &primary
		}
		employees = append(employees, emp)
	}
	schedCtx.SetEmployees(employees)

	rules := make([]*model.AvailabilityRule, 0, len(in.AvailabilityRules))
	for _, r := range in.AvailabilityRules {
		empID, err := uuid.Parse(r.EmployeeID)
		if err != nil {
			return nil, errors.InvalidInput("availability_rules.employee_id", "不是合法的UUID")
		}
		rule := &model.AvailabilityRule{
			EmployeeID: empID,
			DayOfWeek:  r.DayOfWeek,
			RuleType:   model.AvailabilityType(r.RuleType),
		}
		if rule.StartTime, err = parseOptionalTime(r.StartTime); err != nil {
			return nil, err
		}
		if rule.EndTime, err = parseOptionalTime(r.EndTime); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	schedCtx.SetAvailabilityRules(rules)

	for _, t := range in.TimeOffRequests {
		empID, err := uuid.Parse(t.EmployeeID)
		if err != nil {
			return nil, errors.InvalidInput("time_off_requests.employee_id", "不是合法的UUID")
		}
		start, err := parseDatetime(t.StartDateTime)
		if err != nil {
			return nil, err
		}
		end, err := parseDatetime(t.EndDateTime)
		if err != nil {
			return nil, err
		}
		schedCtx.TimeOffRequests = append(schedCtx.TimeOffRequests, &model.TimeOffRequest{
			EmployeeID:    empID,
			StartDateTime: start,
			EndDateTime:   end,
		})
	}

	for _, c := range in.CoverageRequirements {
		deptID, err := uuid.Parse(c.DepartmentID)
		if err != nil {
			return nil, errors.InvalidInput("coverage_requirements.department_id", "不是合法的UUID")
		}
		req := &model.CoverageRequirement{
			ID:           parseOrNewID(c.ID),
			StoreID:      storeID,
			DepartmentID: deptID,
			DayOfWeek:    c.DayOfWeek,
			MinStaff:     c.MinStaff,
			MaxStaff:     c.MaxStaff,
		}
		if req.StartTime, err = parseRequiredTime(c.StartTime, "coverage_requirements.start_time"); err != nil {
			return nil, err
		}
		if req.EndTime, err = parseRequiredTime(c.EndTime, "coverage_requirements.end_time"); err != nil {
			return nil, err
		}
		schedCtx.CoverageRequirements = append(schedCtx.CoverageRequirements, req)
	}

	for _, rr := range in.RoleRequirements {
		req := &model.RoleRequirement{
			ID:                parseOrNewID(rr.ID),
			StoreID:           storeID,
			DayOfWeek:         rr.DayOfWeek,
			RequiresKeyholder: rr.RequiresKeyholder,
			RequiresManager:   rr.RequiresManager,
			MinManagerCount:   rr.MinManagerCount,
		}
		if rr.DepartmentID != "" {
			deptID, err := uuid.Parse(rr.DepartmentID)
			if err != nil {
				return nil, errors.InvalidInput("role_requirements.department_id", "不是合法的UUID")
			}
			req.DepartmentID = &deptID
		}
		var err error
		if req.StartTime, err = parseRequiredTime(rr.StartTime, "role_requirements.start_time"); err != nil {
			return nil, err
		}
		if req.EndTime, err = parseRequiredTime(rr.EndTime, "role_requirements.end_time"); err != nil {
			return nil, err
		}
		schedCtx.RoleRequirements = append(schedCtx.RoleRequirements, req)
	}

	for _, s := range in.ExistingShifts {
		shift, err := parseShift(s, storeID)
		if err != nil {
			return nil, err
		}
		schedCtx.ExistingShifts = append(schedCtx.ExistingShifts, shift)
	}

	return schedCtx, nil
}

// parseShift 解析班次输入
func parseShift(in ShiftInput, storeID uuid.UUID) (*model.Shift, error) {
	empID, err := uuid.Parse(in.EmployeeID)
	if err != nil {
		return nil, errors.InvalidInput("shifts.employee_id", "不是合法的UUID")
	}
	deptID, err := uuid.Parse(in.DepartmentID)
	if err != nil {
		return nil, errors.InvalidInput("shifts.department_id", "不是合法的UUID")
	}
	start, err := parseDatetime(in.StartDateTime)
	if err != nil {
		return nil, err
	}
	end, err := parseDatetime(in.EndDateTime)
	if err != nil {
		return nil, err
	}
	return &model.Shift{
		EmployeeID:    empID,
		StoreID:       storeID,
		DepartmentID:  deptID,
		StartDateTime: start,
		EndDateTime:   end,
	}, nil
}

// parseDatetime 解析本地时间（无时区）
func parseDatetime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(datetimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errors.InvalidInput("datetime",
			fmt.Sprintf("%q 不符合格式 %s", s, datetimeLayout))
	}
	return t, nil
}

// parseOptionalTime 解析可空的 HH:MM
func parseOptionalTime(s string) (*model.TimeOfDay, error) {
	if s == "" {
		return nil, nil
	}
	t, err := model.ParseTimeOfDay(s)
	if err != nil {
		return nil, errors.InvalidInput("time", err.Error())
	}
	return &t, nil
}

// parseRequiredTime 解析必填的 HH:MM
func parseRequiredTime(s, field string) (model.TimeOfDay, error) {
	t, err := model.ParseTimeOfDay(s)
	if err != nil {
		return 0, errors.InvalidInput(field, err.Error())
	}
	return t, nil
}

// parseOrNewID 解析ID，为空时生成
func parseOrNewID(s string) uuid.UUID {
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	return uuid.New()
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Msg("响应编码失败")
	}
}

// writeError 输出错误响应
func writeError(w http.ResponseWriter, err error) {
	status := errors.GetHTTPStatus(err)

	body := map[string]interface{}{
		"error": err.Error(),
		"code":  string(errors.GetCode(err)),
	}
	writeJSON(w, status, body)
}
