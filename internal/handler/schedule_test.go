package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/zhoupai/zhoupai/pkg/scheduler/generator"
	"github.com/zhoupai/zhoupai/pkg/scheduler/solver"
)

func newTestHandler() *ScheduleHandler {
	return NewScheduleHandler(generator.NewDefault(), nil, solver.StrategyGreedy)
}

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("请求序列化失败: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleGenerate_InlineContext(t *testing.T) {
	deptID := uuid.New().String()
	empID := uuid.New().String()

	req := GenerateRequest{
		StoreID:   uuid.New().String(),
		WeekStart: "2026-03-02", // 周一
		Context: &ContextInput{
			Employees: []EmployeeInput{{
				ID:            empID,
				DepartmentIDs: []string{deptID},
			}},
			CoverageRequirements: []CoverageInput{{
				DepartmentID: deptID,
				DayOfWeek:    0,
				StartTime:    "10:00",
				EndTime:      "14:00",
				MinStaff:     1,
			}},
		},
	}

	rec := postJSON(t, newTestHandler().HandleGenerate, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if !resp.Success {
		t.Errorf("单人单需求应成功: %v", resp.Warnings)
	}
	if len(resp.Shifts) == 0 {
		t.Error("应产出班次")
	}
	if resp.Statistics == nil {
		t.Error("响应应包含统计")
	}
	if resp.Strategy != "greedy" {
		t.Errorf("默认策略 = %q, expected greedy", resp.Strategy)
	}
}

func TestHandleGenerate_NotMonday(t *testing.T) {
	req := GenerateRequest{
		StoreID:   uuid.New().String(),
		WeekStart: "2026-03-03", // 周二
		Context:   &ContextInput{},
	}

	rec := postJSON(t, newTestHandler().HandleGenerate, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("非周一应返回400, 实际 %d", rec.Code)
	}
}

func TestHandleGenerate_InvalidStoreID(t *testing.T) {
	req := GenerateRequest{
		StoreID:   "not-a-uuid",
		WeekStart: "2026-03-02",
		Context:   &ContextInput{},
	}

	rec := postJSON(t, newTestHandler().HandleGenerate, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("非法UUID应返回400, 实际 %d", rec.Code)
	}
}

func TestHandleGenerate_NoLoaderNoContext(t *testing.T) {
	req := GenerateRequest{
		StoreID:   uuid.New().String(),
		WeekStart: "2026-03-02",
	}

	rec := postJSON(t, newTestHandler().HandleGenerate, req)
	if rec.Code == http.StatusOK {
		t.Error("无数据源且无内联上下文应报错")
	}
}

func TestHandleGenerate_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	newTestHandler().HandleGenerate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET请求应被拒绝, 实际 %d", rec.Code)
	}
}

func TestHandleValidate(t *testing.T) {
	deptID := uuid.New().String()
	empID := uuid.New().String()

	req := ValidateRequest{
		StoreID:   uuid.New().String(),
		WeekStart: "2026-03-02",
		Context: &ContextInput{
			Employees: []EmployeeInput{{
				ID:            empID,
				DepartmentIDs: []string{deptID},
			}},
			CoverageRequirements: []CoverageInput{{
				DepartmentID: deptID,
				DayOfWeek:    0,
				StartTime:    "10:00",
				EndTime:      "14:00",
				MinStaff:     1,
			}},
		},
		Shifts: []ShiftInput{{
			EmployeeID:    empID,
			DepartmentID:  deptID,
			StartDateTime: "2026-03-02T10:00:00",
			EndDateTime:   "2026-03-02T14:00:00",
		}},
	}

	rec := postJSON(t, newTestHandler().HandleValidate, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if !resp.Valid {
		t.Errorf("完整覆盖的班次集合应通过校验: %s", rec.Body.String())
	}
}
