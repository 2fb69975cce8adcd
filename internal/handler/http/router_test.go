package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	overtimeService "github.com/cmlabs-hris/attendance-engine/internal/service/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/service/reconciliation"
	"github.com/cmlabs-hris/attendance-engine/internal/service/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	locker := lock.NewLocalLocker()
	publisher := &events.Recorder{}
	wita := time.FixedZone("WITA", 8*3600)

	shiftSvc := rotation.NewShiftService(
		store.Transactor(),
		store.ShiftDefinitions(),
		store.RotationGroups(),
		store.ShiftAssignments(),
		store.ShiftDays(),
		store.WorkLocations(),
		store, locker, publisher,
		rotation.Options{MaxGenerateDays: 62},
	)
	attendanceSvc := reconciliation.NewAttendanceService(
		store.Transactor(),
		store.RawLogs(),
		store.DailyRecords(),
		store.ShiftDays(),
		store.ShiftDefinitions(),
		store, locker, publisher,
		reconciliation.Options{Location: wita, CheckoutGrace: 4 * time.Hour, Workers: 2},
	)
	overtimeSvc := overtimeService.NewOvertimeService(
		store.Transactor(),
		store.DailyRecords(),
		store.OvertimeSummaries(),
		store, locker, publisher,
	)

	router := NewRouter(RouterOptions{},
		NewShiftHandler(shiftSvc),
		NewAttendanceHandler(attendanceSvc),
		NewOvertimeHandler(overtimeSvc),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEngineFlow(t *testing.T) {
	srv := newTestServer(t)

	status, env := do(t, srv, http.MethodPost, "/api/v1/engine/shifts",
		`{"name":"Pagi","start_time":"08:00","end_time":"17:00","break_minutes":60,"tolerance_minutes":0}`)
	require.Equal(t, http.StatusCreated, status, env.Error)
	var def shift.DefinitionResponse
	require.NoError(t, json.Unmarshal(env.Data, &def))
	assert.True(t, def.IsWorkingDay)
	assert.False(t, def.IsOvernight)

	status, env = do(t, srv, http.MethodPost, "/api/v1/engine/assignments",
		`{"employee_id":"EMP001","shift_id":"`+def.ID+`","start_date":"2025-03-01"}`)
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, env = do(t, srv, http.MethodPost, "/api/v1/engine/shift-days/generate",
		`{"start_date":"2025-03-01","end_date":"2025-03-31"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	var generated shift.GenerateShiftDaysResult
	require.NoError(t, json.Unmarshal(env.Data, &generated))
	assert.True(t, generated.Success)
	assert.Equal(t, 31, generated.RowsCreated)

	for _, body := range []string{
		`{"employee_id":"EMP001","timestamp":"2025-03-10T08:10:00+08:00","event_type":"check_in"}`,
		`{"employee_id":"EMP001","timestamp":"2025-03-10T17:00:00+08:00","event_type":"check_out"}`,
	} {
		status, env = do(t, srv, http.MethodPost, "/api/v1/engine/attendance/logs", body)
		require.Equal(t, http.StatusCreated, status, env.Error)
	}

	status, env = do(t, srv, http.MethodPost, "/api/v1/engine/attendance/reconcile-day", `{"date":"2025-03-10"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.True(t, env.Success)

	status, env = do(t, srv, http.MethodGet, "/api/v1/engine/attendance/records/EMP001/2025-03-10", "")
	require.Equal(t, http.StatusOK, status, env.Error)
	var rec attendance.DailyRecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "JDW-EMP001-20250310", rec.ID)
	assert.Equal(t, attendance.StatusLate, rec.Status)
	assert.Equal(t, 10, rec.LateMinutes)
	assert.Equal(t, 470, rec.EffectiveMinutes)

	status, env = do(t, srv, http.MethodPost, "/api/v1/engine/overtime/aggregate", `{"period_month":"2025-03-01"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.True(t, env.Success)

	status, env = do(t, srv, http.MethodGet, "/api/v1/engine/overtime/summaries/EMP001?month=2025-03", "")
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Contains(t, string(env.Data), `"total_late_minutes":10`)

	status, env = do(t, srv, http.MethodGet, "/api/v1/engine/shift-days?employee_id=EMP001&start_date=2025-03-01&end_date=2025-03-07", "")
	require.Equal(t, http.StatusOK, status, env.Error)
	var days []shift.DayResponse
	require.NoError(t, json.Unmarshal(env.Data, &days))
	assert.Len(t, days, 7)

	status, env = do(t, srv, http.MethodPost, "/api/v1/engine/attendance/finalize",
		`{"employee_id":"EMP001","start_date":"2025-03-10"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.JSONEq(t, `{"rows_finalized":1}`, string(env.Data))
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{
			name:   "invalid json",
			method: http.MethodPost,
			path:   "/api/v1/engine/shifts",
			body:   `{"name":`,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "validation errors",
			method: http.MethodPost,
			path:   "/api/v1/engine/shifts",
			body:   `{"name":""}`,
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "unknown shift",
			method: http.MethodPost,
			path:   "/api/v1/engine/assignments",
			body:   `{"employee_id":"EMP001","shift_id":"missing","start_date":"2025-03-01"}`,
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "missing record",
			method: http.MethodGet,
			path:   "/api/v1/engine/attendance/records/EMP001/2025-03-10",
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "bad date in path",
			method: http.MethodGet,
			path:   "/api/v1/engine/attendance/records/EMP001/10-03-2025",
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "bad month",
			method: http.MethodGet,
			path:   "/api/v1/engine/overtime/summaries?month=March",
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "range without employee",
			method: http.MethodDelete,
			path:   "/api/v1/engine/shift-days?start_date=2025-03-01&end_date=2025-03-02",
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, srv, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestAssignShift_OverlapIsConflict(t *testing.T) {
	srv := newTestServer(t)

	_, env := do(t, srv, http.MethodPost, "/api/v1/engine/shifts",
		`{"name":"Pagi","start_time":"08:00","end_time":"17:00"}`)
	var def shift.DefinitionResponse
	require.NoError(t, json.Unmarshal(env.Data, &def))

	body := `{"employee_id":"EMP001","shift_id":"` + def.ID + `","start_date":"2025-03-01"}`
	status, _ := do(t, srv, http.MethodPost, "/api/v1/engine/assignments", body)
	require.Equal(t, http.StatusCreated, status)

	status, env = do(t, srv, http.MethodPost, "/api/v1/engine/assignments", body)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.True(t, strings.HasPrefix(env.Error.Message, shift.ErrOverlappingAssignment.Error()))
}
