package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	RecordLog(w http.ResponseWriter, r *http.Request)
	ReconcileDay(w http.ResponseWriter, r *http.Request)
	ReconcileEmployee(w http.ResponseWriter, r *http.Request)
	GetRecord(w http.ResponseWriter, r *http.Request)
	Finalize(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
}

func NewAttendanceHandler(attendanceService attendance.Service) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

func (h *attendanceHandlerImpl) RecordLog(w http.ResponseWriter, r *http.Request) {
	var req attendance.RecordRawLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.attendanceService.RecordRawLog(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance log recorded", result)
}

func (h *attendanceHandlerImpl) ReconcileDay(w http.ResponseWriter, r *http.Request) {
	var req attendance.ReconcileDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.attendanceService.ReconcileDay(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Batch(w, result.Success, "Day reconciled", result)
}

func (h *attendanceHandlerImpl) ReconcileEmployee(w http.ResponseWriter, r *http.Request) {
	var req attendance.ReconcileEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.attendanceService.ReconcileEmployee(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Batch(w, result.Success, "Employee reconciled", result)
}

func (h *attendanceHandlerImpl) GetRecord(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	date, err := timeutil.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		response.HandleError(w, validator.ValidationErrors{{Field: "date", Message: "date must be a date in YYYY-MM-DD format"}})
		return
	}

	result, err := h.attendanceService.GetDailyRecord(r.Context(), employeeID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *attendanceHandlerImpl) Finalize(w http.ResponseWriter, r *http.Request) {
	var req attendance.FinalizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	finalized, err := h.attendanceService.FinalizeRecords(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Records finalized", map[string]int64{"rows_finalized": finalized})
}
