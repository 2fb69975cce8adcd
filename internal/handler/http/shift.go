package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
)

type ShiftHandler interface {
	// Catalog
	CreateDefinition(w http.ResponseWriter, r *http.Request)
	ListDefinitions(w http.ResponseWriter, r *http.Request)
	CreateRotationGroup(w http.ResponseWriter, r *http.Request)

	// Assignment
	AssignShift(w http.ResponseWriter, r *http.Request)

	// Shift Days
	GenerateShiftDays(w http.ResponseWriter, r *http.Request)
	OverrideShiftDays(w http.ResponseWriter, r *http.Request)
	ListShiftDays(w http.ResponseWriter, r *http.Request)
	DeleteShiftDays(w http.ResponseWriter, r *http.Request)
}

type shiftHandlerImpl struct {
	shiftService shift.Service
}

func NewShiftHandler(shiftService shift.Service) ShiftHandler {
	return &shiftHandlerImpl{
		shiftService: shiftService,
	}
}

// ==================== CATALOG HANDLERS ====================

func (h *shiftHandlerImpl) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req shift.CreateDefinitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.shiftService.CreateDefinition(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Shift definition created successfully", result)
}

func (h *shiftHandlerImpl) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	result, err := h.shiftService.ListDefinitions(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *shiftHandlerImpl) CreateRotationGroup(w http.ResponseWriter, r *http.Request) {
	var req shift.CreateRotationGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.shiftService.CreateRotationGroup(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Rotation group created successfully", result)
}

// ==================== ASSIGNMENT HANDLERS ====================

func (h *shiftHandlerImpl) AssignShift(w http.ResponseWriter, r *http.Request) {
	var req shift.AssignShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.shiftService.AssignShift(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Shift assigned successfully", result)
}

// ==================== SHIFT DAY HANDLERS ====================

func (h *shiftHandlerImpl) GenerateShiftDays(w http.ResponseWriter, r *http.Request) {
	var req shift.GenerateShiftDaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.shiftService.GenerateShiftDays(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Batch(w, result.Success, "Shift days generated", result)
}

func (h *shiftHandlerImpl) OverrideShiftDays(w http.ResponseWriter, r *http.Request) {
	var req shift.OverrideShiftDaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.shiftService.OverrideShiftDays(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift days overridden", result)
}

func (h *shiftHandlerImpl) ListShiftDays(w http.ResponseWriter, r *http.Request) {
	req, err := rangeRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.shiftService.ListShiftDays(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *shiftHandlerImpl) DeleteShiftDays(w http.ResponseWriter, r *http.Request) {
	req, err := rangeRequest(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	deleted, err := h.shiftService.DeleteShiftDays(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift days deleted", map[string]int64{"rows_deleted": deleted})
}

func rangeRequest(r *http.Request) (shift.ShiftDayRangeRequest, error) {
	dates, err := dateParams(r, "start_date", "end_date")
	if err != nil {
		return shift.ShiftDayRangeRequest{}, err
	}
	return shift.ShiftDayRangeRequest{
		EmployeeID: r.URL.Query().Get("employee_id"),
		StartDate:  dates[0],
		EndDate:    dates[1],
	}, nil
}
