package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type OvertimeHandler interface {
	Aggregate(w http.ResponseWriter, r *http.Request)
	ListSummaries(w http.ResponseWriter, r *http.Request)
	GetSummary(w http.ResponseWriter, r *http.Request)
}

type overtimeHandlerImpl struct {
	overtimeService overtime.Service
}

func NewOvertimeHandler(overtimeService overtime.Service) OvertimeHandler {
	return &overtimeHandlerImpl{
		overtimeService: overtimeService,
	}
}

func (h *overtimeHandlerImpl) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req overtime.AggregateMonthRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.overtimeService.AggregateMonth(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Month aggregated"
	if !result.Success {
		message = "Month aggregation rolled back"
	}
	response.Batch(w, result.Success, message, result)
}

func (h *overtimeHandlerImpl) ListSummaries(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r.URL.Query().Get("month"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.overtimeService.ListSummaries(r.Context(), month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *overtimeHandlerImpl) GetSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r.URL.Query().Get("month"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.overtimeService.GetSummary(r.Context(), chi.URLParam(r, "employeeID"), month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
