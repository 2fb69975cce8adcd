package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

type ReconcileDayRequest struct {
	Date timeutil.Date `json:"date"`
}

func (r *ReconcileDayRequest) Validate() error {
	if r.Date.IsZero() {
		return validator.ValidationErrors{{Field: "date", Message: "date is required"}}
	}
	return nil
}

type ReconcileEmployeeRequest struct {
	EmployeeID string        `json:"employee_id"`
	Date       timeutil.Date `json:"date"`
}

func (r *ReconcileEmployeeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.Date.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ReconcileResult struct {
	Success            bool              `json:"success"`
	Date               timeutil.Date     `json:"date"`
	EmployeesProcessed int               `json:"employees_processed"`
	RecordsWritten     int               `json:"records_written"`
	RecordsUnchanged   int               `json:"records_unchanged"`
	Errors             []batch.UnitError `json:"errors"`
}

type RecordRawLogRequest struct {
	EmployeeID string    `json:"employee_id"`
	Timestamp  time.Time `json:"timestamp"`
	EventType  EventType `json:"event_type"`
	LocationID *string   `json:"location_id,omitempty"`
	Channel    string    `json:"channel"`
}

func (r *RecordRawLogRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.Timestamp.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "timestamp", Message: "timestamp is required"})
	}
	if !validator.IsInSlice(string(r.EventType), EventTypeValues) {
		errs = append(errs, validator.ValidationError{Field: "event_type", Message: "event_type must be one of: " + strings.Join(EventTypeValues, ", ")})
	}
	if validator.IsEmpty(r.Channel) {
		r.Channel = "device"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RawLogResponse struct {
	ID         string           `json:"id"`
	EmployeeID string           `json:"employee_id"`
	Timestamp  time.Time        `json:"timestamp"`
	EventType  EventType        `json:"event_type"`
	LocationID *string          `json:"location_id,omitempty"`
	Channel    string           `json:"channel"`
	Validation ValidationStatus `json:"validation"`
}

func ToRawLogResponse(l RawLog) RawLogResponse {
	return RawLogResponse{
		ID:         l.ID,
		EmployeeID: l.EmployeeID,
		Timestamp:  l.Timestamp,
		EventType:  l.EventType,
		LocationID: l.LocationID,
		Channel:    l.Channel,
		Validation: l.Validation,
	}
}

type FinalizeRequest struct {
	EmployeeID string        `json:"employee_id"`
	StartDate  timeutil.Date `json:"start_date"`
	EndDate    timeutil.Date `json:"end_date"`
}

func (r *FinalizeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.StartDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date is required"})
	}
	if r.EndDate.IsZero() {
		r.EndDate = r.StartDate
	}
	if r.EndDate.Before(r.StartDate) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must not be before start_date"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DailyRecordResponse struct {
	ID                string        `json:"id"`
	EmployeeID        string        `json:"employee_id"`
	Date              timeutil.Date `json:"date"`
	ShiftID           *string       `json:"shift_id,omitempty"`
	CheckIn           *time.Time    `json:"check_in,omitempty"`
	CheckOut          *time.Time    `json:"check_out,omitempty"`
	LateMinutes       int           `json:"late_minutes"`
	EarlyLeaveMinutes int           `json:"early_leave_minutes"`
	EffectiveMinutes  int           `json:"effective_minutes"`
	OvertimeMinutes   int           `json:"overtime_minutes"`
	Status            Status        `json:"status"`
	Notes             string        `json:"notes"`
	IsFinal           bool          `json:"is_final"`
}

func ToDailyRecordResponse(r DailyRecord) DailyRecordResponse {
	return DailyRecordResponse{
		ID:                r.ID,
		EmployeeID:        r.EmployeeID,
		Date:              r.Date,
		ShiftID:           r.ShiftID,
		CheckIn:           r.CheckIn,
		CheckOut:          r.CheckOut,
		LateMinutes:       r.LateMinutes,
		EarlyLeaveMinutes: r.EarlyLeaveMinutes,
		EffectiveMinutes:  r.EffectiveMinutes,
		OvertimeMinutes:   r.OvertimeMinutes,
		Status:            r.Status,
		Notes:             r.Notes,
		IsFinal:           r.IsFinal,
	}
}
