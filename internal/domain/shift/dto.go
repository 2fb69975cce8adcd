package shift

import (
	"strings"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// ==================== CATALOG ====================

type CreateDefinitionRequest struct {
	Name             string              `json:"name"`
	StartTime        *timeutil.ClockTime `json:"start_time"`
	EndTime          *timeutil.ClockTime `json:"end_time"`
	BreakMinutes     int                 `json:"break_minutes"`
	ToleranceMinutes int                 `json:"tolerance_minutes"`
	IsWorkingDay     *bool               `json:"is_working_day"`
}

func (r *CreateDefinitionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}
	if r.StartTime == nil {
		errs = append(errs, validator.ValidationError{Field: "start_time", Message: "start_time is required"})
	}
	if r.EndTime == nil {
		errs = append(errs, validator.ValidationError{Field: "end_time", Message: "end_time is required"})
	}
	if r.BreakMinutes < 0 {
		errs = append(errs, validator.ValidationError{Field: "break_minutes", Message: "break_minutes must be a non-negative number"})
	}
	if r.ToleranceMinutes < 0 {
		errs = append(errs, validator.ValidationError{Field: "tolerance_minutes", Message: "tolerance_minutes must be a non-negative number"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DefinitionResponse struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	StartTime        timeutil.ClockTime `json:"start_time"`
	EndTime          timeutil.ClockTime `json:"end_time"`
	BreakMinutes     int                `json:"break_minutes"`
	ToleranceMinutes int                `json:"tolerance_minutes"`
	IsWorkingDay     bool               `json:"is_working_day"`
	IsOvernight      bool               `json:"is_overnight"`
}

func ToDefinitionResponse(d Definition) DefinitionResponse {
	return DefinitionResponse{
		ID:               d.ID,
		Name:             d.Name,
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		BreakMinutes:     d.BreakMinutes,
		ToleranceMinutes: d.ToleranceMinutes,
		IsWorkingDay:     d.IsWorkingDay,
		IsOvernight:      d.IsOvernight(),
	}
}

type RotationEntryRequest struct {
	Position int    `json:"position"`
	ShiftID  string `json:"shift_id"`
}

type CreateRotationGroupRequest struct {
	Name        string                 `json:"name"`
	CycleLength int                    `json:"cycle_length"`
	Entries     []RotationEntryRequest `json:"entries"`
}

func (r *CreateRotationGroupRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}
	if r.CycleLength < 1 {
		errs = append(errs, validator.ValidationError{Field: "cycle_length", Message: "cycle_length must be at least 1"})
	}
	if len(r.Entries) == 0 {
		errs = append(errs, validator.ValidationError{Field: "entries", Message: "entries are required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RotationGroupResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	CycleLength int                    `json:"cycle_length"`
	Entries     []RotationEntryRequest `json:"entries"`
}

func ToRotationGroupResponse(g RotationGroup) RotationGroupResponse {
	entries := make([]RotationEntryRequest, 0, len(g.Entries))
	for _, e := range g.Entries {
		entries = append(entries, RotationEntryRequest{Position: e.Position, ShiftID: e.ShiftID})
	}
	return RotationGroupResponse{ID: g.ID, Name: g.Name, CycleLength: g.CycleLength, Entries: entries}
}

// ==================== ASSIGNMENT ====================

type AssignShiftRequest struct {
	EmployeeID      string         `json:"employee_id"`
	ShiftID         *string        `json:"shift_id,omitempty"`
	RotationGroupID *string        `json:"rotation_group_id,omitempty"`
	OffsetDays      int            `json:"offset_days"`
	StartDate       timeutil.Date  `json:"start_date"`
	EndDate         *timeutil.Date `json:"end_date,omitempty"`
	Mode            AssignMode     `json:"mode"`
}

func (r *AssignShiftRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	} else if !validator.IsValidEmployeeID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id may only contain letters, digits, '.', '_' and '-'"})
	}
	hasShift := r.ShiftID != nil && !validator.IsEmpty(*r.ShiftID)
	hasGroup := r.RotationGroupID != nil && !validator.IsEmpty(*r.RotationGroupID)
	if hasShift == hasGroup {
		errs = append(errs, validator.ValidationError{Field: "shift_id", Message: ErrAssignmentTargetAmbiguous.Error()})
	}
	if hasShift && r.OffsetDays != 0 {
		errs = append(errs, validator.ValidationError{Field: "offset_days", Message: "offset_days only applies to rotation groups"})
	}
	if r.StartDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date is required"})
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must not be before start_date"})
	}
	if r.Mode == "" {
		r.Mode = AssignModeReject
	}
	if !validator.IsInSlice(string(r.Mode), AssignModeValues) {
		errs = append(errs, validator.ValidationError{Field: "mode", Message: "mode must be one of: " + strings.Join(AssignModeValues, ", ")})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AssignmentResponse struct {
	ID              string         `json:"id"`
	EmployeeID      string         `json:"employee_id"`
	ShiftID         *string        `json:"shift_id,omitempty"`
	RotationGroupID *string        `json:"rotation_group_id,omitempty"`
	OffsetDays      int            `json:"offset_days"`
	StartDate       timeutil.Date  `json:"start_date"`
	EndDate         *timeutil.Date `json:"end_date,omitempty"`
	IsActive        bool           `json:"is_active"`
}

func ToAssignmentResponse(a Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:              a.ID,
		EmployeeID:      a.EmployeeID,
		ShiftID:         a.ShiftID,
		RotationGroupID: a.RotationGroupID,
		OffsetDays:      a.OffsetDays,
		StartDate:       a.StartDate,
		EndDate:         a.EndDate,
		IsActive:        a.IsActive,
	}
}

type AssignShiftResponse struct {
	Assignment  AssignmentResponse `json:"assignment"`
	Deactivated []string           `json:"deactivated_assignment_ids"`
}

// ==================== SHIFT DAYS ====================

type GenerateShiftDaysRequest struct {
	EmployeeID *string        `json:"employee_id,omitempty"`
	StartDate  timeutil.Date  `json:"start_date"`
	EndDate    timeutil.Date  `json:"end_date"`
	Mode       CollisionMode  `json:"mode"`
	Epoch      *timeutil.Date `json:"epoch,omitempty"`
}

func (r *GenerateShiftDaysRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.StartDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date is required"})
	}
	if r.EndDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date is required"})
	}
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must not be before start_date"})
	}
	if r.EmployeeID != nil && validator.IsEmpty(*r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id must not be blank"})
	}
	if r.Mode == "" {
		r.Mode = ModeSkip
	}
	if !validator.IsInSlice(string(r.Mode), CollisionModeValues) {
		errs = append(errs, validator.ValidationError{Field: "mode", Message: "mode must be one of: " + strings.Join(CollisionModeValues, ", ")})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type GenerateShiftDaysResult struct {
	Success            bool              `json:"success"`
	RowsCreated        int               `json:"rows_created"`
	RowsSkipped        int               `json:"rows_skipped"`
	RowsReplaced       int               `json:"rows_replaced"`
	EmployeesProcessed int               `json:"employees_processed"`
	Errors             []batch.UnitError `json:"errors"`
}

type OverrideShiftDaysRequest struct {
	EmployeeID           string        `json:"employee_id"`
	StartDate            timeutil.Date `json:"start_date"`
	EndDate              timeutil.Date `json:"end_date"`
	ShiftID              string        `json:"shift_id"`
	LocationID           *string       `json:"location_id,omitempty"`
	SubstituteEmployeeID *string       `json:"substitute_employee_id,omitempty"`
	Reason               *string       `json:"reason,omitempty"`
	OverwriteExisting    bool          `json:"overwrite_existing"`
}

func (r *OverrideShiftDaysRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.ShiftID) {
		errs = append(errs, validator.ValidationError{Field: "shift_id", Message: "shift_id is required"})
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
	if r.SubstituteEmployeeID != nil && *r.SubstituteEmployeeID == r.EmployeeID {
		errs = append(errs, validator.ValidationError{Field: "substitute_employee_id", Message: "substitute must be a different employee"})
	}
	if r.SubstituteEmployeeID != nil && (r.Reason == nil || validator.IsEmpty(*r.Reason)) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "reason is required when a substitute is set"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type OverrideShiftDaysResult struct {
	RowsCreated  int `json:"rows_created"`
	RowsSkipped  int `json:"rows_skipped"`
	RowsReplaced int `json:"rows_replaced"`
}

type ShiftDayRangeRequest struct {
	EmployeeID string        `json:"employee_id"`
	StartDate  timeutil.Date `json:"start_date"`
	EndDate    timeutil.Date `json:"end_date"`
}

func (r *ShiftDayRangeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.StartDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date is required"})
	}
	if r.EndDate.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date is required"})
	} else if r.EndDate.Before(r.StartDate) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must not be before start_date"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DayResponse struct {
	ID                   string        `json:"id"`
	EmployeeID           string        `json:"employee_id"`
	Date                 timeutil.Date `json:"date"`
	ShiftID              string        `json:"shift_id"`
	IsDayOff             bool          `json:"is_day_off"`
	LocationID           *string       `json:"location_id,omitempty"`
	SubstituteEmployeeID *string       `json:"substitute_employee_id,omitempty"`
	ChangeReason         *string       `json:"change_reason,omitempty"`
	Source               DaySource     `json:"source"`
}

func ToDayResponse(d Day) DayResponse {
	return DayResponse{
		ID:                   d.ID,
		EmployeeID:           d.EmployeeID,
		Date:                 d.Date,
		ShiftID:              d.ShiftID,
		IsDayOff:             d.IsDayOff,
		LocationID:           d.LocationID,
		SubstituteEmployeeID: d.SubstituteEmployeeID,
		ChangeReason:         d.ChangeReason,
		Source:               d.Source,
	}
}
