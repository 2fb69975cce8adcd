package shift

import "github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"

var (
	// Catalog Errors
	ErrShiftNotFound          = batch.NewError(batch.KindNotFound, "shift definition not found")
	ErrRotationGroupNotFound  = batch.NewError(batch.KindNotFound, "rotation group not found")
	ErrInvalidRotationPattern = batch.NewError(batch.KindValidation, "invalid rotation pattern")
	ErrShiftNameExists        = batch.NewError(batch.KindConflict, "shift definition with this name already exists")

	// Assignment Errors
	ErrAssignmentNotFound        = batch.NewError(batch.KindNotFound, "shift assignment not found")
	ErrNoActiveAssignment        = batch.NewError(batch.KindNotFound, "no active shift assignment covers the date")
	ErrOverlappingAssignment     = batch.NewError(batch.KindConflict, "overlapping active shift assignment")
	ErrAssignmentTargetAmbiguous = batch.NewError(batch.KindValidation, "exactly one of shift_id or rotation_group_id must be set")

	// Shift Day Errors
	ErrShiftDayNotFound = batch.NewError(batch.KindNotFound, "shift day not found")
	ErrShiftDayExists   = batch.NewError(batch.KindConflict, "shift day already exists")
)
