package shift

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

type DefinitionRepository interface {
	Create(ctx context.Context, def Definition) (Definition, error)
	GetByID(ctx context.Context, id string) (Definition, error)
	List(ctx context.Context) ([]Definition, error)
}

type RotationGroupRepository interface {
	Create(ctx context.Context, group RotationGroup) (RotationGroup, error)
	GetByID(ctx context.Context, id string) (RotationGroup, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, a Assignment) (Assignment, error)
	GetByID(ctx context.Context, id string) (Assignment, error)
	// GetActive returns the active assignment covering date, or ErrNoActiveAssignment.
	GetActive(ctx context.Context, employeeID string, date timeutil.Date) (Assignment, error)
	// ListActiveOverlapping returns active assignments sharing any date with [start, end].
	ListActiveOverlapping(ctx context.Context, employeeID string, start timeutil.Date, end *timeutil.Date) ([]Assignment, error)
	// ListAssignedEmployees returns employees with an active assignment overlapping [from, to].
	ListAssignedEmployees(ctx context.Context, from, to timeutil.Date) ([]string, error)
	Deactivate(ctx context.Context, id string) error
}

type DayRepository interface {
	// Insert writes day unless a row for (employee, date) exists. It reports
	// whether a row was written.
	Insert(ctx context.Context, day Day) (bool, error)
	GetByEmployeeDate(ctx context.Context, employeeID string, date timeutil.Date) (Day, error)
	ListByEmployee(ctx context.Context, employeeID string, from, to timeutil.Date) ([]Day, error)
	ListByDate(ctx context.Context, date timeutil.Date) ([]Day, error)
	DeleteRange(ctx context.Context, employeeID string, from, to timeutil.Date) (int64, error)
}

type LocationRepository interface {
	// GetWorkLocation returns the employee's work location on date, or nil.
	GetWorkLocation(ctx context.Context, employeeID string, date timeutil.Date) (*string, error)
}
