package shift

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

// Definition is a named working window. EndTime may be earlier than
// StartTime, meaning the shift ends on the following day.
type Definition struct {
	ID               string
	Name             string
	StartTime        timeutil.ClockTime
	EndTime          timeutil.ClockTime
	BreakMinutes     int
	ToleranceMinutes int
	IsWorkingDay     bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (d Definition) IsOvernight() bool {
	return timeutil.IsOvernight(d.StartTime, d.EndTime)
}

// EndMinutes is the scheduled end in minutes from the start day's midnight.
func (d Definition) EndMinutes() int {
	return timeutil.ShiftEndMinutes(d.StartTime, d.EndTime)
}

// ScheduledMinutes is the planned working time with the break removed.
func (d Definition) ScheduledMinutes() int {
	return max(0, d.EndMinutes()-d.StartTime.Minutes()-d.BreakMinutes)
}

type RotationEntry struct {
	Position int
	ShiftID  string
}

// RotationGroup is a repeating cycle of shifts. Every position from 1 to
// CycleLength must map to exactly one shift.
type RotationGroup struct {
	ID          string
	Name        string
	CycleLength int
	Entries     []RotationEntry
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RotationPattern is a validated lookup table built from a RotationGroup.
type RotationPattern struct {
	groupID string
	slots   []string
}

func NewRotationPattern(group RotationGroup) (RotationPattern, error) {
	if group.CycleLength < 1 {
		return RotationPattern{}, fmt.Errorf("%w: cycle length must be at least 1", ErrInvalidRotationPattern)
	}
	if len(group.Entries) != group.CycleLength {
		return RotationPattern{}, fmt.Errorf("%w: group %s has %d entries for a cycle of %d",
			ErrInvalidRotationPattern, group.ID, len(group.Entries), group.CycleLength)
	}

	slots := make([]string, group.CycleLength)
	for _, e := range group.Entries {
		if e.Position < 1 || e.Position > group.CycleLength {
			return RotationPattern{}, fmt.Errorf("%w: position %d outside 1..%d",
				ErrInvalidRotationPattern, e.Position, group.CycleLength)
		}
		if e.ShiftID == "" {
			return RotationPattern{}, fmt.Errorf("%w: position %d has no shift", ErrInvalidRotationPattern, e.Position)
		}
		if slots[e.Position-1] != "" {
			return RotationPattern{}, fmt.Errorf("%w: position %d mapped twice", ErrInvalidRotationPattern, e.Position)
		}
		slots[e.Position-1] = e.ShiftID
	}

	return RotationPattern{groupID: group.ID, slots: slots}, nil
}

func (p RotationPattern) GroupID() string { return p.groupID }
func (p RotationPattern) Len() int        { return len(p.slots) }

// Position returns the 1-based cycle position for a day index and offset.
func (p RotationPattern) Position(dayIndex, offset int) int {
	return timeutil.FloorMod(dayIndex+offset, len(p.slots)) + 1
}

// ShiftAt returns the shift for a day index and offset.
func (p RotationPattern) ShiftAt(dayIndex, offset int) string {
	return p.slots[p.Position(dayIndex, offset)-1]
}

// Assignment binds an employee to either one shift or one rotation group
// for a date range. A nil EndDate is open-ended.
type Assignment struct {
	ID              string
	EmployeeID      string
	ShiftID         *string
	RotationGroupID *string
	OffsetDays      int
	StartDate       timeutil.Date
	EndDate         *timeutil.Date
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Assignment) Covers(d timeutil.Date) bool {
	if d.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !d.After(*a.EndDate)
}

func (a Assignment) Overlaps(start timeutil.Date, end *timeutil.Date) bool {
	return timeutil.Overlaps(a.StartDate, a.EndDate, start, end)
}

// CheckTarget enforces that exactly one of ShiftID and RotationGroupID is set.
func (a Assignment) CheckTarget() error {
	hasShift := a.ShiftID != nil && *a.ShiftID != ""
	hasGroup := a.RotationGroupID != nil && *a.RotationGroupID != ""
	if hasShift == hasGroup {
		return ErrAssignmentTargetAmbiguous
	}
	return nil
}

type DaySource string

const (
	SourceGenerated DaySource = "generated"
	SourceManual    DaySource = "manual"
)

// Day is the concrete shift an employee works on one date.
type Day struct {
	ID                   string
	EmployeeID           string
	Date                 timeutil.Date
	ShiftID              string
	IsDayOff             bool
	LocationID           *string
	SubstituteEmployeeID *string
	ChangeReason         *string
	Source               DaySource
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func DayID(employeeID string, d timeutil.Date) string {
	return fmt.Sprintf("JDW-%s-%s", employeeID, d.Compact())
}

type CollisionMode string

const (
	ModeSkip      CollisionMode = "skip"
	ModeOverwrite CollisionMode = "overwrite"
	ModeError     CollisionMode = "error"
)

var CollisionModeValues = []string{string(ModeSkip), string(ModeOverwrite), string(ModeError)}

type AssignMode string

const (
	AssignModeReject      AssignMode = "reject"
	AssignModeAutoResolve AssignMode = "auto_resolve"
)

var AssignModeValues = []string{string(AssignModeReject), string(AssignModeAutoResolve)}
