package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

type EventType string

const (
	EventCheckIn  EventType = "check_in"
	EventCheckOut EventType = "check_out"
)

var EventTypeValues = []string{string(EventCheckIn), string(EventCheckOut)}

type ValidationStatus string

const (
	ValidationValid    ValidationStatus = "valid"
	ValidationPending  ValidationStatus = "pending"
	ValidationRejected ValidationStatus = "rejected"
)

// RawLog is a single punch event. Raw logs are append-only.
type RawLog struct {
	ID         string
	EmployeeID string
	Timestamp  time.Time
	LocationID *string
	EventType  EventType
	Channel    string
	Validation ValidationStatus
	CreatedAt  time.Time
}

type Status string

const (
	StatusPresent           Status = "present"
	StatusLate              Status = "late"
	StatusEarlyLeave        Status = "early_leave"
	StatusLateAndEarlyLeave Status = "late_and_early_leave"
	StatusAbsent            Status = "absent"

	// Set by leave workflows, never by reconciliation.
	StatusLeave  Status = "leave"
	StatusPermit Status = "permit"
)

// IsAbsence reports whether the status counts as a day not worked.
func (s Status) IsAbsence() bool {
	switch s {
	case StatusAbsent, StatusLeave, StatusPermit:
		return true
	}
	return false
}

// DailyRecord is the reconciled attendance of one employee on one date.
type DailyRecord struct {
	ID                string
	EmployeeID        string
	Date              timeutil.Date
	ShiftID           *string
	CheckIn           *time.Time
	CheckOut          *time.Time
	LateMinutes       int
	EarlyLeaveMinutes int
	EffectiveMinutes  int
	OvertimeMinutes   int
	Status            Status
	Notes             string
	IsFinal           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func RecordID(employeeID string, d timeutil.Date) string {
	return fmt.Sprintf("ABS-%s-%s", employeeID, d.Compact())
}

// SameOutcome reports whether two records carry the same reconciled values.
func (r DailyRecord) SameOutcome(o DailyRecord) bool {
	return r.Status == o.Status &&
		r.Notes == o.Notes &&
		r.LateMinutes == o.LateMinutes &&
		r.EarlyLeaveMinutes == o.EarlyLeaveMinutes &&
		r.EffectiveMinutes == o.EffectiveMinutes &&
		r.OvertimeMinutes == o.OvertimeMinutes &&
		equalPtr(r.ShiftID, o.ShiftID) &&
		equalTime(r.CheckIn, o.CheckIn) &&
		equalTime(r.CheckOut, o.CheckOut)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
