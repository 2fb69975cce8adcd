package reconciliation

import (
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/shopspring/decimal"
)

const (
	noteNoLog         = "No attendance log"
	noteNoCheckIn     = "No check-in log"
	noteNoCheckOut    = "No check-out log"
	noteNoSchedule    = "No shift schedule"
	noteWorkedDayOff  = "Worked on day off"
	defaultGraceHours = 4
)

// Input is everything Calculate needs for one employee on one date.
type Input struct {
	Date     timeutil.Date
	Location *time.Location
	// Shift is nil when the employee has no shift day for Date.
	Shift *shift.Definition
	// Logs may contain events outside the window; they are ignored.
	Logs          []attendance.RawLog
	CheckoutGrace time.Duration
	// ClaimedUntil is where the previous day's overnight check-out window
	// ends. Check-outs before it without a check-in on Date belong to that
	// shift. Zero when the previous day has no overnight shift.
	ClaimedUntil time.Time
}

type Outcome struct {
	CheckIn           *time.Time
	CheckOut          *time.Time
	LateMinutes       int
	EarlyLeaveMinutes int
	EffectiveMinutes  int
	OvertimeMinutes   int
	Status            attendance.Status
	Notes             string
}

// Window returns the instants between which events count for in.Date.
// Check-ins are accepted in [from, checkInTo) and check-outs in
// [from, checkOutTo).
func Window(in Input) (from, checkInTo, checkOutTo time.Time) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	from = in.Date.Midnight(loc)
	checkInTo = in.Date.AddDays(1).Midnight(loc)
	checkOutTo = checkInTo

	if in.Shift != nil && in.Shift.IsOvernight() {
		grace := in.CheckoutGrace
		if grace <= 0 {
			grace = defaultGraceHours * time.Hour
		}
		checkOutTo = in.Shift.EndTime.On(in.Date.AddDays(1), loc).Add(grace)
	}
	return from, checkInTo, checkOutTo
}

// Calculate reconciles one employee's punches against the day's shift.
func Calculate(in Input) Outcome {
	from, checkInTo, checkOutTo := Window(in)
	checkIn, checkOut := matchPunches(in.Logs, from, checkInTo, checkOutTo, in.ClaimedUntil)

	if checkIn == nil {
		note := noteNoLog
		if checkOut != nil {
			note = noteNoCheckIn
		}
		return Outcome{Status: attendance.StatusAbsent, Notes: note}
	}

	out := Outcome{CheckIn: checkIn, CheckOut: checkOut}
	working := in.Shift != nil && in.Shift.IsWorkingDay

	inMin := timeutil.MinutesFrom(from, *checkIn)
	if working {
		out.LateMinutes = max(0, inMin-in.Shift.StartTime.Minutes()-in.Shift.ToleranceMinutes)
	}

	if checkOut != nil {
		outMin := timeutil.MinutesFrom(from, *checkOut)
		breakMin := 0
		if in.Shift != nil {
			breakMin = in.Shift.BreakMinutes
		}
		out.EffectiveMinutes = max(0, outMin-inMin-breakMin)

		if working {
			out.EarlyLeaveMinutes = max(0, in.Shift.EndMinutes()-outMin)
			out.OvertimeMinutes = max(0, out.EffectiveMinutes-in.Shift.ScheduledMinutes())
		}
	}

	out.Status = classify(out)
	out.Notes = notes(in.Shift, out)
	return out
}

// matchPunches picks the first check-in and the last check-out at or after
// it. Rejected events never count, and neither do check-outs before
// claimedUntil when there is no check-in.
func matchPunches(logs []attendance.RawLog, from, checkInTo, checkOutTo, claimedUntil time.Time) (checkIn, checkOut *time.Time) {
	for _, l := range logs {
		if l.EventType != attendance.EventCheckIn || l.Validation == attendance.ValidationRejected {
			continue
		}
		if l.Timestamp.Before(from) || !l.Timestamp.Before(checkInTo) {
			continue
		}
		if checkIn == nil || l.Timestamp.Before(*checkIn) {
			ts := l.Timestamp
			checkIn = &ts
		}
	}

	for _, l := range logs {
		if l.EventType != attendance.EventCheckOut || l.Validation == attendance.ValidationRejected {
			continue
		}
		if l.Timestamp.Before(from) || !l.Timestamp.Before(checkOutTo) {
			continue
		}
		if checkIn != nil && l.Timestamp.Before(*checkIn) {
			continue
		}
		if checkIn == nil && l.Timestamp.Before(claimedUntil) {
			continue
		}
		if checkOut == nil || l.Timestamp.After(*checkOut) {
			ts := l.Timestamp
			checkOut = &ts
		}
	}
	return checkIn, checkOut
}

func classify(o Outcome) attendance.Status {
	switch {
	case o.CheckOut == nil:
		return attendance.StatusLate
	case o.LateMinutes > 0 && o.EarlyLeaveMinutes > 0:
		return attendance.StatusLateAndEarlyLeave
	case o.LateMinutes > 0:
		return attendance.StatusLate
	case o.EarlyLeaveMinutes > 0:
		return attendance.StatusEarlyLeave
	default:
		return attendance.StatusPresent
	}
}

func notes(def *shift.Definition, o Outcome) string {
	var parts []string
	switch {
	case def == nil:
		parts = append(parts, noteNoSchedule)
	case !def.IsWorkingDay:
		parts = append(parts, noteWorkedDayOff)
	}
	if o.LateMinutes > 0 {
		parts = append(parts, "Late "+strconv.Itoa(o.LateMinutes)+" min")
	}
	if o.EarlyLeaveMinutes > 0 {
		parts = append(parts, "Early leave "+strconv.Itoa(o.EarlyLeaveMinutes)+" min")
	}
	if o.OvertimeMinutes > 0 {
		parts = append(parts, "Overtime "+Hours(o.OvertimeMinutes).StringFixed(1)+" h")
	}
	if o.CheckOut == nil {
		parts = append(parts, noteNoCheckOut)
	}
	return strings.Join(parts, ", ")
}

// Hours converts minutes to hours rounded to two decimals.
func Hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}
