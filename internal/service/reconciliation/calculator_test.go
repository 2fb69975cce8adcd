package reconciliation

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wita = time.FixedZone("WITA", 8*60*60)

func dayShift() *shift.Definition {
	return &shift.Definition{
		ID:               "shift-pagi",
		Name:             "Pagi",
		StartTime:        timeutil.Clock(8, 0),
		EndTime:          timeutil.Clock(17, 0),
		BreakMinutes:     60,
		ToleranceMinutes: 15,
		IsWorkingDay:     true,
	}
}

func nightShift() *shift.Definition {
	return &shift.Definition{
		ID:           "shift-malam",
		Name:         "Malam",
		StartTime:    timeutil.Clock(22, 0),
		EndTime:      timeutil.Clock(6, 0),
		BreakMinutes: 60,
		IsWorkingDay: true,
	}
}

func punch(kind attendance.EventType, d timeutil.Date, hour, minute int) attendance.RawLog {
	return attendance.RawLog{
		EmployeeID: "EMP001",
		Timestamp:  timeutil.Clock(hour, minute).On(d, wita),
		EventType:  kind,
		Validation: attendance.ValidationValid,
	}
}

func TestCalculate_NoLogsIsAbsent(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-10")

	out := Calculate(Input{Date: d, Location: wita, Shift: dayShift()})

	assert.Equal(t, attendance.StatusAbsent, out.Status)
	assert.Equal(t, "No attendance log", out.Notes)
	assert.Nil(t, out.CheckIn)
	assert.Nil(t, out.CheckOut)
	assert.Zero(t, out.LateMinutes)
	assert.Zero(t, out.EarlyLeaveMinutes)
	assert.Zero(t, out.EffectiveMinutes)
	assert.Zero(t, out.OvertimeMinutes)
}

func TestCalculate_OvernightShift(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-10")
	logs := []attendance.RawLog{
		punch(attendance.EventCheckIn, d, 22, 10),
		punch(attendance.EventCheckOut, d.AddDays(1), 6, 5),
	}

	out := Calculate(Input{Date: d, Location: wita, Shift: nightShift(), Logs: logs, CheckoutGrace: 4 * time.Hour})

	require.NotNil(t, out.CheckIn)
	require.NotNil(t, out.CheckOut)
	assert.Equal(t, 10, out.LateMinutes)
	assert.Equal(t, 0, out.EarlyLeaveMinutes)
	assert.Equal(t, 475-60, out.EffectiveMinutes)
	assert.Equal(t, 0, out.OvertimeMinutes)
	assert.Equal(t, attendance.StatusLate, out.Status)
	assert.Equal(t, "Late 10 min", out.Notes)
}

func TestCalculate_OvernightCheckoutAfterGraceIgnored(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-10")
	logs := []attendance.RawLog{
		punch(attendance.EventCheckIn, d, 22, 0),
		punch(attendance.EventCheckOut, d.AddDays(1), 11, 0),
	}

	out := Calculate(Input{Date: d, Location: wita, Shift: nightShift(), Logs: logs, CheckoutGrace: 4 * time.Hour})

	assert.Nil(t, out.CheckOut)
	assert.Equal(t, attendance.StatusLate, out.Status)
	assert.Equal(t, "No check-out log", out.Notes)
	assert.Zero(t, out.EffectiveMinutes)
}

func TestCalculate_ClaimedCheckoutIgnored(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-11")
	claimedUntil := timeutil.Clock(10, 0).On(d, wita)

	out := Calculate(Input{
		Date:         d,
		Location:     wita,
		Shift:        dayShift(),
		Logs:         []attendance.RawLog{punch(attendance.EventCheckOut, d, 6, 5)},
		ClaimedUntil: claimedUntil,
	})
	assert.Equal(t, attendance.StatusAbsent, out.Status)
	assert.Equal(t, "No attendance log", out.Notes)
	assert.Nil(t, out.CheckOut)

	out = Calculate(Input{
		Date:     d,
		Location: wita,
		Shift:    dayShift(),
		Logs: []attendance.RawLog{
			punch(attendance.EventCheckOut, d, 6, 5),
			punch(attendance.EventCheckIn, d, 8, 0),
			punch(attendance.EventCheckOut, d, 17, 0),
		},
		ClaimedUntil: claimedUntil,
	})
	require.NotNil(t, out.CheckOut)
	assert.True(t, out.CheckOut.Equal(timeutil.Clock(17, 0).On(d, wita)))
	assert.Equal(t, attendance.StatusPresent, out.Status)
}

func TestCalculate_DayShift(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-10")

	tests := []struct {
		name     string
		logs     []attendance.RawLog
		late     int
		early    int
		eff      int
		overtime int
		status   attendance.Status
		notes    string
	}{
		{
			name: "on time",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckIn, d, 7, 55),
				punch(attendance.EventCheckOut, d, 17, 0),
			},
			eff:      485,
			overtime: 5,
			status:   attendance.StatusPresent,
			notes:    "Overtime 0.1 h",
		},
		{
			name: "within tolerance",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckIn, d, 8, 15),
				punch(attendance.EventCheckOut, d, 17, 0),
			},
			eff:    465,
			status: attendance.StatusPresent,
		},
		{
			name: "late with overtime",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckIn, d, 8, 20),
				punch(attendance.EventCheckOut, d, 18, 30),
			},
			late:     5,
			eff:      550,
			overtime: 70,
			status:   attendance.StatusLate,
			notes:    "Late 5 min, Overtime 1.2 h",
		},
		{
			name: "early leave",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckIn, d, 8, 0),
				punch(attendance.EventCheckOut, d, 16, 0),
			},
			early:  60,
			eff:    420,
			status: attendance.StatusEarlyLeave,
			notes:  "Early leave 60 min",
		},
		{
			name: "late and early leave",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckIn, d, 9, 0),
				punch(attendance.EventCheckOut, d, 16, 30),
			},
			late:   45,
			early:  30,
			eff:    390,
			status: attendance.StatusLateAndEarlyLeave,
			notes:  "Late 45 min, Early leave 30 min",
		},
		{
			name: "missing check-out",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckIn, d, 8, 0),
			},
			status: attendance.StatusLate,
			notes:  "No check-out log",
		},
		{
			name: "only check-out",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckOut, d, 17, 0),
			},
			status: attendance.StatusAbsent,
			notes:  "No check-in log",
		},
		{
			name: "first check-in and last check-out win",
			logs: []attendance.RawLog{
				punch(attendance.EventCheckOut, d, 6, 5),
				punch(attendance.EventCheckIn, d, 8, 30),
				punch(attendance.EventCheckIn, d, 7, 50),
				punch(attendance.EventCheckOut, d, 12, 0),
				punch(attendance.EventCheckOut, d, 17, 0),
			},
			eff:      490,
			overtime: 10,
			status:   attendance.StatusPresent,
			notes:    "Overtime 0.2 h",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Calculate(Input{Date: d, Location: wita, Shift: dayShift(), Logs: tt.logs})

			assert.Equal(t, tt.late, out.LateMinutes, "late")
			assert.Equal(t, tt.early, out.EarlyLeaveMinutes, "early leave")
			assert.Equal(t, tt.eff, out.EffectiveMinutes, "effective")
			assert.Equal(t, tt.overtime, out.OvertimeMinutes, "overtime")
			assert.Equal(t, tt.status, out.Status)
			if tt.notes != "" {
				assert.Equal(t, tt.notes, out.Notes)
			}
		})
	}
}

func TestCalculate_RejectedLogsIgnored(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-10")
	rejected := punch(attendance.EventCheckIn, d, 7, 0)
	rejected.Validation = attendance.ValidationRejected
	logs := []attendance.RawLog{
		rejected,
		punch(attendance.EventCheckIn, d, 8, 30),
		punch(attendance.EventCheckOut, d, 17, 0),
	}

	out := Calculate(Input{Date: d, Location: wita, Shift: dayShift(), Logs: logs})

	require.NotNil(t, out.CheckIn)
	assert.True(t, out.CheckIn.Equal(timeutil.Clock(8, 30).On(d, wita)))
	assert.Equal(t, 15, out.LateMinutes)
}

func TestCalculate_DayOffAndUnscheduled(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-09")
	logs := []attendance.RawLog{
		punch(attendance.EventCheckIn, d, 9, 0),
		punch(attendance.EventCheckOut, d, 12, 0),
	}

	off := &shift.Definition{ID: "off", Name: "Libur", IsWorkingDay: false}
	out := Calculate(Input{Date: d, Location: wita, Shift: off, Logs: logs})
	assert.Equal(t, attendance.StatusPresent, out.Status)
	assert.Equal(t, 180, out.EffectiveMinutes)
	assert.Zero(t, out.OvertimeMinutes)
	assert.Zero(t, out.LateMinutes)
	assert.Equal(t, "Worked on day off", out.Notes)

	out = Calculate(Input{Date: d, Location: wita, Logs: logs})
	assert.Equal(t, attendance.StatusPresent, out.Status)
	assert.Equal(t, 180, out.EffectiveMinutes)
	assert.Zero(t, out.OvertimeMinutes)
	assert.Equal(t, "No shift schedule", out.Notes)
}

func TestCalculate_NeverNegative(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	d := timeutil.MustParseDate("2025-03-10")
	defs := []*shift.Definition{dayShift(), nightShift(), nil}

	for i := 0; i < 500; i++ {
		var logs []attendance.RawLog
		for n := r.IntN(5); n > 0; n-- {
			kind := attendance.EventCheckIn
			if r.IntN(2) == 0 {
				kind = attendance.EventCheckOut
			}
			ts := d.Midnight(wita).Add(time.Duration(r.IntN(2*timeutil.MinutesPerDay)) * time.Minute)
			logs = append(logs, attendance.RawLog{EventType: kind, Timestamp: ts})
		}

		out := Calculate(Input{Date: d, Location: wita, Shift: defs[r.IntN(len(defs))], Logs: logs})

		assert.GreaterOrEqual(t, out.LateMinutes, 0)
		assert.GreaterOrEqual(t, out.EarlyLeaveMinutes, 0)
		assert.GreaterOrEqual(t, out.EffectiveMinutes, 0)
		assert.GreaterOrEqual(t, out.OvertimeMinutes, 0)
		if out.CheckIn != nil && out.CheckOut != nil {
			assert.False(t, out.CheckOut.Before(*out.CheckIn))
		}
	}
}

func TestWindow(t *testing.T) {
	d := timeutil.MustParseDate("2025-03-10")

	from, inTo, outTo := Window(Input{Date: d, Location: wita, Shift: dayShift()})
	assert.True(t, from.Equal(d.Midnight(wita)))
	assert.True(t, inTo.Equal(d.AddDays(1).Midnight(wita)))
	assert.True(t, outTo.Equal(inTo))

	_, _, outTo = Window(Input{Date: d, Location: wita, Shift: nightShift()})
	assert.True(t, outTo.Equal(timeutil.Clock(10, 0).On(d.AddDays(1), wita)))
}
