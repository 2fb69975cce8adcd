package overtime

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

// Fold totals one employee's daily records for a month. Records outside
// the month or belonging to other employees are ignored.
func Fold(employeeID string, month timeutil.Date, records []attendance.DailyRecord) overtime.Summary {
	month = timeutil.StartOfMonth(month)
	last := timeutil.EndOfMonth(month)

	sum := overtime.Summary{
		ID:          overtime.SummaryID(employeeID, month),
		EmployeeID:  employeeID,
		PeriodMonth: month,
	}

	overtimeMinutes := 0
	for _, r := range records {
		if r.EmployeeID != employeeID || r.Date.Before(month) || r.Date.After(last) {
			continue
		}
		sum.TotalDaysRecorded++
		overtimeMinutes += r.OvertimeMinutes
		if r.LateMinutes > 0 {
			sum.TotalLateDays++
			sum.TotalLateMinutes += r.LateMinutes
		}
		if r.Status.IsAbsence() {
			sum.TotalAbsentDays++
		}
		if r.EffectiveMinutes > 0 {
			sum.TotalEffectiveWorkDays++
		}
	}

	sum.TotalOvertimeHours = decimal.NewFromInt(int64(overtimeMinutes)).Div(minutesPerHour).Round(2)
	return sum
}
