package overtime

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// Summary is one employee's attendance totals for a calendar month.
type Summary struct {
	ID                     string
	EmployeeID             string
	PeriodMonth            timeutil.Date
	TotalOvertimeHours     decimal.Decimal
	TotalLateDays          int
	TotalLateMinutes       int
	TotalAbsentDays        int
	TotalEffectiveWorkDays int
	TotalDaysRecorded      int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func SummaryID(employeeID string, month timeutil.Date) string {
	return fmt.Sprintf("LEM-%s-%s", employeeID, month.MonthKey())
}
