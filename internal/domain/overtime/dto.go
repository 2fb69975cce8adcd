package overtime

import (
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type AggregateMonthRequest struct {
	// Any date inside the month; it is normalized to the first day.
	PeriodMonth timeutil.Date `json:"period_month"`
}

func (r *AggregateMonthRequest) Validate() error {
	if r.PeriodMonth.IsZero() {
		return validator.ValidationErrors{{Field: "period_month", Message: "period_month is required"}}
	}
	r.PeriodMonth = timeutil.StartOfMonth(r.PeriodMonth)
	return nil
}

type AggregateResult struct {
	Success        bool              `json:"success"`
	PeriodMonth    timeutil.Date     `json:"period_month"`
	EmployeesTotal int               `json:"employees_total"`
	Succeeded      int               `json:"succeeded"`
	Failed         int               `json:"failed"`
	Errors         []batch.UnitError `json:"errors"`
}

type SummaryResponse struct {
	ID                     string          `json:"id"`
	EmployeeID             string          `json:"employee_id"`
	PeriodMonth            timeutil.Date   `json:"period_month"`
	TotalOvertimeHours     decimal.Decimal `json:"total_overtime_hours"`
	TotalLateDays          int             `json:"total_late_days"`
	TotalLateMinutes       int             `json:"total_late_minutes"`
	TotalAbsentDays        int             `json:"total_absent_days"`
	TotalEffectiveWorkDays int             `json:"total_effective_work_days"`
	TotalDaysRecorded      int             `json:"total_days_recorded"`
}

func ToSummaryResponse(s Summary) SummaryResponse {
	return SummaryResponse{
		ID:                     s.ID,
		EmployeeID:             s.EmployeeID,
		PeriodMonth:            s.PeriodMonth,
		TotalOvertimeHours:     s.TotalOvertimeHours,
		TotalLateDays:          s.TotalLateDays,
		TotalLateMinutes:       s.TotalLateMinutes,
		TotalAbsentDays:        s.TotalAbsentDays,
		TotalEffectiveWorkDays: s.TotalEffectiveWorkDays,
		TotalDaysRecorded:      s.TotalDaysRecorded,
	}
}
