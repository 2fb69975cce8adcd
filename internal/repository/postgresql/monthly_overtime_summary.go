package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type monthlyOvertimeSummaryRepository struct {
	db *database.DB
}

func NewMonthlyOvertimeSummaryRepository(db *database.DB) overtime.SummaryRepository {
	return &monthlyOvertimeSummaryRepository{db: db}
}

const summaryColumns = `id, employee_id, period_month, total_overtime_hours::text, total_late_days, total_late_minutes,
	total_absent_days, total_effective_work_days, total_days_recorded, created_at, updated_at`

func scanSummary(row pgx.Row) (overtime.Summary, error) {
	var (
		s     overtime.Summary
		month time.Time
		hours string
	)
	if err := row.Scan(&s.ID, &s.EmployeeID, &month, &hours, &s.TotalLateDays, &s.TotalLateMinutes,
		&s.TotalAbsentDays, &s.TotalEffectiveWorkDays, &s.TotalDaysRecorded, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return overtime.Summary{}, err
	}

	var err error
	if s.TotalOvertimeHours, err = decimal.NewFromString(hours); err != nil {
		return overtime.Summary{}, fmt.Errorf("parse overtime hours %q: %w", hours, err)
	}
	s.PeriodMonth = fromDB(month)
	return s, nil
}

// Upsert implements overtime.SummaryRepository.
func (r *monthlyOvertimeSummaryRepository) Upsert(ctx context.Context, s overtime.Summary) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO monthly_overtime_summaries (
			id, employee_id, period_month, total_overtime_hours, total_late_days, total_late_minutes,
			total_absent_days, total_effective_work_days, total_days_recorded
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
		ON CONFLICT (employee_id, period_month) DO UPDATE SET
			total_overtime_hours = EXCLUDED.total_overtime_hours,
			total_late_days = EXCLUDED.total_late_days,
			total_late_minutes = EXCLUDED.total_late_minutes,
			total_absent_days = EXCLUDED.total_absent_days,
			total_effective_work_days = EXCLUDED.total_effective_work_days,
			total_days_recorded = EXCLUDED.total_days_recorded,
			updated_at = NOW()
	`, s.ID, s.EmployeeID, dateArg(s.PeriodMonth), s.TotalOvertimeHours.StringFixed(2),
		s.TotalLateDays, s.TotalLateMinutes, s.TotalAbsentDays, s.TotalEffectiveWorkDays, s.TotalDaysRecorded)
	if err != nil {
		return fmt.Errorf("failed to upsert overtime summary %s: %w", s.ID, err)
	}
	return nil
}

// GetByEmployeeMonth implements overtime.SummaryRepository.
func (r *monthlyOvertimeSummaryRepository) GetByEmployeeMonth(ctx context.Context, employeeID string, month timeutil.Date) (overtime.Summary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + summaryColumns + ` FROM monthly_overtime_summaries WHERE employee_id = $1 AND period_month = $2`

	s, err := scanSummary(q.QueryRow(ctx, query, employeeID, dateArg(timeutil.StartOfMonth(month))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overtime.Summary{}, overtime.ErrSummaryNotFound
		}
		return overtime.Summary{}, fmt.Errorf("failed to get overtime summary for %s: %w", employeeID, err)
	}
	return s, nil
}

// ListByMonth implements overtime.SummaryRepository.
func (r *monthlyOvertimeSummaryRepository) ListByMonth(ctx context.Context, month timeutil.Date) ([]overtime.Summary, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM monthly_overtime_summaries
		WHERE period_month = $1
		ORDER BY employee_id
	`, dateArg(timeutil.StartOfMonth(month)))
	if err != nil {
		return nil, fmt.Errorf("failed to list overtime summaries: %w", err)
	}
	defer rows.Close()

	var out []overtime.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
