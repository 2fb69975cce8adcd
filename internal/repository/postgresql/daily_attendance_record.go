package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/jackc/pgx/v5"
)

type dailyAttendanceRecordRepository struct {
	db *database.DB
}

func NewDailyAttendanceRecordRepository(db *database.DB) attendance.DailyRecordRepository {
	return &dailyAttendanceRecordRepository{db: db}
}

const dailyRecordColumns = `id, employee_id, date, shift_id, check_in, check_out, late_minutes, early_leave_minutes,
	effective_minutes, overtime_minutes, status, notes, is_final, created_at, updated_at`

func scanDailyRecord(row pgx.Row) (attendance.DailyRecord, error) {
	var (
		rec  attendance.DailyRecord
		date time.Time
	)
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &date, &rec.ShiftID, &rec.CheckIn, &rec.CheckOut,
		&rec.LateMinutes, &rec.EarlyLeaveMinutes, &rec.EffectiveMinutes, &rec.OvertimeMinutes,
		&rec.Status, &rec.Notes, &rec.IsFinal, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return attendance.DailyRecord{}, err
	}
	rec.Date = fromDB(date)
	return rec, nil
}

// GetByEmployeeDate implements attendance.DailyRecordRepository. Inside a
// transaction the row is locked until commit.
func (r *dailyAttendanceRecordRepository) GetByEmployeeDate(ctx context.Context, employeeID string, date timeutil.Date) (attendance.DailyRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dailyRecordColumns + ` FROM daily_attendance_records WHERE employee_id = $1 AND date = $2`
	if _, inTx := q.(pgx.Tx); inTx {
		query += ` FOR UPDATE`
	}

	rec, err := scanDailyRecord(q.QueryRow(ctx, query, employeeID, dateArg(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.DailyRecord{}, attendance.ErrDailyRecordNotFound
		}
		return attendance.DailyRecord{}, fmt.Errorf("failed to get daily record for %s on %s: %w", employeeID, date, err)
	}
	return rec, nil
}

// Upsert implements attendance.DailyRecordRepository. A final row is never
// overwritten.
func (r *dailyAttendanceRecordRepository) Upsert(ctx context.Context, rec attendance.DailyRecord) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		INSERT INTO daily_attendance_records (
			id, employee_id, date, shift_id, check_in, check_out, late_minutes, early_leave_minutes,
			effective_minutes, overtime_minutes, status, notes, is_final
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (employee_id, date) DO UPDATE SET
			shift_id = EXCLUDED.shift_id,
			check_in = EXCLUDED.check_in,
			check_out = EXCLUDED.check_out,
			late_minutes = EXCLUDED.late_minutes,
			early_leave_minutes = EXCLUDED.early_leave_minutes,
			effective_minutes = EXCLUDED.effective_minutes,
			overtime_minutes = EXCLUDED.overtime_minutes,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			is_final = EXCLUDED.is_final,
			updated_at = NOW()
		WHERE NOT daily_attendance_records.is_final
	`, rec.ID, rec.EmployeeID, dateArg(rec.Date), rec.ShiftID, rec.CheckIn, rec.CheckOut,
		rec.LateMinutes, rec.EarlyLeaveMinutes, rec.EffectiveMinutes, rec.OvertimeMinutes,
		rec.Status, rec.Notes, rec.IsFinal)
	if err != nil {
		return fmt.Errorf("failed to upsert daily record %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordFinalized
	}
	return nil
}

// ListBetween implements attendance.DailyRecordRepository.
func (r *dailyAttendanceRecordRepository) ListBetween(ctx context.Context, from, to timeutil.Date) ([]attendance.DailyRecord, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+dailyRecordColumns+`
		FROM daily_attendance_records
		WHERE date BETWEEN $1 AND $2
		ORDER BY employee_id, date
	`, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list daily records: %w", err)
	}
	defer rows.Close()

	var out []attendance.DailyRecord
	for rows.Next() {
		rec, err := scanDailyRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetFinal implements attendance.DailyRecordRepository.
func (r *dailyAttendanceRecordRepository) SetFinal(ctx context.Context, employeeID string, from, to timeutil.Date) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE daily_attendance_records
		SET is_final = TRUE, updated_at = NOW()
		WHERE employee_id = $1 AND date BETWEEN $2 AND $3 AND NOT is_final
	`, employeeID, dateArg(from), dateArg(to))
	if err != nil {
		return 0, fmt.Errorf("failed to finalize daily records for %s: %w", employeeID, err)
	}
	return tag.RowsAffected(), nil
}
