package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

type RawLogRepository interface {
	Create(ctx context.Context, log RawLog) (RawLog, error)
	// ListBetween returns logs with from <= timestamp < to, ordered by timestamp.
	ListBetween(ctx context.Context, from, to time.Time) ([]RawLog, error)
	ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]RawLog, error)
}

type DailyRecordRepository interface {
	GetByEmployeeDate(ctx context.Context, employeeID string, date timeutil.Date) (DailyRecord, error)
	// Upsert writes rec keyed on (employee, date).
	Upsert(ctx context.Context, rec DailyRecord) error
	// ListBetween returns records with from <= date <= to.
	ListBetween(ctx context.Context, from, to timeutil.Date) ([]DailyRecord, error)
	SetFinal(ctx context.Context, employeeID string, from, to timeutil.Date) (int64, error)
}
