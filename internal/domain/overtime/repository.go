package overtime

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

type SummaryRepository interface {
	// Upsert writes s keyed on (employee, period month).
	Upsert(ctx context.Context, s Summary) error
	GetByEmployeeMonth(ctx context.Context, employeeID string, month timeutil.Date) (Summary, error)
	ListByMonth(ctx context.Context, month timeutil.Date) ([]Summary, error)
}
