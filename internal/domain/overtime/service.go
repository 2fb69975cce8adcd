package overtime

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

type Service interface {
	AggregateMonth(ctx context.Context, req AggregateMonthRequest) (AggregateResult, error)
	ListSummaries(ctx context.Context, month timeutil.Date) ([]SummaryResponse, error)
	GetSummary(ctx context.Context, employeeID string, month timeutil.Date) (SummaryResponse, error)
}
