package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

type summaryRepository struct{ s *Store }

func (s *Store) OvertimeSummaries() overtime.SummaryRepository { return &summaryRepository{s: s} }

func (r *summaryRepository) Upsert(ctx context.Context, sum overtime.Summary) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := monthKey{employeeID: sum.EmployeeID, month: sum.PeriodMonth}
	prev, existed := r.s.summaries[k]
	now := r.s.now()
	if existed {
		sum.CreatedAt = prev.CreatedAt
	} else {
		sum.CreatedAt = now
	}
	sum.UpdatedAt = now
	r.s.summaries[k] = sum

	onRollback(ctx, func() {
		if existed {
			r.s.summaries[k] = prev
		} else {
			delete(r.s.summaries, k)
		}
	})
	return nil
}

func (r *summaryRepository) GetByEmployeeMonth(ctx context.Context, employeeID string, month timeutil.Date) (overtime.Summary, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sum, ok := r.s.summaries[monthKey{employeeID: employeeID, month: timeutil.StartOfMonth(month)}]
	if !ok {
		return overtime.Summary{}, overtime.ErrSummaryNotFound
	}
	return sum, nil
}

func (r *summaryRepository) ListByMonth(ctx context.Context, month timeutil.Date) ([]overtime.Summary, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	month = timeutil.StartOfMonth(month)
	var out []overtime.Summary
	for k, sum := range r.s.summaries {
		if k.month == month {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}
