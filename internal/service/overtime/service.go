package overtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

const tableSummaries = "monthly_overtime_summaries"

// errUnitsFailed aborts the month transaction after every unit has run.
var errUnitsFailed = errors.New("one or more employees failed")

type ServiceImpl struct {
	tx        database.Transactor
	records   attendance.DailyRecordRepository
	summaries overtime.SummaryRepository
	audit     audit.Sink
	locker    lock.Locker
	publisher events.Publisher
}

func NewOvertimeService(
	tx database.Transactor,
	recordRepo attendance.DailyRecordRepository,
	summaryRepo overtime.SummaryRepository,
	auditSink audit.Sink,
	locker lock.Locker,
	publisher events.Publisher,
) *ServiceImpl {
	return &ServiceImpl{
		tx:        tx,
		records:   recordRepo,
		summaries: summaryRepo,
		audit:     auditSink,
		locker:    locker,
		publisher: publisher,
	}
}

// AggregateMonth implements overtime.Service.
func (s *ServiceImpl) AggregateMonth(ctx context.Context, req overtime.AggregateMonthRequest) (overtime.AggregateResult, error) {
	if err := req.Validate(); err != nil {
		return overtime.AggregateResult{}, err
	}
	month := req.PeriodMonth

	release, err := s.locker.Lock(ctx, lock.MonthKey(month.MonthKey()))
	if err != nil {
		return overtime.AggregateResult{}, batch.Persistence("lock overtime month", err)
	}
	defer release()

	var (
		errs   batch.Collector
		result = overtime.AggregateResult{PeriodMonth: month}
	)

	err = s.tx.WithinSerializableTransaction(ctx, func(ctx context.Context) error {
		records, err := s.records.ListBetween(ctx, month, timeutil.EndOfMonth(month))
		if err != nil {
			return batch.Persistence("list daily records", err)
		}

		byEmployee := make(map[string][]attendance.DailyRecord)
		for _, r := range records {
			byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
		}
		employees := make([]string, 0, len(byEmployee))
		for id := range byEmployee {
			employees = append(employees, id)
		}
		slices.Sort(employees)

		result.EmployeesTotal = len(employees)
		slog.Info("Overtime aggregation started", "period_month", month.String(), "employees", len(employees))

		for _, emp := range employees {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum := Fold(emp, month, byEmployee[emp])
			// Each employee runs in a savepoint so later units still execute
			// and report after an earlier failure.
			if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error { return s.writeSummary(ctx, sum) }); err != nil {
				slog.Error("Failed to aggregate employee", "employee_id", emp, "period_month", month.String(), "error", err)
				errs.AddErr(emp, err)
				result.Failed++
				continue
			}
			result.Succeeded++
		}

		if errs.Len() > 0 {
			return errUnitsFailed
		}
		return nil
	})

	result.Errors = errs.Errors()
	switch {
	case err == nil:
		result.Success = true
	case errors.Is(err, errUnitsFailed):
		slog.Warn("Overtime aggregation rolled back",
			"period_month", month.String(),
			"would_have_succeeded", result.Succeeded,
			"failed", result.Failed,
		)
	default:
		return result, fmt.Errorf("aggregate %s: %w", month.MonthKey(), err)
	}

	slog.Info("Overtime aggregation finished", "period_month", month.String(), "success", result.Success)
	events.PublishQuietly(ctx, s.publisher, events.NewEvent(events.TypeMonthAggregated, result))
	return result, nil
}

func (s *ServiceImpl) writeSummary(ctx context.Context, sum overtime.Summary) error {
	existing, err := s.summaries.GetByEmployeeMonth(ctx, sum.EmployeeID, sum.PeriodMonth)
	found := err == nil
	if err != nil && !errors.Is(err, overtime.ErrSummaryNotFound) {
		return batch.Persistence("get overtime summary", err)
	}

	if err := s.summaries.Upsert(ctx, sum); err != nil {
		return batch.Persistence("upsert overtime summary", err)
	}

	entry := audit.Entry{Table: tableSummaries, RecordID: sum.ID, Action: audit.ActionCreate, After: sum}
	if found {
		entry.Action = audit.ActionUpdate
		entry.Before = existing
	}
	return batch.Persistence("record audit", s.audit.Record(ctx, entry))
}

// ListSummaries implements overtime.Service.
func (s *ServiceImpl) ListSummaries(ctx context.Context, month timeutil.Date) ([]overtime.SummaryResponse, error) {
	sums, err := s.summaries.ListByMonth(ctx, timeutil.StartOfMonth(month))
	if err != nil {
		return nil, batch.Persistence("list overtime summaries", err)
	}
	out := make([]overtime.SummaryResponse, 0, len(sums))
	for _, sum := range sums {
		out = append(out, overtime.ToSummaryResponse(sum))
	}
	return out, nil
}

// GetSummary implements overtime.Service.
func (s *ServiceImpl) GetSummary(ctx context.Context, employeeID string, month timeutil.Date) (overtime.SummaryResponse, error) {
	sum, err := s.summaries.GetByEmployeeMonth(ctx, employeeID, timeutil.StartOfMonth(month))
	if err != nil {
		return overtime.SummaryResponse{}, batch.Persistence("get overtime summary", err)
	}
	return overtime.ToSummaryResponse(sum), nil
}

var _ overtime.Service = (*ServiceImpl)(nil)
