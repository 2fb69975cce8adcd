package overtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = timeutil.MustParseDate("2025-03-01")

func record(employeeID string, day int, status attendance.Status, late, effective, overtimeMin int) attendance.DailyRecord {
	d := march.AddDays(day - 1)
	return attendance.DailyRecord{
		ID:               attendance.RecordID(employeeID, d),
		EmployeeID:       employeeID,
		Date:             d,
		Status:           status,
		LateMinutes:      late,
		EffectiveMinutes: effective,
		OvertimeMinutes:  overtimeMin,
	}
}

func TestFold(t *testing.T) {
	records := []attendance.DailyRecord{
		record("EMP001", 3, attendance.StatusPresent, 0, 480, 90),
		record("EMP001", 4, attendance.StatusLate, 12, 470, 0),
		record("EMP001", 5, attendance.StatusLateAndEarlyLeave, 30, 400, 0),
		record("EMP001", 6, attendance.StatusAbsent, 0, 0, 0),
		record("EMP001", 7, attendance.StatusLeave, 0, 0, 0),
		record("EMP001", 10, attendance.StatusPresent, 0, 500, 35),
		record("EMP002", 3, attendance.StatusPresent, 0, 480, 600),
		{EmployeeID: "EMP001", Date: timeutil.MustParseDate("2025-04-01"), OvertimeMinutes: 999},
	}

	sum := Fold("EMP001", march.AddDays(14), records)

	assert.Equal(t, "LEM-EMP001-202503", sum.ID)
	assert.Equal(t, march, sum.PeriodMonth)
	assert.True(t, decimal.RequireFromString("2.08").Equal(sum.TotalOvertimeHours), sum.TotalOvertimeHours.String())
	assert.Equal(t, 2, sum.TotalLateDays)
	assert.Equal(t, 42, sum.TotalLateMinutes)
	assert.Equal(t, 2, sum.TotalAbsentDays)
	assert.Equal(t, 4, sum.TotalEffectiveWorkDays)
	assert.Equal(t, 6, sum.TotalDaysRecorded)
}

func TestFold_Empty(t *testing.T) {
	sum := Fold("EMP001", march, nil)

	assert.True(t, sum.TotalOvertimeHours.IsZero())
	assert.Zero(t, sum.TotalDaysRecorded)
}

// failingSummaries fails Upsert for one employee.
type failingSummaries struct {
	overtime.SummaryRepository
	employeeID string
}

func (r failingSummaries) Upsert(ctx context.Context, s overtime.Summary) error {
	if s.EmployeeID == r.employeeID {
		return errors.New("deadlock detected")
	}
	return r.SummaryRepository.Upsert(ctx, s)
}

type fixture struct {
	store    *memory.Store
	recorder *events.Recorder
	svc      *ServiceImpl
}

func newFixture(t *testing.T, wrap func(overtime.SummaryRepository) overtime.SummaryRepository) *fixture {
	t.Helper()
	store := memory.NewStore()
	summaries := store.OvertimeSummaries()
	if wrap != nil {
		summaries = wrap(summaries)
	}
	recorder := &events.Recorder{}
	svc := NewOvertimeService(store.Transactor(), store.DailyRecords(), summaries, store, lock.NewLocalLocker(), recorder)
	return &fixture{store: store, recorder: recorder, svc: svc}
}

func (f *fixture) seed(t *testing.T, employees int) {
	t.Helper()
	for i := 1; i <= employees; i++ {
		emp := fmt.Sprintf("EMP%03d", i)
		for day := 1; day <= 5; day++ {
			rec := record(emp, day, attendance.StatusPresent, 0, 480, 30*i)
			require.NoError(t, f.store.DailyRecords().Upsert(context.Background(), rec))
		}
	}
}

func TestAggregateMonth_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seed(t, 3)

	result, err := f.svc.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: march.AddDays(9)})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, march, result.PeriodMonth)
	assert.Equal(t, 3, result.EmployeesTotal)
	assert.Equal(t, 3, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Errors)

	sums, err := f.svc.ListSummaries(ctx, march)
	require.NoError(t, err)
	require.Len(t, sums, 3)
	// EMP002: 5 days x 60 min
	assert.True(t, decimal.NewFromInt(5).Equal(sums[1].TotalOvertimeHours))

	published := f.recorder.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeMonthAggregated, published[0].Type)
}

func TestAggregateMonth_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seed(t, 2)

	_, err := f.svc.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: march})
	require.NoError(t, err)
	first, err := f.svc.GetSummary(ctx, "EMP002", march)
	require.NoError(t, err)

	_, err = f.svc.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: march})
	require.NoError(t, err)
	second, err := f.svc.GetSummary(ctx, "EMP002", march)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	sums, err := f.svc.ListSummaries(ctx, march)
	require.NoError(t, err)
	assert.Len(t, sums, 2)
}

func TestAggregateMonth_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(r overtime.SummaryRepository) overtime.SummaryRepository {
		return failingSummaries{SummaryRepository: r, employeeID: "EMP003"}
	})
	f.seed(t, 5)
	audits := len(f.store.AuditEntries())

	result, err := f.svc.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: march})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 5, result.EmployeesTotal)
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "EMP003", result.Errors[0].EmployeeID)
	assert.Equal(t, batch.KindPersistence, result.Errors[0].Kind)

	sums, err := f.svc.ListSummaries(ctx, march)
	require.NoError(t, err)
	assert.Empty(t, sums)
	assert.Len(t, f.store.AuditEntries(), audits)
}

func TestAggregateMonth_FailureKeepsPreviousSummaries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	healthy := NewOvertimeService(store.Transactor(), store.DailyRecords(), store.OvertimeSummaries(), store, lock.NewLocalLocker(), nil)
	broken := NewOvertimeService(store.Transactor(), store.DailyRecords(),
		failingSummaries{SummaryRepository: store.OvertimeSummaries(), employeeID: "EMP002"}, store, lock.NewLocalLocker(), nil)

	for _, rec := range []attendance.DailyRecord{
		record("EMP001", 1, attendance.StatusPresent, 0, 480, 60),
		record("EMP002", 1, attendance.StatusPresent, 0, 480, 60),
	} {
		require.NoError(t, store.DailyRecords().Upsert(ctx, rec))
	}
	_, err := healthy.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: march})
	require.NoError(t, err)
	before, err := healthy.ListSummaries(ctx, march)
	require.NoError(t, err)

	require.NoError(t, store.DailyRecords().Upsert(ctx, record("EMP001", 2, attendance.StatusLate, 20, 460, 0)))
	result, err := broken.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: march})
	require.NoError(t, err)
	assert.False(t, result.Success)

	after, err := healthy.ListSummaries(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAggregateMonth_CancelledContext(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: march})
	require.ErrorIs(t, err, context.Canceled)

	sums, err := f.svc.ListSummaries(context.Background(), march)
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestGetSummary_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetSummary(context.Background(), "EMP404", march)

	require.ErrorIs(t, err, overtime.ErrSummaryNotFound)
	assert.Equal(t, batch.KindNotFound, batch.Classify(err))
}
