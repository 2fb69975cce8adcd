package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

const (
	JobReconcileYesterday = "reconcile_yesterday"
	JobGenerateNextMonth  = "generate_next_month_shift_days"
	JobAggregateLastMonth = "aggregate_last_month_overtime"
)

// EngineJobs drives the periodic engine batches. Each job is checked on
// every tick and runs at most once per local date, at its configured hour.
type EngineJobs struct {
	attendanceSvc attendance.Service
	shiftSvc      shift.Service
	overtimeSvc   overtime.Service
	cfg           config.CronConfig
	loc           *time.Location
	now           func() time.Time

	mu      sync.Mutex
	lastRun map[string]timeutil.Date
}

func NewEngineJobs(
	attendanceSvc attendance.Service,
	shiftSvc shift.Service,
	overtimeSvc overtime.Service,
	cfg config.CronConfig,
	loc *time.Location,
) *EngineJobs {
	return &EngineJobs{
		attendanceSvc: attendanceSvc,
		shiftSvc:      shiftSvc,
		overtimeSvc:   overtimeSvc,
		cfg:           cfg,
		loc:           loc,
		now:           time.Now,
		lastRun:       make(map[string]timeutil.Date),
	}
}

func (j *EngineJobs) RegisterJobs(scheduler *Scheduler) {
	if j.cfg.ReconcileEnabled {
		scheduler.AddJob(JobReconcileYesterday, j.cfg.CheckInterval, j.ReconcileYesterday)
	}
	if j.cfg.GenerateEnabled {
		scheduler.AddJob(JobGenerateNextMonth, j.cfg.CheckInterval, j.GenerateNextMonth)
	}
	if j.cfg.AggregateEnabled {
		scheduler.AddJob(JobAggregateLastMonth, j.cfg.CheckInterval, j.AggregateLastMonth)
	}
}

// due reports whether job should run now. It returns the local date the
// run belongs to.
func (j *EngineJobs) due(job string, hour int, monthly bool) (timeutil.Date, bool) {
	now := j.now().In(j.loc)
	today := timeutil.DateOf(now)
	if now.Hour() != hour || (monthly && today.Day() != 1) {
		return today, false
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	last, ok := j.lastRun[job]
	return today, !ok || !last.Equal(today)
}

func (j *EngineJobs) markDone(job string, d timeutil.Date) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRun[job] = d
}

func (j *EngineJobs) ReconcileYesterday(ctx context.Context) error {
	today, ok := j.due(JobReconcileYesterday, j.cfg.ReconcileHour, false)
	if !ok {
		return nil
	}
	yesterday := today.AddDays(-1)

	if j.cfg.SkipWeekends && yesterday.IsWeekend() {
		slog.Info("Cron: Weekend skipped for reconciliation", "date", yesterday.String())
		j.markDone(JobReconcileYesterday, today)
		return nil
	}

	slog.Info("Cron: Starting reconciliation job", "date", yesterday.String())
	result, err := j.attendanceSvc.ReconcileDay(ctx, attendance.ReconcileDayRequest{Date: yesterday})
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", yesterday, err)
	}
	j.markDone(JobReconcileYesterday, today)

	if !result.Success {
		slog.Warn("Cron: Reconciliation finished with errors",
			"date", yesterday.String(),
			"written", result.RecordsWritten,
			"errors", len(result.Errors),
		)
	}
	return nil
}

func (j *EngineJobs) GenerateNextMonth(ctx context.Context) error {
	today, ok := j.due(JobGenerateNextMonth, j.cfg.GenerateHour, true)
	if !ok {
		return nil
	}
	start := timeutil.StartOfMonth(today).AddMonths(1)
	end := timeutil.EndOfMonth(start)

	slog.Info("Cron: Starting shift day generation", "start_date", start.String(), "end_date", end.String())
	result, err := j.shiftSvc.GenerateShiftDays(ctx, shift.GenerateShiftDaysRequest{
		StartDate: start,
		EndDate:   end,
		Mode:      shift.ModeSkip,
	})
	if err != nil {
		return fmt.Errorf("generate %s: %w", start.MonthKey(), err)
	}
	j.markDone(JobGenerateNextMonth, today)

	if !result.Success {
		slog.Warn("Cron: Shift day generation finished with errors",
			"month", start.MonthKey(),
			"created", result.RowsCreated,
			"errors", len(result.Errors),
		)
	}
	return nil
}

func (j *EngineJobs) AggregateLastMonth(ctx context.Context) error {
	today, ok := j.due(JobAggregateLastMonth, j.cfg.AggregateHour, true)
	if !ok {
		return nil
	}
	month := timeutil.StartOfMonth(today).AddMonths(-1)

	slog.Info("Cron: Starting overtime aggregation", "period_month", month.String())
	result, err := j.overtimeSvc.AggregateMonth(ctx, overtime.AggregateMonthRequest{PeriodMonth: month})
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", month.MonthKey(), err)
	}
	j.markDone(JobAggregateLastMonth, today)

	if !result.Success {
		slog.Warn("Cron: Overtime aggregation rolled back",
			"period_month", month.String(),
			"failed", result.Failed,
		)
	}
	return nil
}
