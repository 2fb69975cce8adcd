package attendance

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

type Service interface {
	// Reconciliation
	ReconcileDay(ctx context.Context, req ReconcileDayRequest) (ReconcileResult, error)
	ReconcileEmployee(ctx context.Context, req ReconcileEmployeeRequest) (ReconcileResult, error)

	// Records
	GetDailyRecord(ctx context.Context, employeeID string, date timeutil.Date) (DailyRecordResponse, error)
	FinalizeRecords(ctx context.Context, req FinalizeRequest) (int64, error)

	// Raw logs
	RecordRawLog(ctx context.Context, req RecordRawLogRequest) (RawLogResponse, error)
}
