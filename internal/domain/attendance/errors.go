package attendance

import "github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"

var (
	ErrDailyRecordNotFound = batch.NewError(batch.KindNotFound, "daily attendance record not found")
	ErrRecordFinalized     = batch.NewError(batch.KindFinalizedRecordConflict, "daily attendance record is final and cannot be changed")
	ErrRawLogNotFound      = batch.NewError(batch.KindNotFound, "attendance log not found")
)
