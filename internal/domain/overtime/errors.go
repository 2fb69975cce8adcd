package overtime

import "github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"

var (
	ErrSummaryNotFound = batch.NewError(batch.KindNotFound, "monthly overtime summary not found")
)
