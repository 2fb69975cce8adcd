package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		ServiceUnavailable(w, "Request cancelled before the batch completed")
		return
	}

	switch batch.Classify(err) {
	case batch.KindValidation:
		BadRequest(w, err.Error(), nil)
	case batch.KindNotFound:
		NotFound(w, err.Error())
	case batch.KindConflict:
		Conflict(w, err.Error())
	case batch.KindFinalizedRecordConflict:
		writeError(w, http.StatusConflict, "FINALIZED_RECORD", err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
