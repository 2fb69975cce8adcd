package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", validator.ValidationErrors{{Field: "date", Message: "date is required"}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"wrapped validation", fmt.Errorf("generate: %w", validator.ValidationErrors{{Field: "end_date", Message: "too long"}}), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"invalid pattern", shift.ErrInvalidRotationPattern, http.StatusBadRequest, "BAD_REQUEST"},
		{"not found", shift.ErrShiftNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", fmt.Errorf("%w: a1", shift.ErrOverlappingAssignment), http.StatusConflict, "CONFLICT"},
		{"finalized", attendance.ErrRecordFinalized, http.StatusConflict, "FINALIZED_RECORD"},
		{"cancelled", fmt.Errorf("reconcile: %w", context.Canceled), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"persistence", batch.Persistence("upsert", errors.New("connection reset")), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			HandleError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleError(rec, validator.ValidationErrors{
		{Field: "start_date", Message: "start_date is required"},
		{Field: "mode", Message: "mode must be one of: skip, overwrite, error"},
	})

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"start_date": "start_date is required",
		"mode":       "mode must be one of: skip, overwrite, error",
	}, body.Error.Details)
}
