package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// decodeJSON decodes the request body into v. It returns false after
// writing a 400 response when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body", map[string]string{"body": err.Error()})
		return false
	}
	return true
}

// dateParams reads YYYY-MM-DD values from the query string. Missing
// values stay zero so the request Validate reports them.
func dateParams(r *http.Request, names ...string) ([]timeutil.Date, error) {
	var errs validator.ValidationErrors
	out := make([]timeutil.Date, len(names))
	for i, name := range names {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: name, Message: name + " must be a date in YYYY-MM-DD format"})
			continue
		}
		out[i] = d
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// monthParam accepts either YYYY-MM or a full date inside the month.
func monthParam(raw string) (timeutil.Date, error) {
	if len(raw) == len("2006-01") {
		raw += "-01"
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return timeutil.Date{}, validator.ValidationErrors{{Field: "month", Message: "month must be YYYY-MM or YYYY-MM-DD"}}
	}
	return timeutil.StartOfMonth(d), nil
}
