package localapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/tenderbell"
	"github.com/dmitrymomot/tenderbell/pkg/api"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data any, meta map[string]any) {
	writeJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

func fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Response{Error: &ErrorDetail{Code: code, Message: message}})
}

// failErr maps domain errors to a status and a stable code.
func failErr(w http.ResponseWriter, err error) {
	var httpErr *api.HTTPError
	switch {
	case errors.Is(err, notifications.ErrNoScope):
		fail(w, http.StatusConflict, "no_scope", err.Error())
	case errors.Is(err, notifications.ErrInvalidTimeOfDay):
		fail(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.Is(err, tenderbell.ErrNoAPI):
		fail(w, http.StatusNotImplemented, "not_configured", err.Error())
	case errors.As(err, &httpErr):
		fail(w, httpErr.StatusCode, "upstream_error", httpErr.Message)
	default:
		fail(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
