package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with full technical detail and the request id, then
// returned to the client as core.MapError's user message. Rule rejections
// also list the offending columns so a form can highlight them.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/dbadmin/internal/core"
	"github.com/JonMunkholm/dbadmin/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error     string       `json:"error"`
	Message   string       `json:"message"`
	Action    string       `json:"action,omitempty"`
	Code      string       `json:"code"`
	Retryable bool         `json:"retryable"`
	Fields    []FieldError `json:"fields,omitempty"`
}

// FieldError is one rejected column.
type FieldError struct {
	Column string `json:"column"`
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case len(core.ValidationErrors(err)) > 0,
		errors.Is(err, core.ErrInvalidSelection),
		errors.Is(err, core.ErrRowShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotConfirmed):
		return http.StatusPreconditionFailed
	case errors.Is(err, core.ErrNoMatch), errors.Is(err, core.ErrStorage):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing JSON form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", userMsg.Code,
	)
	if status >= http.StatusInternalServerError {
		log.Error("request error", "error", err.Error())
	} else {
		log.Warn("request rejected", "error", err.Error())
	}

	resp := ErrorResponse{
		Error:     userMsg.Message,
		Message:   userMsg.Message,
		Action:    userMsg.Action,
		Code:      userMsg.Code,
		Retryable: core.IsRetryable(err),
	}
	for _, ve := range core.ValidationErrors(err) {
		resp.Fields = append(resp.Fields, FieldError{
			Column: ve.Column,
			Rule:   ve.Rule,
			Reason: ve.Reason,
			Value:  ve.Value,
		})
	}
	writeJSON(w, r, status, resp)
}

// writeError writes a plain request error that did not come from the engine.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", message,
	)
	writeJSON(w, r, status, ErrorResponse{Error: message, Message: message, Code: http.StatusText(status)})
}
