package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical text and the request ID, then
// mapped via core.MapError to a message, action and code for the client.
// HTMX callers get an HTML fragment, everyone else gets ErrorResponse JSON.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/textclass/internal/core"
	"github.com/JonMunkholm/textclass/internal/logging"
	"github.com/JonMunkholm/textclass/internal/storage"
	"github.com/JonMunkholm/textclass/internal/web/templates"
)

// Request-level errors. Their texts match the patterns in core.MapError.
var (
	errInvalidRequest  = errors.New("invalid request")
	errNoFile          = errors.New("no file provided")
	errFileTooLarge    = errors.New("file too large")
	errTextTooShort    = errors.New("text too short")
	errHistoryDisabled = errors.New("run history is not configured")
	errRateLimited     = errors.New("rate limit exceeded")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by core, storage or
// the handlers themselves.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var urlErr *url.Error

	switch {
	case errors.As(err, &maxBytes),
		errors.Is(err, errFileTooLarge),
		errors.Is(err, storage.ErrObjectTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrNoValidRows),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrFileRead):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, errNoFile),
		errors.Is(err, errTextTooShort),
		errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrTooManyUnits):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyRetrains),
		errors.Is(err, storage.ErrNotConfigured),
		errors.Is(err, errHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, core.ErrShapeMismatch),
		errors.Is(err, core.ErrResponseTooLarge):
		return http.StatusBadGateway
	}

	if _, ok := core.IsServiceError(err); ok {
		return http.StatusBadGateway
	}
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error and writes a user-friendly response
// in the format the caller expects.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error fragment", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
