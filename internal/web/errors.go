package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers call respondError(w, r, err, status). The error is wrapped via
// core.NewUserError, logged with the request id, and rendered as JSON, an
// HTMX fragment, or plain text depending on the request.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/ats-export/internal/ats"
	"github.com/JonMunkholm/ats-export/internal/core"
	"github.com/JonMunkholm/ats-export/internal/export"
	"github.com/JonMunkholm/ats-export/internal/web/components"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
	// Detail is the upstream cause of a collection failure, verbatim.
	Detail string `json:"detail,omitempty"`
}

// respondError logs the technical error server-side and returns a
// user-friendly message in the format the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	ue := core.NewUserError(err)

	// Errors without a specific mapping are unexpected whatever the status.
	level := slog.LevelError
	if statusCode < http.StatusInternalServerError && core.IsUserFacing(err) {
		level = slog.LevelWarn
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", ue.User.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, ue, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, ue, statusCode)
	default:
		respondErrorText(w, ue, statusCode)
	}
}

// statusFor picks the HTTP status for an export or service error.
func statusFor(err error) int {
	var (
		mb *http.MaxBytesError
		uc *export.UnknownColumnError
		ce *export.CollectionError
		se *ats.StatusError
	)
	switch {
	case errors.As(err, &mb):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, core.ErrTooManyExports), errors.Is(err, core.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, export.ErrEmptyResult):
		return http.StatusNotFound
	case errors.As(err, &uc),
		errors.Is(err, core.ErrInvalidRequest),
		errors.Is(err, export.ErrNoColumns),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrUnknownMode),
		errors.Is(err, export.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.As(err, &ce), errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondErrorJSON(w http.ResponseWriter, ue *core.UserError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   ue.User.Message,
		Message: ue.User.Message,
		Action:  ue.User.Action,
		Code:    ue.User.Code,
		Detail:  ue.Detail,
	})
}

func respondErrorText(w http.ResponseWriter, ue *core.UserError, statusCode int) {
	text := core.FormatUserError(ue.Technical)
	if ue.Detail != "" {
		text += "\n" + ue.Detail
	}
	http.Error(w, text, statusCode)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, ue *core.UserError, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	alert := components.ErrorAlert(components.ErrorAlertData{
		Message: ue.User.Message,
		Action:  ue.User.Action,
		Code:    ue.User.Code,
		Detail:  ue.Detail,
	})
	if err := alert.Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
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
