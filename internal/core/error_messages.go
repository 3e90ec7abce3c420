package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with codes for
// support reference. Users quote the code; support staff look it up here.
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Empty result: No candidates match the selected filters
//	         Action: Widen the filters and try again
//	EXP002 - Collection failed: Could not load candidates from the recruitment API
//	         Action: Please try again in a few moments
//	EXP003 - Serialization failed: The export file could not be built
//	         Action: Please try again or contact support
//	EXP004 - Busy: Too many exports are running
//	         Action: Wait a moment and try again
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Unknown column: A selected column is not available for this export
//	COL002 - No columns: No columns were selected
//
// # Request Errors (FMT, PRE, REQ)
//
//	FMT001 - Unsupported format (only csv and excel are accepted)
//	FMT002 - Unknown export mode (only enhanced and basic are accepted)
//	PRE001 - Unknown preset
//	REQ001 - Request was cancelled
//	REQ002 - Export timed out
//	REQ003 - Malformed export request body
//	REQ004 - Export request body too large
//
// # Upstream Errors (UPS001-UPS099)
//
//	UPS001 - Recruitment API unreachable
//	         Patterns: "connection refused", "no such host", "connection reset"
//	UPS002 - Recruitment API rejected our credentials (HTTP 401/403)
//	UPS003 - Recruitment API resource not found (HTTP 404)
//	UPS004 - Recruitment API error (HTTP 5xx)
//
// # Other
//
//	HIS001  - Export history is not enabled
//	RATE001 - Too many requests
//	ERR000  - Unexpected error; check the logs for the technical error
//
// # Matching
//
// Typed errors (errors.Is / errors.As) are checked first, in table order.
// Remaining errors are matched case-insensitively against text patterns.
// The first match wins.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/ats-export/internal/ats"
	"github.com/JonMunkholm/ats-export/internal/export"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type typedMatch struct {
	match func(error) bool
	msg   UserMessage
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func upstreamStatus(match func(code int) bool) func(error) bool {
	return func(err error) bool {
		var se *ats.StatusError
		return errors.As(err, &se) && match(se.StatusCode)
	}
}

// typedMatches is checked before the text patterns. Order matters: the
// request-level conditions come before the collection failures that wrap them.
var typedMatches = []typedMatch{
	{is(context.Canceled), UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{is(context.DeadlineExceeded), UserMessage{
		Message: "Export timed out",
		Action:  "Narrow the filters to export fewer candidates, or try again later",
		Code:    "REQ002",
	}},
	{func(err error) bool {
		var mbe *http.MaxBytesError
		return errors.As(err, &mbe)
	}, UserMessage{
		Message: "The export request is too large",
		Action:  "Select fewer columns or filter values and try again",
		Code:    "REQ004",
	}},
	{is(ErrInvalidRequest), UserMessage{
		Message: "The export request could not be read",
		Action:  "Check the request body and try again",
		Code:    "REQ003",
	}},
	{is(ErrTooManyExports), UserMessage{
		Message: "Too many exports are running",
		Action:  "Wait a moment and try again",
		Code:    "EXP004",
	}},
	{is(export.ErrEmptyResult), UserMessage{
		Message: "No candidates match the selected filters",
		Action:  "Widen the filters and try again",
		Code:    "EXP001",
	}},
	{is(export.ErrNoColumns), UserMessage{
		Message: "No columns were selected",
		Action:  "Select at least one column to export",
		Code:    "COL002",
	}},
	{func(err error) bool {
		var uc *export.UnknownColumnError
		return errors.As(err, &uc)
	}, UserMessage{
		Message: "A selected column is not available for this export",
		Action:  "Refresh the page and select columns again",
		Code:    "COL001",
	}},
	{is(export.ErrUnsupportedFormat), UserMessage{
		Message: "Unsupported export format",
		Action:  "Choose csv or excel",
		Code:    "FMT001",
	}},
	{is(export.ErrUnknownMode), UserMessage{
		Message: "Unknown export mode",
		Action:  "Choose enhanced or basic",
		Code:    "FMT002",
	}},
	{is(export.ErrUnknownPreset), UserMessage{
		Message: "Unknown column preset",
		Action:  "Pick one of the listed presets",
		Code:    "PRE001",
	}},
	{is(ErrHistoryDisabled), UserMessage{
		Message: "Export history is not enabled",
		Action:  "Configure DATABASE_URL to keep export history",
		Code:    "HIS001",
	}},
	{upstreamStatus(func(c int) bool { return c == http.StatusUnauthorized || c == http.StatusForbidden }), UserMessage{
		Message: "The recruitment API rejected our credentials",
		Action:  "Check ATS_API_TOKEN and try again",
		Code:    "UPS002",
	}},
	{upstreamStatus(func(c int) bool { return c == http.StatusNotFound }), UserMessage{
		Message: "The recruitment API could not find the requested data",
		Action:  "Check ATS_API_URL points at the admin API",
		Code:    "UPS003",
	}},
	{upstreamStatus(func(c int) bool { return c >= 500 }), UserMessage{
		Message: "The recruitment API returned an error",
		Action:  "Please try again in a few moments",
		Code:    "UPS004",
	}},
	{func(err error) bool {
		var se *export.SerializationError
		return errors.As(err, &se)
	}, UserMessage{
		Message: "The export file could not be built",
		Action:  "Please try again or contact support",
		Code:    "EXP003",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var unreachable = UserMessage{
	Message: "The recruitment API is unreachable",
	Action:  "Please try again in a few moments",
	Code:    "UPS001",
}

// errorPatterns maps technical error text (case-insensitive) to messages.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: unreachable},
	{pattern: "no such host", msg: unreachable},
	{pattern: "connection reset", msg: unreachable},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// collectionFailed is used for first-page failures no other entry explains.
var collectionFailed = UserMessage{
	Message: "Could not load candidates from the recruitment API",
	Action:  "Please try again in a few moments",
	Code:    "EXP002",
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(export.ErrEmptyResult)
//	// msg.Code == "EXP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, tm := range typedMatches {
		if tm.match(err) {
			return tm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var ce *export.CollectionError
	if errors.As(err, &ce) {
		return collectionFailed
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// Error() returns the user message; Unwrap() returns the technical error.
//
// Detail carries the upstream cause of a collection failure verbatim. It is
// empty for every other error.
type UserError struct {
	Technical error
	User      UserMessage
	Detail    string
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	ue := &UserError{
		Technical: err,
		User:      MapError(err),
	}
	var ce *export.CollectionError
	if errors.As(err, &ce) && ce.Err != nil {
		ue.Detail = ce.Err.Error()
	}
	return ue
}
