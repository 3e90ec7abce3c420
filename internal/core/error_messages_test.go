package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/JonMunkholm/ats-export/internal/ats"
	"github.com/JonMunkholm/ats-export/internal/export"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"empty result", export.ErrEmptyResult, "EXP001"},
		{"wrapped empty result", fmt.Errorf("export abc: %w", export.ErrEmptyResult), "EXP001"},
		{"collection failure", &export.CollectionError{Page: 1, Err: errors.New("unexpected EOF")}, "EXP002"},
		{"serialization failure", &export.SerializationError{Err: errors.New("boom")}, "EXP003"},
		{"busy", ErrTooManyExports, "EXP004"},
		{"unknown column", &export.UnknownColumnError{Key: "x"}, "COL001"},
		{"unknown column inside serialization", &export.SerializationError{Err: &export.UnknownColumnError{Key: "x"}}, "COL001"},
		{"no columns", &export.SerializationError{Err: export.ErrNoColumns}, "COL002"},
		{"format", fmt.Errorf("%w: %q", export.ErrUnsupportedFormat, "pdf"), "FMT001"},
		{"mode", fmt.Errorf("%w: %q", export.ErrUnknownMode, "full"), "FMT002"},
		{"preset", fmt.Errorf("%w: x", export.ErrUnknownPreset), "PRE001"},
		{"history disabled", ErrHistoryDisabled, "HIS001"},
		{"cancelled", context.Canceled, "REQ001"},
		{"invalid request", fmt.Errorf("%w: unexpected EOF", ErrInvalidRequest), "REQ003"},
		{"body too large", fmt.Errorf("%w: %w", ErrInvalidRequest, &http.MaxBytesError{Limit: 10}), "REQ004"},
		{"timeout during collection", &export.CollectionError{Page: 1, Err: context.DeadlineExceeded}, "REQ002"},
		{"connection refused", &export.CollectionError{Page: 1, Err: errors.New("dial tcp 10.0.0.1:443: connect: connection refused")}, "UPS001"},
		{"unknown host", errors.New("dial tcp: lookup ats.internal: no such host"), "UPS001"},
		{"unauthorized", &export.CollectionError{Page: 1, Err: &ats.StatusError{StatusCode: 401}}, "UPS002"},
		{"forbidden", &ats.StatusError{StatusCode: 403}, "UPS002"},
		{"not found", &ats.StatusError{StatusCode: 404}, "UPS003"},
		{"server error", &export.CollectionError{Page: 1, Err: &ats.StatusError{StatusCode: 502}}, "UPS004"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error", errors.New("something odd happened"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) = %+v, want message and action", tt.err, got)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(export.ErrEmptyResult)
	want := "No candidates match the selected filters (Code: EXP001). Widen the filters and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{export.ErrEmptyResult, true},
		{ErrTooManyExports, true},
		{errors.New("nil pointer dereference"), false},
	}

	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}

	tech := &export.CollectionError{Page: 1, Err: errors.New("EOF")}
	ue := NewUserError(tech)

	if ue.User.Code != "EXP002" {
		t.Errorf("Code = %q, want EXP002", ue.User.Code)
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q, want user message", ue.Error())
	}
	if !errors.Is(ue, tech) {
		t.Error("UserError should unwrap to the technical error")
	}
	if strings.Contains(ue.Error(), "EOF") {
		t.Errorf("Error() leaks technical detail: %q", ue.Error())
	}
	if ue.Detail != "EOF" {
		t.Errorf("Detail = %q, want upstream cause", ue.Detail)
	}

	if d := NewUserError(export.ErrEmptyResult).Detail; d != "" {
		t.Errorf("Detail = %q for a non-collection error, want empty", d)
	}
}
