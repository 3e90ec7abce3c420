package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/ats-export/internal/core"
	"github.com/JonMunkholm/ats-export/internal/export"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleExport(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{})

	rec := serve(s, jsonRequest(http.MethodPost, "/api/export",
		`{"columns":["unique_code","full_name","japan_experience_months"]}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	want := "Unique Code,FULL NAME,JAPAN EXPERIENCE MONTHS\nBUD42,Budi Santoso,24\nALX7,Al,"
	if rec.Body.String() != want {
		t.Errorf("body =\n%s\nwant\n%s", rec.Body.String(), want)
	}

	h := rec.Header()
	if h.Get("Content-Type") != core.ContentTypeCSV {
		t.Errorf("Content-Type = %q", h.Get("Content-Type"))
	}
	wantDisposition := "attachment; filename=" + core.FileName(export.ModeEnhanced, time.Now())
	if h.Get("Content-Disposition") != wantDisposition {
		t.Errorf("Content-Disposition = %q, want %q", h.Get("Content-Disposition"), wantDisposition)
	}
	if h.Get("X-Export-ID") == "" {
		t.Error("missing X-Export-ID")
	}
	if h.Get("X-Export-Rows") != "2" {
		t.Errorf("X-Export-Rows = %q, want 2", h.Get("X-Export-Rows"))
	}
	if h.Get("X-Export-Enrich-Failures") != "1" {
		t.Errorf("X-Export-Enrich-Failures = %q, want 1", h.Get("X-Export-Enrich-Failures"))
	}
	if h.Get("X-Export-Partial") != "false" {
		t.Errorf("X-Export-Partial = %q, want false", h.Get("X-Export-Partial"))
	}
}

func TestHandleExport_Form(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{})

	form := url.Values{
		"mode":    {"basic"},
		"columns": {"full_name", " ", "skills"},
		"age_min": {"21"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "FULL NAME,SKILLS\nBudi Santoso,Welding\n") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "ats_export_2") {
		t.Errorf("basic file name expected, got %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestHandleExport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		src        *fakeSource
		body       string
		wantStatus int
		wantCode   string
	}{
		{"empty result", &fakeSource{}, `{}`, http.StatusNotFound, "EXP001"},
		{"collection failure", &fakeSource{listErr: errors.New("unexpected EOF")}, `{}`, http.StatusBadGateway, "EXP002"},
		{"unknown column", newFakeSource(), `{"columns":["shoe_size"]}`, http.StatusBadRequest, "COL001"},
		{"unknown preset", newFakeSource(), `{"preset":"nope"}`, http.StatusBadRequest, "PRE001"},
		{"bad format", newFakeSource(), `{"format":"xlsx"}`, http.StatusBadRequest, "FMT001"},
		{"bad mode", newFakeSource(), `{"mode":"full"}`, http.StatusBadRequest, "FMT002"},
		{"malformed json", newFakeSource(), `{"columns":`, http.StatusBadRequest, "REQ003"},
		{"unknown field", newFakeSource(), `{"colums":["full_name"]}`, http.StatusBadRequest, "REQ003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.src, testConfig(), core.Options{})

			rec := serve(s, jsonRequest(http.MethodPost, "/api/export", tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleExport_CollectionDetail(t *testing.T) {
	const cause = "upstream said: maintenance window until 10:00"
	s := newTestServer(t, &fakeSource{listErr: errors.New(cause)}, testConfig(), core.Options{})

	rec := serve(s, jsonRequest(http.MethodPost, "/api/export", `{}`))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502; body %s", rec.Code, rec.Body.String())
	}
	resp := decodeError(t, rec)
	if resp.Code != "EXP002" {
		t.Errorf("code = %q, want EXP002", resp.Code)
	}
	if resp.Detail != cause {
		t.Errorf("detail = %q, want %q", resp.Detail, cause)
	}
	if strings.Contains(resp.Message, cause) {
		t.Errorf("message leaks upstream cause: %q", resp.Message)
	}

	// HTMX requests get the cause in the error fragment.
	req := jsonRequest(http.MethodPost, "/api/export", `{}`)
	req.Header.Set("HX-Request", "true")
	rec = serve(s, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("htmx status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), cause) {
		t.Errorf("fragment = %q, want it to contain %q", rec.Body.String(), cause)
	}
}

func TestHandleExport_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{})

	body := `{"columns":["` + strings.Repeat("a", MaxRequestBodySize) + `"]}`
	rec := serve(s, jsonRequest(http.MethodPost, "/api/export", body))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "REQ004" {
		t.Errorf("code = %q, want REQ004", resp.Code)
	}
}

func TestHandleExport_HTMXError(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{})

	req := jsonRequest(http.MethodPost, "/api/export", `{"mode":"full"}`)
	req.Header.Set("HX-Request", "true")

	rec := serve(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q, want text/html", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Code: FMT002") {
		t.Errorf("fragment = %s", rec.Body.String())
	}
}

func TestHandleExport_Busy(t *testing.T) {
	src := newFakeSource()
	src.started = make(chan struct{})
	src.release = make(chan struct{})
	s := newTestServer(t, src, testConfig(), core.Options{MaxConcurrent: 1})

	first := make(chan *httptest.ResponseRecorder)
	go func() {
		first <- serve(s, jsonRequest(http.MethodPost, "/api/export", `{}`))
	}()

	select {
	case <-src.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first export never started")
	}

	rec := serve(s, jsonRequest(http.MethodPost, "/api/export", `{}`))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	if resp := decodeError(t, rec); resp.Code != "EXP004" {
		t.Errorf("code = %q, want EXP004", resp.Code)
	}

	close(src.release)
	if rec := <-first; rec.Code != http.StatusOK {
		t.Errorf("first export status = %d, want 200", rec.Code)
	}
}

func TestHandleColumns(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{})

	tests := []struct {
		query     string
		wantMode  export.Mode
		wantCount int
	}{
		{"", export.ModeEnhanced, len(export.Columns(export.ModeEnhanced))},
		{"?mode=basic", export.ModeBasic, 11},
	}

	for _, tt := range tests {
		t.Run(string(tt.wantMode), func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/export/columns"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp ColumnsResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Mode != tt.wantMode || len(resp.Columns) != tt.wantCount {
				t.Errorf("mode/count = %s/%d, want %s/%d", resp.Mode, len(resp.Columns), tt.wantMode, tt.wantCount)
			}
		})
	}

	t.Run("bad mode", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/export/columns?mode=full", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if resp := decodeError(t, rec); resp.Code != "FMT002" {
			t.Errorf("code = %q, want FMT002", resp.Code)
		}
	})
}

func TestHandlePresets(t *testing.T) {
	presets := export.Presets{"contact": {"full_name", "email"}}
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{Presets: presets})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/export/presets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Presets export.Presets `json:"presets"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp.Presets["contact"]; len(got) != 2 || got[1] != "email" {
		t.Errorf("presets = %v", resp.Presets)
	}
}

func TestHandleHistory_Disabled(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/export/history?limit=5", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "HIS001" {
		t.Errorf("code = %q, want HIS001", resp.Code)
	}
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{
		Presets: export.Presets{"contact": {"full_name"}},
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<legend>Verification</legend>", `value="contact"`, "Unique Code"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/?mode=basic", nil))
	if strings.Contains(rec.Body.String(), `value="email"`) {
		t.Error("basic page offers a detail-only column")
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/?mode=full", nil))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "FMT002") {
		t.Errorf("bad mode: status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestHandleExportStatus(t *testing.T) {
	s := newTestServer(t, newFakeSource(), testConfig(), core.Options{MaxConcurrent: 4})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/export/status", nil))
	var status core.LimiterStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Active != 0 || status.Available != 4 || status.MaxConcurrent != 4 {
		t.Errorf("status = %+v", status)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty", export.ErrEmptyResult, http.StatusNotFound},
		{"busy", core.ErrTooManyExports, http.StatusServiceUnavailable},
		{"collection", &export.CollectionError{Page: 1, Err: errors.New("boom")}, http.StatusBadGateway},
		{"serialization", &export.SerializationError{Err: errors.New("boom")}, http.StatusInternalServerError},
		{"no columns", export.ErrNoColumns, http.StatusBadRequest},
		{"invalid request", fmt.Errorf("%w: bad json", core.ErrInvalidRequest), http.StatusBadRequest},
		{"body too large", fmt.Errorf("%w: %w", core.ErrInvalidRequest, &http.MaxBytesError{Limit: 1}), http.StatusRequestEntityTooLarge},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExportRequestFromForm(t *testing.T) {
	form := url.Values{
		"japanese_levels": {"N2, ,N3"},
		"age_min":         {"abc"},
		"age_max":         {"40"},
		"preset":          {"contact"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := req.ParseForm(); err != nil {
		t.Fatal(err)
	}

	got := exportRequestFromForm(req)
	if len(got.Filter.JapaneseLevels) != 2 || got.Filter.JapaneseLevels[1] != "N3" {
		t.Errorf("JapaneseLevels = %v", got.Filter.JapaneseLevels)
	}
	if got.Filter.AgeMin != nil {
		t.Errorf("AgeMin = %v, want nil", *got.Filter.AgeMin)
	}
	if got.Filter.AgeMax == nil || *got.Filter.AgeMax != 40 {
		t.Errorf("AgeMax = %v", got.Filter.AgeMax)
	}
	if got.Preset != "contact" || got.Columns != nil {
		t.Errorf("Preset/Columns = %q/%v", got.Preset, got.Columns)
	}
}

func TestRespondErrorText(t *testing.T) {
	err := &export.CollectionError{Page: 1, Err: errors.New("503 Service Unavailable")}

	rec := httptest.NewRecorder()
	respondErrorText(rec, core.NewUserError(err), http.StatusBadGateway)

	body := rec.Body.String()
	if !strings.Contains(body, "(Code: EXP002)") {
		t.Errorf("body = %q, want code", body)
	}
	if !strings.Contains(body, "503 Service Unavailable") {
		t.Errorf("body = %q, want upstream cause", body)
	}
}
