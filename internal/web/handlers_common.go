package web

// Shared request parsing used by the export handlers.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/ats-export/internal/core"
	"github.com/JonMunkholm/ats-export/internal/export"
)

// MaxRequestBodySize caps export request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseExportRequest reads an export request from a JSON body or a
// submitted HTML form.
func parseExportRequest(w http.ResponseWriter, r *http.Request) (core.ExportRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req core.ExportRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && err != io.EOF {
			return core.ExportRequest{}, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return core.ExportRequest{}, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	return exportRequestFromForm(r), nil
}

// exportRequestFromForm maps the export page's form fields. Unparseable
// numbers are ignored, like other optional query parameters.
func exportRequestFromForm(r *http.Request) core.ExportRequest {
	f := r.Form
	return core.ExportRequest{
		Mode:    f.Get("mode"),
		Format:  f.Get("format"),
		Preset:  f.Get("preset"),
		Columns: nonEmpty(f["columns"]),
		Filter: export.FilterCriteria{
			Search:             strings.TrimSpace(f.Get("search")),
			JapaneseLevels:     splitList(f.Get("japanese_levels")),
			EducationLevels:    splitList(f.Get("education_levels")),
			Gender:             strings.TrimSpace(f.Get("gender")),
			Domicile:           strings.TrimSpace(f.Get("domicile")),
			AgeMin:             optionalInt(f.Get("age_min")),
			AgeMax:             optionalInt(f.Get("age_max")),
			ExperienceMin:      optionalInt(f.Get("experience_min")),
			ExperienceMax:      optionalInt(f.Get("experience_max")),
			VerificationStatus: strings.TrimSpace(f.Get("verification_status")),
		},
	}
}

// splitList splits a comma-separated form value, dropping blanks.
func splitList(s string) []string {
	return nonEmpty(strings.Split(s, ","))
}

func nonEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func optionalInt(s string) *int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return nil
	}
	return &i
}
