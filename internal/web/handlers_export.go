package web

import (
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/ats-export/internal/core"
	"github.com/JonMunkholm/ats-export/internal/export"
	"github.com/JonMunkholm/ats-export/internal/web/components"
)

// handleIndex renders the export page. ?mode=basic preselects basic mode
// and its column catalog.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	mode, err := export.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	data := components.ExportPageData{
		Mode:           mode,
		Groups:         components.GroupColumns(s.service.Columns(mode)),
		Presets:        s.service.Presets().Names(),
		HistoryEnabled: s.service.HistoryEnabled(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := components.ExportPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render export page", "error", err)
	}
}

// handleHealth reports liveness and export slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"exports": s.service.LimiterStatus(),
		"history": s.service.HistoryEnabled(),
	})
}

// ColumnsResponse is the column catalog for one mode.
type ColumnsResponse struct {
	Mode    export.Mode           `json:"mode"`
	Columns []export.ExportColumn `json:"columns"`
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	mode, err := export.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, ColumnsResponse{Mode: mode, Columns: s.service.Columns(mode)})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.service.Presets()})
}

// handleExportStatus returns the current state of the export limiter.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

// handleHistory lists recent export runs, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)

	runs, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if runs == nil {
		runs = []core.ExportRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleExport runs an export and answers with the CSV as an attachment.
//
// Response headers:
//
//	X-Export-ID               run id, also in logs and history
//	X-Export-Rows             data rows in the file
//	X-Export-Enrich-Failures  candidates exported without detail fields
//	X-Export-Partial          "true" when pagination stopped early
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := parseExportRequest(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	out, err := s.service.Export(r.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(s.cfg.Export.MaxWaitTime)))
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", out.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName}))
	h.Set("Content-Length", strconv.Itoa(len(out.Body)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Export-ID", out.ID)
	h.Set("X-Export-Rows", strconv.Itoa(out.Rows))
	h.Set("X-Export-Enrich-Failures", strconv.Itoa(out.EnrichFailures))
	h.Set("X-Export-Partial", strconv.FormatBool(out.Partial))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Body); err != nil {
		slog.Warn("write export body", "export_id", out.ID, "error", err)
	}
}

func retryAfterSeconds(wait time.Duration) int {
	if secs := int(wait.Seconds()); secs > 0 {
		return secs
	}
	return 1
}
