package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ats-export/internal/export"
	"github.com/JonMunkholm/ats-export/internal/logging"
	"github.com/JonMunkholm/ats-export/internal/metrics"
)

// DefaultRunTimeout bounds a whole export run when Options.RunTimeout is unset.
const DefaultRunTimeout = 5 * time.Minute

// historyWriteTimeout bounds recording a run after it finished.
const historyWriteTimeout = 5 * time.Second

// ErrInvalidRequest marks a request body that could not be decoded.
var ErrInvalidRequest = errors.New("invalid export request")

// ContentTypeCSV is the content type of every export file.
const ContentTypeCSV = "text/csv; charset=utf-8"

// Options configures a Service.
type Options struct {
	Pipeline      export.Config
	RunTimeout    time.Duration
	MaxConcurrent int
	MaxWait       time.Duration
	Presets       export.Presets

	// History is optional; nil disables export history.
	History *HistoryStore
}

// Service runs exports against an upstream source.
type Service struct {
	source     export.Source
	pipeline   export.Config
	runTimeout time.Duration
	limiter    *ExportLimiter
	presets    export.Presets
	history    *HistoryStore
	now        func() time.Time
}

// NewService creates a Service reading from source.
func NewService(source export.Source, opts Options) *Service {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.Presets == nil {
		opts.Presets = export.Presets{}
	}
	return &Service{
		source:     source,
		pipeline:   opts.Pipeline,
		runTimeout: opts.RunTimeout,
		limiter:    NewExportLimiter(opts.MaxConcurrent, opts.MaxWait),
		presets:    opts.Presets,
		history:    opts.History,
		now:        time.Now,
	}
}

// ExportRequest is what a caller asks for. Empty Mode and Format select
// enhanced CSV. Columns take precedence over Preset; with neither, the
// mode's default columns are used.
type ExportRequest struct {
	Filter  export.FilterCriteria `json:"filter"`
	Columns []string              `json:"columns,omitempty"`
	Preset  string                `json:"preset,omitempty"`
	Format  string                `json:"format,omitempty"`
	Mode    string                `json:"mode,omitempty"`
}

// ExportOutput is a finished export file plus run statistics.
type ExportOutput struct {
	ID             string
	FileName       string
	ContentType    string
	Body           []byte
	Mode           export.Mode
	Rows           int
	Total          int
	EnrichFailures int
	Partial        bool
	Duration       time.Duration
}

type exportPlan struct {
	mode    export.Mode
	format  export.Format
	columns []string
}

func (s *Service) plan(req ExportRequest) (exportPlan, error) {
	mode, err := export.ParseMode(req.Mode)
	if err != nil {
		return exportPlan{}, err
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return exportPlan{}, err
	}

	columns := req.Columns
	if req.Preset != "" {
		presetCols, err := s.presets.Resolve(req.Preset)
		if err != nil {
			return exportPlan{}, err
		}
		if len(columns) == 0 {
			columns = presetCols
		}
	}
	if len(columns) == 0 {
		columns = export.DefaultKeys(mode)
	}
	if err := export.ValidateKeys(mode, columns); err != nil {
		return exportPlan{}, err
	}

	return exportPlan{mode: mode, format: format, columns: columns}, nil
}

// Export validates req, waits for an export slot and runs the pipeline.
//
// Errors are the pipeline's (export.ErrEmptyResult, *export.CollectionError,
// *export.SerializationError), request validation errors, ErrTooManyExports,
// or a context error. Use MapError for user-facing text.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportOutput, error) {
	plan, err := s.plan(req)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		outcome := "cancelled"
		if errors.Is(err, ErrTooManyExports) {
			outcome = "busy"
		}
		metrics.Runs.WithLabelValues(string(plan.mode), outcome).Inc()
		return nil, err
	}
	defer s.limiter.Release()

	metrics.Active.Inc()
	defer metrics.Active.Dec()

	id := uuid.NewString()
	logger := logging.WithFields(ctx, "export_id", id, "mode", plan.mode)

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	logger.Info("export started",
		"format", plan.format,
		"columns", len(plan.columns),
		"preset", req.Preset,
	)

	started := s.now()
	res, runErr := export.NewPipeline(s.source, s.pipeline, logger).Run(runCtx, export.Request{
		Filter:  req.Filter,
		Columns: plan.columns,
		Mode:    plan.mode,
	})
	finished := s.now()
	elapsed := finished.Sub(started)

	outcome := outcomeOf(runErr)
	metrics.Runs.WithLabelValues(string(plan.mode), outcome).Inc()
	metrics.Duration.WithLabelValues(string(plan.mode)).Observe(elapsed.Seconds())

	run := ExportRun{
		ID:             id,
		Mode:           plan.mode,
		Format:         plan.format,
		Columns:        plan.columns,
		Filter:         req.Filter,
		State:          res.State,
		Rows:           res.Rows,
		Total:          res.Total,
		Collected:      res.Collected,
		Enriched:       res.Enriched,
		EnrichFailures: res.EnrichFailures,
		Partial:        res.Partial,
		IPAddress:      IPAddressFromContext(ctx),
		UserAgent:      UserAgentFromContext(ctx),
		StartedAt:      started,
		FinishedAt:     finished,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	s.record(ctx, logger, run)

	if runErr != nil {
		if outcome == "empty" {
			logger.Info("export matched no candidates", "duration_ms", elapsed.Milliseconds())
		} else {
			logger.Error("export failed",
				"state", res.State,
				"error", runErr,
				"duration_ms", elapsed.Milliseconds(),
			)
		}
		return nil, fmt.Errorf("export %s: %w", id, runErr)
	}

	metrics.Rows.Add(float64(res.Rows))
	logger.Info("export finished",
		"rows", res.Rows,
		"total", res.Total,
		"pages", res.Pages,
		"enrich_failures", res.EnrichFailures,
		"partial", res.Partial,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &ExportOutput{
		ID:             id,
		FileName:       FileName(plan.mode, started),
		ContentType:    ContentTypeCSV,
		Body:           []byte(res.Text),
		Mode:           plan.mode,
		Rows:           res.Rows,
		Total:          res.Total,
		EnrichFailures: res.EnrichFailures,
		Partial:        res.Partial,
		Duration:       elapsed,
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, export.ErrEmptyResult):
		return "empty"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}

// record writes run to history. It survives cancellation of the request
// context so aborted runs are still recorded.
func (s *Service) record(ctx context.Context, logger *slog.Logger, run ExportRun) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.history.Record(ctx, run); err != nil {
		logger.Error("failed to record export history", "error", err)
	}
}

// FileName returns the download name for an export started at t.
//
//	enhanced: ats_export_enhanced_2006-01-02.csv
//	basic:    ats_export_2006-01-02.csv
func FileName(mode export.Mode, t time.Time) string {
	date := t.Format(time.DateOnly)
	if mode == export.ModeBasic {
		return "ats_export_" + date + ".csv"
	}
	return "ats_export_enhanced_" + date + ".csv"
}

// Columns returns the column catalog for a mode.
func (s *Service) Columns(mode export.Mode) []export.ExportColumn {
	return export.Columns(mode)
}

// Presets returns the configured column presets.
func (s *Service) Presets() export.Presets {
	out := make(export.Presets, len(s.presets))
	for name := range s.presets {
		out[name], _ = s.presets.Resolve(name)
	}
	return out
}

// HistoryEnabled reports whether runs are being recorded.
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// History returns recent export runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]ExportRun, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Recent(ctx, limit)
}

// LimiterStatus reports export slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForExports blocks until running exports finish or ctx is done.
// Called during graceful shutdown.
func (s *Service) WaitForExports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
