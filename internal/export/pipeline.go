package export

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// State is a stage of an export run.
type State string

const (
	StateIdle        State = "idle"
	StateCollecting  State = "collecting"
	StateEnriching   State = "enriching"
	StateNormalizing State = "normalizing"
	StateSerializing State = "serializing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Config tunes a Pipeline. Zero values fall back to package defaults.
type Config struct {
	PageSize      int
	MaxPages      int
	BatchWidth    int
	DetailTimeout time.Duration
}

// Request describes one export run.
type Request struct {
	Filter  FilterCriteria
	Columns []string
	Mode    Mode
}

// Result reports how a run ended. It is returned even when Run fails so the
// caller can inspect the final state.
type Result struct {
	State          State
	Empty          bool
	Text           string
	Rows           int
	Total          int // total reported upstream
	Collected      int // summaries actually collected
	Enriched       int // summaries with a detail record
	Pages          int
	EnrichFailures int
	Partial        bool
}

// Pipeline runs Collector -> Enricher -> Normalize -> Serialize.
type Pipeline struct {
	collector *Collector
	enricher  *Enricher
	logger    *slog.Logger
}

// NewPipeline creates a pipeline reading from source.
func NewPipeline(source Source, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		collector: NewCollector(source, cfg.PageSize, cfg.MaxPages, logger),
		enricher:  NewEnricher(source, cfg.BatchWidth, cfg.DetailTimeout, logger),
		logger:    logger,
	}
}

// Run executes one export.
//
// It returns ErrEmptyResult (with State Done and Empty set) when nothing
// matched, a *CollectionError when the first page fails and a
// *SerializationError when the output cannot be built. Enrichment failures
// are absorbed and only counted.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{State: StateIdle}
	mode := req.Mode
	if mode == "" {
		mode = ModeEnhanced
	}

	p.transition(res, StateCollecting)
	collected, err := p.collector.Collect(ctx, req.Filter)
	if err != nil {
		if errors.Is(err, ErrEmptyResult) {
			res.Empty = true
			p.transition(res, StateDone)
			return res, err
		}
		p.transition(res, StateFailed)
		return res, err
	}
	res.Total = collected.Total
	res.Collected = len(collected.Candidates)
	res.Pages = collected.Pages
	res.Partial = collected.Partial

	p.transition(res, StateEnriching)
	var enriched []Enriched
	if mode == ModeBasic {
		enriched = Unenriched(collected.Candidates)
	} else {
		enriched, err = p.enricher.Enrich(ctx, collected.Candidates)
		if err != nil {
			p.transition(res, StateFailed)
			return res, err
		}
	}
	for _, e := range enriched {
		switch {
		case e.Err != nil:
			res.EnrichFailures++
		case e.Detail != nil:
			res.Enriched++
		}
	}

	p.transition(res, StateNormalizing)
	rows := NormalizeAll(enriched)

	p.transition(res, StateSerializing)
	text, err := Serialize(rows, req.Columns)
	if err != nil {
		p.transition(res, StateFailed)
		return res, err
	}

	res.Text = text
	res.Rows = len(rows)
	p.transition(res, StateDone)
	return res, nil
}

func (p *Pipeline) transition(res *Result, to State) {
	p.logger.Debug("export state", "from", res.State, "to", to)
	res.State = to
}
