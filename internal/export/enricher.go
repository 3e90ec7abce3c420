package export

// enricher.go fetches candidate details under bounded concurrency.
//
// Summaries are processed in fixed-size batches. Every fetch in a batch runs
// in its own goroutine and the batch is awaited as a whole before the next
// one starts, so at most `width` detail requests are ever in flight. Each
// goroutine writes only its own slot of the result slice, which keeps the
// output in input order without locking.

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/ats-export/internal/metrics"
)

// DefaultBatchWidth is the maximum number of concurrent detail fetches.
const DefaultBatchWidth = 5

// Enriched pairs a summary with its detail. Detail is nil when the fetch
// failed or was skipped; Err holds the fetch failure, if any.
type Enriched struct {
	Summary CandidateSummary
	Detail  *CandidateDetail
	Err     error
}

// Enricher augments summaries with detail records.
type Enricher struct {
	source  Source
	width   int
	timeout time.Duration
	logger  *slog.Logger
}

// NewEnricher creates an Enricher with the given batch width and per-item
// timeout. A zero timeout leaves deadlines to the source's client.
func NewEnricher(source Source, width int, timeout time.Duration, logger *slog.Logger) *Enricher {
	if width <= 0 {
		width = DefaultBatchWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{source: source, width: width, timeout: timeout, logger: logger}
}

// Enrich returns one Enriched per summary, in input order. Per-item failures
// never fail the call. The only error returned is the context's, checked
// between batches.
func (e *Enricher) Enrich(ctx context.Context, summaries []CandidateSummary) ([]Enriched, error) {
	out := make([]Enriched, len(summaries))

	for start := 0; start < len(summaries); start += e.width {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+e.width, len(summaries))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = e.fetch(ctx, summaries[i])
				return nil
			})
		}
		// fetch never returns an error to the group; Wait is the batch barrier.
		_ = g.Wait()
	}

	return out, nil
}

func (e *Enricher) fetch(ctx context.Context, s CandidateSummary) Enriched {
	res := Enriched{Summary: s}
	if s.VerificationID <= 0 {
		e.logger.Debug("skipping detail fetch, no verification id", "full_name", s.FullName)
		return res
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	metrics.DetailFetches.Inc()
	detail, err := e.source.GetCandidateDetail(ctx, s.VerificationID)
	if err != nil {
		metrics.EnrichFailures.Inc()
		e.logger.Warn("detail fetch failed, using summary fields",
			"verification_id", s.VerificationID,
			"error", err,
		)
		res.Err = err
		return res
	}

	res.Detail = detail
	return res
}

// Unenriched wraps summaries without fetching any detail. Used by basic mode.
func Unenriched(summaries []CandidateSummary) []Enriched {
	out := make([]Enriched, len(summaries))
	for i, s := range summaries {
		out[i] = Enriched{Summary: s}
	}
	return out
}
