package export

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/ats-export/internal/metrics"
)

// DefaultPageSize is the number of candidates requested per listing page.
const DefaultPageSize = 100

// DefaultMaxPages bounds pagination (100 pages * 100 = 10,000 candidates).
const DefaultMaxPages = 100

// Collector turns filter criteria into the complete, ordered list of
// candidate summaries by fetching listing pages one after another.
type Collector struct {
	source   Source
	pageSize int
	maxPages int
	logger   *slog.Logger
}

// CollectResult is the outcome of a collection pass.
type CollectResult struct {
	Candidates []CandidateSummary
	Total      int // total reported by the first page
	Pages      int // number of page requests issued
	Partial    bool
}

// NewCollector creates a Collector. Non-positive sizes fall back to defaults.
func NewCollector(source Source, pageSize, maxPages int, logger *slog.Logger) *Collector {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{source: source, pageSize: pageSize, maxPages: maxPages, logger: logger}
}

// Collect fetches pages starting at 1 until the reported page count or the
// page ceiling is reached.
//
// A failure on the first page returns a *CollectionError and no candidates.
// A first page with no candidates returns ErrEmptyResult. A failure on a
// later page stops pagination and returns what was fetched so far with
// Partial set.
func (c *Collector) Collect(ctx context.Context, filter FilterCriteria) (*CollectResult, error) {
	filter.Page = 1
	filter.PageSize = c.pageSize

	first, err := c.source.ListCandidates(ctx, filter)
	metrics.PagesFetched.Inc()
	if err != nil {
		return nil, &CollectionError{Page: 1, Err: err}
	}
	if len(first.Candidates) == 0 {
		return nil, ErrEmptyResult
	}

	totalPages := first.TotalPages
	if totalPages > c.maxPages {
		c.logger.Warn("collection capped at page ceiling",
			"total_pages", totalPages,
			"max_pages", c.maxPages,
			"total", first.Total,
		)
		totalPages = c.maxPages
	}

	res := &CollectResult{
		Candidates: make([]CandidateSummary, 0, estimateCapacity(first.Total, c.pageSize*c.maxPages)),
		Total:      first.Total,
		Pages:      1,
	}
	res.Candidates = append(res.Candidates, first.Candidates...)

	for page := 2; page <= totalPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		filter.Page = page
		next, err := c.source.ListCandidates(ctx, filter)
		res.Pages++
		metrics.PagesFetched.Inc()
		if err != nil {
			c.logger.Warn("page fetch failed, export truncated",
				"page", page,
				"total_pages", totalPages,
				"collected", len(res.Candidates),
				"error", err,
			)
			res.Partial = true
			break
		}
		if len(next.Candidates) == 0 {
			break
		}
		res.Candidates = append(res.Candidates, next.Candidates...)
	}

	c.logger.Debug("collection finished",
		"pages", res.Pages,
		"collected", len(res.Candidates),
		"total", res.Total,
		"partial", res.Partial,
	)
	return res, nil
}

func estimateCapacity(total, ceiling int) int {
	if total <= 0 {
		return 0
	}
	if total > ceiling {
		return ceiling
	}
	return total
}
