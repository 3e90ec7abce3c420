package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeSource serves candidates from memory and records how it was called.
type fakeSource struct {
	mu sync.Mutex

	candidates []CandidateSummary
	pageErr    map[int]error
	details    map[int64]*CandidateDetail
	detailErr  map[int64]error

	// reportedPages overrides the computed total_pages when non-zero.
	reportedPages int
	detailDelay   func(id int64) time.Duration
	onList        func(page int)
	onDetailStart func(id int64)
	onDetailEnd   func(id int64)

	listCalls   []int
	detailCalls []int64
	inFlight    int
	maxInFlight int
}

func (f *fakeSource) ListCandidates(ctx context.Context, filter FilterCriteria) (Page, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, filter.Page)
	hook := f.onList
	f.mu.Unlock()

	if hook != nil {
		hook(filter.Page)
	}
	if err := f.pageErr[filter.Page]; err != nil {
		return Page{}, err
	}

	size := filter.PageSize
	total := len(f.candidates)
	totalPages := (total + size - 1) / size
	if f.reportedPages > 0 {
		totalPages = f.reportedPages
	}

	start := (filter.Page - 1) * size
	if start >= total {
		return Page{Total: total, TotalPages: totalPages}, nil
	}
	end := min(start+size, total)
	return Page{
		Candidates: append([]CandidateSummary(nil), f.candidates[start:end]...),
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (f *fakeSource) GetCandidateDetail(ctx context.Context, id int64) (*CandidateDetail, error) {
	f.mu.Lock()
	f.detailCalls = append(f.detailCalls, id)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	start, end := f.onDetailStart, f.onDetailEnd
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
		if end != nil {
			end(id)
		}
	}()

	if start != nil {
		start(id)
	}

	if f.detailDelay != nil {
		select {
		case <-time.After(f.detailDelay(id)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, fmt.Errorf("verification %d: not found", id)
	}
	return d, nil
}

func (f *fakeSource) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func (f *fakeSource) detailCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.detailCalls)
}

func makeCandidates(n int) []CandidateSummary {
	out := make([]CandidateSummary, n)
	for i := range out {
		out[i] = CandidateSummary{
			VerificationID: int64(i + 1),
			FullName:       fmt.Sprintf("Candidate %d", i+1),
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }
