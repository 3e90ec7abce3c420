package export

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func endToEndSource() *fakeSource {
	return &fakeSource{
		candidates: []CandidateSummary{
			{VerificationID: 42, FullName: "Budi Santoso", JapanExperienceMonths: intPtr(12), Skills: []string{"Old"}},
			{VerificationID: 7, FullName: "Al", JapanExperienceMonths: intPtr(6), Skills: []string{"Python (v3)"}},
			{VerificationID: 15, FullName: "Siti Rahma, S.T.", Skills: []string{"Cooking"}},
		},
		details: map[int64]*CandidateDetail{
			42: {
				Verification: Verification{ID: 42, JapanExperienceDuration: intPtr(24)},
				Skills:       []Skill{{ID: 1, Name: "Welding (日本語)"}, {ID: 2, Name: "Forklift"}},
			},
			15: {Verification: Verification{ID: 15, JapanExperienceDuration: intPtr(36)}},
		},
		detailErr: map[int64]error{7: errors.New("upstream 503")},
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	src := endToEndSource()
	p := NewPipeline(src, Config{}, discardLogger())

	res, err := p.Run(context.Background(), Request{
		Columns: []string{"full_name", "unique_code", "japan_experience_months", "skills"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := strings.Join([]string{
		"FULL NAME,Unique Code,JAPAN EXPERIENCE MONTHS,SKILLS",
		`Budi Santoso,BUD42,24,"Welding, Forklift"`,
		"Al,ALX7,6,Python",
		`"Siti Rahma, S.T.",SIT15,36,Cooking`,
	}, "\n")
	if res.Text != want {
		t.Errorf("Run() text =\n%s\nwant\n%s", res.Text, want)
	}
	if lines := strings.Split(res.Text, "\n"); len(lines) != 4 {
		t.Errorf("got %d lines, want 4", len(lines))
	}

	if res.State != StateDone {
		t.Errorf("State = %q, want %q", res.State, StateDone)
	}
	if res.Rows != 3 || res.Total != 3 || res.Pages != 1 {
		t.Errorf("Rows/Total/Pages = %d/%d/%d, want 3/3/1", res.Rows, res.Total, res.Pages)
	}
	if res.EnrichFailures != 1 {
		t.Errorf("EnrichFailures = %d, want 1", res.EnrichFailures)
	}
	if res.Collected != 3 || res.Enriched != 2 {
		t.Errorf("Collected/Enriched = %d/%d, want 3/2", res.Collected, res.Enriched)
	}
}

func TestPipeline_EmptyResultSkipsEnrichment(t *testing.T) {
	src := &fakeSource{}
	p := NewPipeline(src, Config{}, discardLogger())

	res, err := p.Run(context.Background(), Request{Columns: []string{"full_name"}})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("Run() error = %v, want ErrEmptyResult", err)
	}
	if res.State != StateDone || !res.Empty {
		t.Errorf("State/Empty = %q/%v, want done/true", res.State, res.Empty)
	}
	if got := src.detailCallCount(); got != 0 {
		t.Errorf("detail calls = %d, want 0", got)
	}
}

func TestPipeline_CollectionFailure(t *testing.T) {
	src := &fakeSource{
		candidates: makeCandidates(3),
		pageErr:    map[int]error{1: errors.New("dial tcp: connection refused")},
	}
	p := NewPipeline(src, Config{}, discardLogger())

	res, err := p.Run(context.Background(), Request{Columns: []string{"full_name"}})
	var ce *CollectionError
	if !errors.As(err, &ce) {
		t.Fatalf("Run() error = %v, want *CollectionError", err)
	}
	if errors.Is(err, ErrEmptyResult) {
		t.Error("collection failure must be distinguishable from empty result")
	}
	if res.State != StateFailed || res.Empty {
		t.Errorf("State/Empty = %q/%v, want failed/false", res.State, res.Empty)
	}
}

func TestPipeline_SerializationFailure(t *testing.T) {
	p := NewPipeline(endToEndSource(), Config{}, discardLogger())

	res, err := p.Run(context.Background(), Request{Columns: []string{"full_name", "nope"}})
	var se *SerializationError
	if !errors.As(err, &se) {
		t.Fatalf("Run() error = %v, want *SerializationError", err)
	}
	if res.State != StateFailed {
		t.Errorf("State = %q, want %q", res.State, StateFailed)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
}

func TestPipeline_BasicModeSkipsDetails(t *testing.T) {
	src := endToEndSource()
	p := NewPipeline(src, Config{}, discardLogger())

	res, err := p.Run(context.Background(), Request{
		Mode:    ModeBasic,
		Columns: []string{"full_name", "japan_experience_months"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := src.detailCallCount(); got != 0 {
		t.Errorf("detail calls = %d, want 0", got)
	}
	want := "FULL NAME,JAPAN EXPERIENCE MONTHS\nBudi Santoso,12\nAl,6\n\"Siti Rahma, S.T.\","
	if res.Text != want {
		t.Errorf("Run() text = %q, want %q", res.Text, want)
	}
}

func TestPipeline_PartialCollection(t *testing.T) {
	src := &fakeSource{
		candidates: makeCandidates(5),
		pageErr:    map[int]error{2: errors.New("timeout")},
	}
	p := NewPipeline(src, Config{PageSize: 2, BatchWidth: 2}, discardLogger())

	res, err := p.Run(context.Background(), Request{Mode: ModeBasic, Columns: []string{"full_name"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Partial || res.Rows != 2 {
		t.Errorf("Partial/Rows = %v/%d, want true/2", res.Partial, res.Rows)
	}
	if res.Total != 5 || res.Collected != 2 || res.Enriched != 0 {
		t.Errorf("Total/Collected/Enriched = %d/%d/%d, want 5/2/0", res.Total, res.Collected, res.Enriched)
	}
}
