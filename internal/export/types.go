// Package export implements the candidate export pipeline: paginated
// collection, bounded-concurrency enrichment, field normalization and CSV
// serialization.
//
// The stages run strictly in order:
//
//	Collector -> Enricher -> Normalize -> Serialize
//
// Each run is independent. Nothing in this package keeps state between runs;
// everything a run needs lives on the Pipeline value or on the call stack.
package export

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects which flavour of export to run.
type Mode string

const (
	// ModeEnhanced fetches a detail record per candidate and exposes the full
	// column catalog.
	ModeEnhanced Mode = "enhanced"

	// ModeBasic skips enrichment and only exposes summary-backed columns.
	ModeBasic Mode = "basic"
)

// ParseMode parses a mode selector. The empty string selects ModeEnhanced.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeEnhanced:
		return ModeEnhanced, nil
	case ModeBasic:
		return ModeBasic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Format is the output format selector. Both values produce identical CSV
// text; "excel" exists so spreadsheet-oriented callers can ask for it.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat parses a format selector. The empty string selects FormatCSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatExcel:
		return FormatExcel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FilterCriteria is the caller-owned predicate set for the listing source.
// It is passed by value; stages that need different paging work on a copy.
type FilterCriteria struct {
	JapaneseLevels     []string `json:"japanese_levels,omitempty"`
	AgeMin             *int     `json:"age_min,omitempty"`
	AgeMax             *int     `json:"age_max,omitempty"`
	ExperienceMin      *int     `json:"experience_min,omitempty"` // months
	ExperienceMax      *int     `json:"experience_max,omitempty"` // months
	Gender             string   `json:"gender,omitempty"`
	Domicile           string   `json:"domicile,omitempty"`
	EducationLevels    []string `json:"education_levels,omitempty"`
	VerificationStatus string   `json:"verification_status,omitempty"`
	Search             string   `json:"search,omitempty"`
	SortBy             string   `json:"sort_by,omitempty"`
	SortOrder          string   `json:"sort_order,omitempty"`
	Page               int      `json:"page,omitempty"`
	PageSize           int      `json:"page_size,omitempty"`
}

// CandidateSummary is one row from the candidate listing.
type CandidateSummary struct {
	VerificationID        int64    `json:"verification_id"`
	UserID                string   `json:"user_id"`
	FullName              string   `json:"full_name"`
	Age                   *int     `json:"age"`
	Gender                string   `json:"gender"`
	Domicile              string   `json:"domicile"`
	MaritalStatus         string   `json:"marital_status"`
	JapaneseLevel         string   `json:"japanese_level"`
	LPKName               string   `json:"lpk_name"`
	EnglishCertType       string   `json:"english_cert_type"`
	EnglishScore          *float64 `json:"english_score"`
	Education             string   `json:"education"`
	Major                 string   `json:"major"`
	LastPosition          string   `json:"last_position"`
	ExpectedSalary        *int64   `json:"expected_salary"`
	AvailableFrom         string   `json:"available_from"`
	VerificationStatus    string   `json:"verification_status"`
	VerifiedAt            string   `json:"verified_at"`
	TotalExperienceMonths *int     `json:"total_experience_months"`
	JapanExperienceMonths *int     `json:"japan_experience_months"`
	Skills                []string `json:"skills"`
}

// Skill is a structured skill attached to a candidate detail.
type Skill struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Onboarding holds the optional onboarding preferences of a candidate.
type Onboarding struct {
	Interests          []string `json:"interests"`
	CompanyPreferences []string `json:"company_preferences"`
}

// Verification is the verification block of a candidate detail.
type Verification struct {
	ID                      int64    `json:"id"`
	FullName                string   `json:"full_name"`
	Email                   string   `json:"email"`
	Phone                   string   `json:"phone"`
	JapanExperienceDuration *int     `json:"japan_experience_duration"` // months
	JobFieldTags            []string `json:"job_field_tags"`
	PreferredIndustries     []string `json:"preferred_industries"`
	GoldenSkill             string   `json:"golden_skill"`
}

// CandidateDetail is the richer per-candidate record fetched by
// verification id.
type CandidateDetail struct {
	Verification Verification `json:"verification"`
	Skills       []Skill      `json:"skills"`
	Onboarding   *Onboarding  `json:"onboarding_data"`
}

// Page is one page of the candidate listing.
type Page struct {
	Candidates []CandidateSummary
	Total      int
	TotalPages int
}

// Source is the upstream data source the pipeline reads from.
type Source interface {
	ListCandidates(ctx context.Context, filter FilterCriteria) (Page, error)
	GetCandidateDetail(ctx context.Context, verificationID int64) (*CandidateDetail, error)
}
