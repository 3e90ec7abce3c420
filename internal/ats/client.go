// Package ats is the HTTP client for the recruitment platform's admin API.
//
// Two endpoints are used:
//
//	GET {base}/admin/candidates?page=..&page_size=..&<filters>
//	  -> {"candidates":[...], "total":N, "page":p, "page_size":s, "total_pages":M}
//	GET {base}/admin/verifications/{id}
//	  -> {"verification":{...}, "onboarding_data":{...}|null, "skills":[...]}
//
// Both payloads are also accepted wrapped in a top-level "data" object.
package ats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/ats-export/internal/export"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("upstream: not found")

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: http status %d from %s", e.StatusCode, e.URL)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the admin API. It implements export.Source.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
}

var _ export.Source = (*Client)(nil)

// NewClient validates opts and returns a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("ats: BaseURL is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("ats: invalid BaseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ats: BaseURL must be http or https, got %q", u.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "ats-export/1.0"
	}

	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		token:     strings.TrimSpace(opts.Token),
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

type listResponse struct {
	Candidates []export.CandidateSummary `json:"candidates"`
	Total      int                       `json:"total"`
	Page       int                       `json:"page"`
	PageSize   int                       `json:"page_size"`
	TotalPages int                       `json:"total_pages"`
}

// ListCandidates fetches one page of the candidate listing.
func (c *Client) ListCandidates(ctx context.Context, filter export.FilterCriteria) (export.Page, error) {
	u := c.baseURL + "/admin/candidates?" + filterQuery(filter).Encode()

	body, err := c.doGET(ctx, u)
	if err != nil {
		return export.Page{}, err
	}

	var resp listResponse
	if err := decodeMaybeWrapped(body, &resp); err != nil {
		return export.Page{}, fmt.Errorf("candidate list payload: %w", err)
	}

	totalPages := resp.TotalPages
	if totalPages == 0 && resp.Total > 0 && filter.PageSize > 0 {
		totalPages = (resp.Total + filter.PageSize - 1) / filter.PageSize
	}

	return export.Page{
		Candidates: resp.Candidates,
		Total:      resp.Total,
		TotalPages: totalPages,
	}, nil
}

// GetCandidateDetail fetches the verification detail for one candidate.
func (c *Client) GetCandidateDetail(ctx context.Context, verificationID int64) (*export.CandidateDetail, error) {
	if verificationID <= 0 {
		return nil, fmt.Errorf("ats: invalid verification id %d", verificationID)
	}
	u := c.baseURL + "/admin/verifications/" + url.PathEscape(strconv.FormatInt(verificationID, 10))

	body, err := c.doGET(ctx, u)
	if err != nil {
		return nil, err
	}

	var d export.CandidateDetail
	if err := decodeMaybeWrapped(body, &d); err != nil {
		return nil, fmt.Errorf("candidate detail payload: %w", err)
	}
	if d.Verification.ID == 0 {
		d.Verification.ID = verificationID
	}
	return &d, nil
}

func (c *Client) doGET(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: redactQuery(u), Body: string(b)}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return b, nil
}

// decodeMaybeWrapped decodes either a bare object or one wrapped in "data".
func decodeMaybeWrapped(body []byte, dst any) error {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Data) > 0 && wrapped.Data[0] == '{' {
		return json.Unmarshal(wrapped.Data, dst)
	}
	return json.Unmarshal(body, dst)
}

// filterQuery encodes filter criteria as listing query parameters.
func filterQuery(f export.FilterCriteria) url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if len(f.JapaneseLevels) > 0 {
		q.Set("japanese_levels", strings.Join(f.JapaneseLevels, ","))
	}
	if len(f.EducationLevels) > 0 {
		q.Set("education_levels", strings.Join(f.EducationLevels, ","))
	}
	setInt(q, "age_min", f.AgeMin)
	setInt(q, "age_max", f.AgeMax)
	setInt(q, "experience_min", f.ExperienceMin)
	setInt(q, "experience_max", f.ExperienceMax)
	setString(q, "gender", f.Gender)
	setString(q, "domicile", f.Domicile)
	setString(q, "verification_status", f.VerificationStatus)
	setString(q, "search", f.Search)
	setString(q, "sort_by", f.SortBy)
	setString(q, "sort_order", f.SortOrder)
	return q
}

func setInt(q url.Values, key string, v *int) {
	if v != nil {
		q.Set(key, strconv.Itoa(*v))
	}
}

func setString(q url.Values, key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		q.Set(key, v)
	}
}

// redactQuery drops the query string so filters do not end up in errors.
func redactQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
