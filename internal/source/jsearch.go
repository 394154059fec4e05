package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/jobdigest/internal/httpx"
	"github.com/amishk599/jobdigest/internal/model"
)

const jsearchBaseURL = "https://jsearch.p.rapidapi.com"

// jsearchJob represents a single job in the JSearch API response.
type jsearchJob struct {
	JobID          string   `json:"job_id"`
	Title          string   `json:"job_title"`
	EmployerName   string   `json:"employer_name"`
	City           string   `json:"job_city"`
	State          string   `json:"job_state"`
	Country        string   `json:"job_country"`
	ApplyLink      string   `json:"job_apply_link"`
	GoogleLink     string   `json:"job_google_link"`
	Description    string   `json:"job_description"`
	PostedAtUTC    string   `json:"job_posted_at_datetime_utc"`
	PostedAtUnix   int64    `json:"job_posted_at_timestamp"`
	MinSalary      *float64 `json:"job_min_salary"`
	MaxSalary      *float64 `json:"job_max_salary"`
	EmploymentType string   `json:"job_employment_type"`
}

// jsearchResponse is the top-level JSearch search response.
type jsearchResponse struct {
	Status string       `json:"status"`
	Data   []jsearchJob `json:"data"`
}

// JSearchConfig holds the search parameters sent with every JSearch query.
type JSearchConfig struct {
	BaseURL         string // defaults to the RapidAPI host
	APIKey          string
	NumPages        int
	EmploymentTypes string // e.g. "FULLTIME,PARTTIME,CONTRACTOR"
	RadiusKm        int
	// Widen retries a query once with the next wider date window when the
	// first window returns nothing. Postings older than the freshness window
	// are still dropped by the normalizer.
	Widen bool
}

// JSearch queries the RapidAPI JSearch aggregator (LinkedIn, Indeed and
// others behind one API).
type JSearch struct {
	cfg    JSearchConfig
	client *http.Client
}

// NewJSearch creates a JSearch source.
func NewJSearch(cfg JSearchConfig, client *http.Client) *JSearch {
	if cfg.BaseURL == "" {
		cfg.BaseURL = jsearchBaseURL
	}
	if cfg.NumPages <= 0 {
		cfg.NumPages = 1
	}
	return &JSearch{cfg: cfg, client: client}
}

func (s *JSearch) Name() string { return "jsearch" }

// Search runs q against JSearch and returns at most q.Limit postings.
func (s *JSearch) Search(ctx context.Context, q model.Query) ([]model.RawPosting, error) {
	window := datePostedFor(q.MaxAge)
	jobs, err := s.search(ctx, q, window)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 && s.cfg.Widen {
		if wider := widerWindow(window); wider != "" {
			jobs, err = s.search(ctx, q, wider)
			if err != nil {
				return nil, err
			}
		}
	}

	if q.Limit > 0 && len(jobs) > q.Limit {
		jobs = jobs[:q.Limit]
	}

	postings := make([]model.RawPosting, 0, len(jobs))
	for _, j := range jobs {
		postings = append(postings, s.toPosting(j))
	}
	return postings, nil
}

func (s *JSearch) search(ctx context.Context, q model.Query, datePosted string) ([]jsearchJob, error) {
	params := url.Values{}
	params.Set("query", q.Keywords+" jobs")
	params.Set("page", "1")
	params.Set("num_pages", strconv.Itoa(s.cfg.NumPages))
	params.Set("date_posted", datePosted)
	if q.Location != "" {
		params.Set("location", q.Location)
	}
	if s.cfg.EmploymentTypes != "" {
		params.Set("employment_types", s.cfg.EmploymentTypes)
	}
	if s.cfg.RadiusKm > 0 {
		params.Set("radius", strconv.Itoa(s.cfg.RadiusKm))
	}

	reqURL := s.cfg.BaseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("jsearch query %q: %w", q.Keywords, err)
	}
	req.Header.Set("X-RapidAPI-Key", s.cfg.APIKey)
	if u, err := url.Parse(s.cfg.BaseURL); err == nil {
		req.Header.Set("X-RapidAPI-Host", u.Host)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jsearch query %q: %w", q.Keywords, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpx.StatusError(resp, fmt.Sprintf("jsearch query %q", q.Keywords))
	}

	var jsResp jsearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&jsResp); err != nil {
		return nil, fmt.Errorf("jsearch query %q: %w", q.Keywords, err)
	}
	return jsResp.Data, nil
}

func (s *JSearch) toPosting(j jsearchJob) model.RawPosting {
	p := model.RawPosting{
		Provider:    s.Name(),
		ProviderID:  j.JobID,
		Title:       j.Title,
		Company:     j.EmployerName,
		Location:    joinLocation(j.City, j.State, j.Country),
		Description: j.Description,
		URL:         j.ApplyLink,
		SalaryMin:   j.MinSalary,
		SalaryMax:   j.MaxSalary,
	}
	if p.URL == "" {
		p.URL = j.GoogleLink
	}

	if j.PostedAtUTC != "" {
		if t, err := time.Parse(time.RFC3339, j.PostedAtUTC); err == nil {
			p.PostedAt = &t
		}
	}
	if p.PostedAt == nil && j.PostedAtUnix > 0 {
		t := time.Unix(j.PostedAtUnix, 0).UTC()
		p.PostedAt = &t
	}
	return p
}

var dateWindows = []struct {
	name   string
	maxAge time.Duration
}{
	{"today", 24 * time.Hour},
	{"3days", 72 * time.Hour},
	{"week", 7 * 24 * time.Hour},
	{"month", 31 * 24 * time.Hour},
}

// datePostedFor maps a freshness window to the narrowest JSearch
// date_posted bucket that still covers it.
func datePostedFor(maxAge time.Duration) string {
	if maxAge <= 0 {
		return "all"
	}
	for _, w := range dateWindows {
		if maxAge <= w.maxAge {
			return w.name
		}
	}
	return "all"
}

func widerWindow(name string) string {
	for i, w := range dateWindows {
		if w.name == name && i+1 < len(dateWindows) {
			return dateWindows[i+1].name
		}
	}
	return ""
}

func joinLocation(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}
