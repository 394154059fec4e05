package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobdigest/internal/model"
)

const jsearchPayload = `{
	"status": "OK",
	"data": [
		{
			"job_id": "abc123",
			"job_title": "HR Business Partner",
			"employer_name": "Acme",
			"job_city": "Milan",
			"job_state": "Lombardy",
			"job_country": "IT",
			"job_apply_link": "https://acme.example/apply/1",
			"job_google_link": "https://google.example/1",
			"job_description": "<p>Partner with leaders.</p>",
			"job_posted_at_datetime_utc": "2026-10-18T09:00:00.000Z",
			"job_min_salary": 40000,
			"job_max_salary": 55000
		},
		{
			"job_id": "def456",
			"job_title": "Talent Acquisition Specialist",
			"employer_name": "Globex",
			"job_country": "IT",
			"job_google_link": "https://google.example/2",
			"job_posted_at_timestamp": 1760778000
		},
		{
			"job_id": "ghi789",
			"job_title": "Recruiter",
			"employer_name": "Initech"
		}
	]
}`

func TestJSearch_Search(t *testing.T) {
	var gotQuery url.Values
	var gotKey, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(jsearchPayload))
	}))
	defer srv.Close()

	s := NewJSearch(JSearchConfig{
		BaseURL:         srv.URL,
		APIKey:          "rapid-key",
		NumPages:        2,
		EmploymentTypes: "FULLTIME,PARTTIME",
		RadiusKm:        100,
	}, srv.Client())

	postings, err := s.Search(context.Background(), model.Query{
		Keywords: "HR People Operations",
		Location: "Milan Italy",
		MaxAge:   24 * time.Hour,
		Limit:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, "HR People Operations jobs", gotQuery.Get("query"))
	assert.Equal(t, "Milan Italy", gotQuery.Get("location"))
	assert.Equal(t, "today", gotQuery.Get("date_posted"))
	assert.Equal(t, "2", gotQuery.Get("num_pages"))
	assert.Equal(t, "FULLTIME,PARTTIME", gotQuery.Get("employment_types"))
	assert.Equal(t, "100", gotQuery.Get("radius"))
	assert.Equal(t, "rapid-key", gotKey)
	assert.NotEmpty(t, gotHost)

	require.Len(t, postings, 2, "result limit applies")

	p := postings[0]
	assert.Equal(t, "jsearch", p.Provider)
	assert.Equal(t, "abc123", p.ProviderID)
	assert.Equal(t, "HR Business Partner", p.Title)
	assert.Equal(t, "Acme", p.Company)
	assert.Equal(t, "Milan, Lombardy, IT", p.Location)
	assert.Equal(t, "https://acme.example/apply/1", p.URL)
	require.NotNil(t, p.PostedAt)
	assert.Equal(t, 2026, p.PostedAt.Year())
	require.NotNil(t, p.SalaryMax)
	assert.Equal(t, 55000.0, *p.SalaryMax)

	assert.Equal(t, "https://google.example/2", postings[1].URL, "falls back to google link")
	require.NotNil(t, postings[1].PostedAt, "falls back to unix timestamp")
}

func TestJSearch_WidensEmptyWindow(t *testing.T) {
	var windows []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		windows = append(windows, r.URL.Query().Get("date_posted"))
		if r.URL.Query().Get("date_posted") == "3days" {
			w.Write([]byte(`{"status":"OK","data":[]}`))
			return
		}
		w.Write([]byte(jsearchPayload))
	}))
	defer srv.Close()

	s := NewJSearch(JSearchConfig{BaseURL: srv.URL, APIKey: "k", Widen: true}, srv.Client())
	postings, err := s.Search(context.Background(), model.Query{Keywords: "HR", MaxAge: 72 * time.Hour})
	require.NoError(t, err)

	assert.Equal(t, []string{"3days", "week"}, windows)
	assert.Len(t, postings, 3)
}

func TestJSearch_RateLimitedIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewJSearch(JSearchConfig{BaseURL: srv.URL, APIKey: "k"}, srv.Client())
	_, err := s.Search(context.Background(), model.Query{Keywords: "HR"})

	var httpErr *model.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, 30*time.Second, httpErr.RetryAfter)
}

func TestDatePostedFor(t *testing.T) {
	tests := []struct {
		maxAge time.Duration
		want   string
	}{
		{0, "all"},
		{12 * time.Hour, "today"},
		{24 * time.Hour, "today"},
		{48 * time.Hour, "3days"},
		{5 * 24 * time.Hour, "week"},
		{30 * 24 * time.Hour, "month"},
		{90 * 24 * time.Hour, "all"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, datePostedFor(tt.maxAge), "maxAge %s", tt.maxAge)
	}
}
