package model

import (
	"context"
	"time"
)

// CandidateProfile is the fixed input every job is matched against. It is
// loaded once at startup and never mutated during a run.
type CandidateProfile struct {
	Resume           string   // résumé text, unstructured
	Preferences      string   // free-text preferences passed to the LLM verbatim
	DesiredRoles     []string // structured preferences, used in prompts
	Locations        []string
	SalaryFloor      float64  // zero disables the floor
	ExcludeKeywords  []string // title/description keywords that disqualify a job
	ExcludeLocations []string
}

// RawPosting is a provider-specific posting before normalization.
type RawPosting struct {
	Provider    string // source name, e.g. "jsearch"
	ProviderID  string // id assigned by the provider, may be empty
	Title       string
	Company     string
	Location    string
	Description string     // may contain HTML
	PostedAt    *time.Time // nullable (not all providers expose it)
	URL         string
	SalaryMin   *float64
	SalaryMax   *float64
	QueryIndex  int // index of the query that produced this posting
}

// Unified representation of a job listing after normalization.
type Job struct {
	ID          string // fingerprint of normalized title+company+location
	Title       string
	Company     string
	Location    string
	Description string     // plain text
	PostedAt    *time.Time // nullable
	URL         string
	Source      string
	SalaryMax   *float64
	Seq         int         // position in normalization order, used for tie-breaks
	Match       *Match      // nil until scored
	Enrichment  *Enrichment // nil until content generation ran
}

// Match is the scoring outcome for a single job.
type Match struct {
	Score  int    // 0-100
	Reason string // one-sentence rationale, may be empty
	Err    error  // non-nil when the score was defaulted after a failure
}

// Enrichment holds the per-job generated content.
type Enrichment struct {
	TailoredResume string
	Contacts       []Contact
	Fallback       bool  // true when any part was replaced by placeholder content
	Err            error // first generation failure, if any
}

// Contact is a suggested person to reach out to about a job.
type Contact struct {
	Role      string `json:"profile_type"`
	Why       string `json:"why"`
	SearchTip string `json:"search_tip"`
	Message   string `json:"message_template"`
}

// Score returns the match score, treating an unscored job as 0.
func (j Job) Score() int {
	if j.Match == nil {
		return 0
	}
	return j.Match.Score
}

// Query describes one keyword/location search.
type Query struct {
	Keywords string
	Location string
	MaxAge   time.Duration // freshness window
	Limit    int           // max postings returned by the provider
}

// PostingSource searches a job provider for a single query.
type PostingSource interface {
	Name() string
	Search(ctx context.Context, q Query) ([]RawPosting, error)
}

// Digest is the ranked, enriched job list delivered once per run.
type Digest struct {
	RunID       string
	GeneratedAt time.Time
	Jobs        []Job
	Ranked      []Job // every scored job in rank order, for attachments; may be nil
}

// Notifier delivers a digest.
type Notifier interface {
	Send(ctx context.Context, d Digest) error
}

// JobFilter decides whether a job matches the user's criteria.
type JobFilter interface {
	Match(job Job) bool
}
