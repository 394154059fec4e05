// Package normalize turns provider postings into deduplicated jobs.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/amishk599/jobdigest/internal/model"
)

const (
	// MaxDescriptionRunes bounds the description kept per job, which in turn
	// bounds the scoring prompt.
	MaxDescriptionRunes = 3000

	idLength = 16
)

// Result is the output of one normalization pass.
type Result struct {
	Jobs       []model.Job
	Stale      int // postings older than the freshness window
	Duplicates int
}

// Normalizer maps raw postings to jobs, drops stale postings and removes
// duplicates. It makes no network calls.
type Normalizer struct {
	maxAge time.Duration
	now    func() time.Time
}

// New creates a Normalizer. A zero maxAge disables the freshness check; now
// defaults to time.Now.
func New(maxAge time.Duration, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{maxAge: maxAge, now: now}
}

// Normalize processes raw in order. The first sighting of a dedup key wins;
// Seq follows output order.
func (n *Normalizer) Normalize(raw []model.RawPosting) Result {
	var res Result
	cutoff := n.now().Add(-n.maxAge)
	seen := make(map[string]struct{}, len(raw))

	for _, p := range raw {
		if n.maxAge > 0 && p.PostedAt != nil && p.PostedAt.Before(cutoff) {
			res.Stale++
			continue
		}

		job := toJob(p)
		key := DedupKey(job.Title, job.Company, job.Location)
		if _, dup := seen[key]; dup {
			res.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		job.ID = Fingerprint(key)
		job.Seq = len(res.Jobs)
		res.Jobs = append(res.Jobs, job)
	}
	return res
}

func toJob(p model.RawPosting) model.Job {
	return model.Job{
		Title:       strings.TrimSpace(p.Title),
		Company:     strings.TrimSpace(p.Company),
		Location:    CleanLocation(p.Location),
		Description: Truncate(CollapseWhitespace(PlainText(p.Description)), MaxDescriptionRunes),
		PostedAt:    p.PostedAt,
		URL:         strings.TrimSpace(p.URL),
		Source:      p.Provider,
		SalaryMax:   p.SalaryMax,
	}
}

// CleanLocation trims comma-separated parts, drops empty ones and removes
// case-insensitive repeats ("Milan, , Milan, IT" becomes "Milan, IT").
func CleanLocation(loc string) string {
	parts := strings.Split(loc, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = CollapseWhitespace(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

// DedupKey is the lowercase, whitespace-normalized title|company|location.
func DedupKey(title, company, location string) string {
	norm := func(s string) string { return strings.ToLower(CollapseWhitespace(s)) }
	return norm(title) + "|" + norm(company) + "|" + norm(location)
}

// Fingerprint derives a stable job ID from a dedup key.
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:idLength]
}
