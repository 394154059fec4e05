// Package digest assembles the daily digest and renders it for email, plain
// text and the terminal.
package digest

import (
	"time"

	"github.com/amishk599/jobdigest/internal/model"
)

// Build assembles the digest for a run. jobs must already be ranked.
func Build(runID string, generatedAt time.Time, jobs []model.Job) model.Digest {
	out := make([]model.Job, len(jobs))
	copy(out, jobs)
	return model.Digest{RunID: runID, GeneratedAt: generatedAt, Jobs: out}
}

// Subject is the email subject line for d.
func Subject(d model.Digest) string {
	return "Your Top Jobs Today — " + d.GeneratedAt.Format("January 02")
}

// Sample returns a small digest used to verify notifier configuration.
func Sample(now time.Time) model.Digest {
	posted := now.Add(-3 * time.Hour)
	return Build("test", now, []model.Job{{
		ID:          "test-001",
		Title:       "Test Notification: Integration Verified",
		Company:     "jobdigest",
		Location:    "Everywhere",
		Description: "If you can read this, delivery works.",
		PostedAt:    &posted,
		URL:         "https://example.com/jobs/test-001",
		Source:      "test",
		Match:       &model.Match{Score: 100, Reason: "This is a test entry."},
		Enrichment: &model.Enrichment{
			TailoredResume: "Your tailored résumé appears here.",
			Contacts: []model.Contact{
				{Role: "Recruiter", Why: "Owns the opening.", SearchTip: "jobdigest recruiter", Message: "Hi, I just applied."},
				{Role: "Hiring Manager", Why: "Decides on the hire.", SearchTip: "jobdigest hiring manager", Message: "Hello, quick question about the role."},
			},
		},
	}})
}
