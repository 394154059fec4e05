package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobdigest/internal/ai"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testPolicy = retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}

const twoContacts = `{"contacts":[
	{"profile_type":"Talent Acquisition Lead","why":"Owns hiring.","search_tip":"Acme talent acquisition","message_template":"Hi, I applied for the role."},
	{"profile_type":"HR Director","why":"Hiring manager.","search_tip":"Acme HR director","message_template":"Hello, quick question."}
]}`

// fakeProvider routes by request kind and the job title in the prompt.
type fakeProvider struct {
	tailor   func(title string) (string, error)
	contacts func(title string) (string, error)
}

func (f *fakeProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	if req.Schema == nil {
		title := between(req.Prompt, "JOB TITLE: ", " at ")
		return f.tailor(title)
	}
	title := between(req.Prompt, "JOB: ", " at ")
	return f.contacts(title)
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j >= 0 {
		return s[:j]
	}
	return s
}

var profile = model.CandidateProfile{Resume: "ORIGINAL CV", Preferences: "Milan"}

func jobsNamed(titles ...string) []model.Job {
	jobs := make([]model.Job, len(titles))
	for i, t := range titles {
		jobs[i] = model.Job{Title: t, Company: "Acme", Seq: i}
	}
	return jobs
}

func TestEnrichAll_OneFailureOfN(t *testing.T) {
	p := &fakeProvider{
		tailor: func(title string) (string, error) {
			if title == "broken" {
				return "", &model.HTTPError{StatusCode: 500, Err: errors.New("boom")}
			}
			return "TAILORED for " + title, nil
		},
		contacts: func(title string) (string, error) { return twoContacts, nil },
	}
	jobs := jobsNamed("one", "broken", "three")

	g := NewGenerator(p, profile, testPolicy, 2, discardLogger())
	stats := g.EnrichAll(context.Background(), jobs)

	assert.Equal(t, Stats{Complete: 2, Fallback: 1}, stats)

	assert.Equal(t, "TAILORED for one", jobs[0].Enrichment.TailoredResume)
	assert.False(t, jobs[0].Enrichment.Fallback)
	assert.Len(t, jobs[0].Enrichment.Contacts, 2)

	broken := jobs[1].Enrichment
	assert.Equal(t, "ORIGINAL CV", broken.TailoredResume)
	assert.True(t, broken.Fallback)
	assert.ErrorIs(t, broken.Err, model.ErrEnrichment)
	assert.Len(t, broken.Contacts, 2, "contacts are independent of tailoring")
}

func TestEnrichAll_ContactCounts(t *testing.T) {
	three := `[
		{"profile_type":"A","why":"a","search_tip":"a","message_template":"a"},
		{"profile_type":"B","why":"b","search_tip":"b","message_template":"b"},
		{"profile_type":"C","why":"c","search_tip":"c","message_template":"c"}
	]`
	one := `{"contacts":[{"profile_type":"A","why":"a","search_tip":"a","message_template":"a"}]}`
	p := &fakeProvider{
		tailor: func(title string) (string, error) { return "cv", nil },
		contacts: func(title string) (string, error) {
			switch title {
			case "three":
				return three, nil
			case "one":
				return one, nil
			default:
				return "Sorry, I can't help with that.", nil
			}
		},
	}
	jobs := jobsNamed("three", "one", "prose")

	g := NewGenerator(p, profile, testPolicy, 1, discardLogger())
	g.EnrichAll(context.Background(), jobs)

	require.Len(t, jobs[0].Enrichment.Contacts, 2, "extra contacts are truncated")
	assert.Equal(t, "A", jobs[0].Enrichment.Contacts[0].Role)
	assert.Equal(t, "B", jobs[0].Enrichment.Contacts[1].Role)
	assert.False(t, jobs[0].Enrichment.Fallback)

	assert.Empty(t, jobs[1].Enrichment.Contacts, "too few contacts yields none")
	assert.True(t, jobs[1].Enrichment.Fallback)

	assert.Empty(t, jobs[2].Enrichment.Contacts)
	assert.True(t, jobs[2].Enrichment.Fallback)
	assert.Equal(t, "cv", jobs[2].Enrichment.TailoredResume)
}

func TestEnrichAll_StripsMarkup(t *testing.T) {
	p := &fakeProvider{
		tailor: func(title string) (string, error) {
			return "```\n<h1>Jane Doe</h1>\n<p>HR <b>generalist</b></p><script>alert(1)</script>\n```", nil
		},
		contacts: func(title string) (string, error) {
			return strings.Replace(twoContacts, "Owns hiring.", "<a href='x'>Owns</a> hiring.", 1), nil
		},
	}
	jobs := jobsNamed("markup")

	NewGenerator(p, profile, testPolicy, 1, discardLogger()).EnrichAll(context.Background(), jobs)

	e := jobs[0].Enrichment
	assert.Equal(t, "Jane Doe\n\nHR generalist", e.TailoredResume)
	assert.Equal(t, "Owns hiring.", e.Contacts[0].Why)
}

func TestEnrichAll_DeadlineLeavesFallback(t *testing.T) {
	p := &fakeProvider{
		tailor:   func(title string) (string, error) { return "cv", nil },
		contacts: func(title string) (string, error) { return twoContacts, nil },
	}
	jobs := jobsNamed("a", "b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := NewGenerator(p, profile, testPolicy, 1, discardLogger()).EnrichAll(ctx, jobs)

	assert.Equal(t, Stats{Fallback: 2}, stats)
	for _, j := range jobs {
		require.NotNil(t, j.Enrichment)
		assert.Equal(t, "ORIGINAL CV", j.Enrichment.TailoredResume)
		assert.Empty(t, j.Enrichment.Contacts)
		assert.ErrorIs(t, j.Enrichment.Err, context.Canceled)
	}
}
