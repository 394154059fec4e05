package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobdigest/internal/ai"
	"github.com/amishk599/jobdigest/internal/enrich"
	"github.com/amishk599/jobdigest/internal/filter"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/normalize"
	"github.com/amishk599/jobdigest/internal/retry"
	"github.com/amishk599/jobdigest/internal/scoring"
	"github.com/amishk599/jobdigest/internal/source"
)

var runTime = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

var testPolicy = retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// querySource returns fixed postings per query keywords.
type querySource struct {
	name    string
	byQuery map[string][]model.RawPosting
	err     error
}

func (s *querySource) Name() string { return s.name }

func (s *querySource) Search(ctx context.Context, q model.Query) ([]model.RawPosting, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.RawPosting(nil), s.byQuery[q.Keywords]...), nil
}

func role(i int) model.RawPosting {
	posted := runTime.Add(-time.Duration(i) * time.Minute)
	return model.RawPosting{
		Provider: "fake",
		Title:    fmt.Sprintf("Role %d", i),
		Company:  "Acme",
		Location: "Milan, IT",
		URL:      fmt.Sprintf("https://acme.example/%d", i),
		PostedAt: &posted,
	}
}

// twelvePostings spreads Role 0..9 over three queries, with Role 2 and
// Role 7 seen twice.
func twelvePostings() *querySource {
	return &querySource{name: "fake", byQuery: map[string][]model.RawPosting{
		"hr":     {role(0), role(1), role(2), role(3)},
		"talent": {role(4), role(5), role(2), role(6)},
		"remote": {role(7), role(8), role(9), role(7)},
	}}
}

var queries = []model.Query{
	{Keywords: "hr", Location: "Milan"},
	{Keywords: "talent", Location: "Milan"},
	{Keywords: "remote", Location: "Europe"},
}

var titleRe = regexp.MustCompile(`Role (\d+)`)

// scriptedProvider scores "Role i" as 50+4i, tailors every résumé, and
// fails tailoring for one title.
type scriptedProvider struct {
	mu         sync.Mutex
	failTailor string
	scoreErr   error
}

func (p *scriptedProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	m := titleRe.FindStringSubmatch(req.Prompt)
	if m == nil {
		return "", errors.New("no title in prompt")
	}
	i, _ := strconv.Atoi(m[1])

	switch req.Schema {
	case ai.ScoreSchema:
		if p.scoreErr != nil {
			return "", p.scoreErr
		}
		return fmt.Sprintf(`{"score": %d, "reason": "fit %d"}`, 50+4*i, i), nil
	case ai.ContactsSchema:
		return `{"contacts":[
			{"profile_type":"Recruiter","why":"w","search_tip":"s","message_template":"m"},
			{"profile_type":"HR Lead","why":"w","search_tip":"s","message_template":"m"}
		]}`, nil
	default:
		if m[0] == p.failTailor {
			return "", &model.HTTPError{StatusCode: 500, Err: errors.New("boom")}
		}
		return "TAILORED " + m[0], nil
	}
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []model.Digest
	err error
}

func (n *recordingNotifier) Send(ctx context.Context, d model.Digest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, d)
	return n.err
}

func newRunner(src model.PostingSource, provider ai.Provider, n model.Notifier, opts Options, filters ...model.JobFilter) *Runner {
	logger := discardLogger()
	profile := model.CandidateProfile{Resume: "ORIGINAL CV", Preferences: "Milan"}
	return NewRunner(Deps{
		Fetcher:    source.NewFetcher([]model.PostingSource{src}, 3, logger),
		Normalizer: normalize.New(24*time.Hour, func() time.Time { return runTime }),
		Filters:    filters,
		Scorer:     scoring.NewScorer(provider, profile, testPolicy, 3, logger),
		Enricher:   enrich.NewGenerator(provider, profile, testPolicy, 3, logger),
		Notifier:   n,
		Clock:      func() time.Time { return runTime },
		NewRunID:   func() string { return "run-test" },
		Logger:     logger,
	}, queries, opts)
}

func TestRun_EndToEnd(t *testing.T) {
	n := &recordingNotifier{}
	r := newRunner(twelvePostings(), &scriptedProvider{failTailor: "Role 4"}, n, Options{TopN: 10})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-test", rep.RunID)
	assert.Equal(t, 12, rep.Fetched)
	assert.Equal(t, 2, rep.Duplicates)
	assert.Equal(t, 10, rep.Candidates)
	assert.Equal(t, 10, rep.Selected)
	assert.Equal(t, 1, rep.EnrichFallback)
	assert.True(t, rep.Delivered)

	require.Len(t, n.got, 1)
	d := n.got[0]
	require.Len(t, d.Jobs, 10)
	assert.Len(t, d.Ranked, 10)

	for k, j := range d.Jobs {
		want := fmt.Sprintf("Role %d", 9-k)
		assert.Equal(t, want, j.Title, "rank %d", k+1)
		require.NotNil(t, j.Enrichment, j.Title)
		if j.Title == "Role 4" {
			assert.True(t, j.Enrichment.Fallback)
			assert.Equal(t, "ORIGINAL CV", j.Enrichment.TailoredResume)
			continue
		}
		assert.False(t, j.Enrichment.Fallback, j.Title)
		assert.Equal(t, "TAILORED "+j.Title, j.Enrichment.TailoredResume)
		assert.Len(t, j.Enrichment.Contacts, 2)
	}
}

func TestRun_TopNTruncates(t *testing.T) {
	n := &recordingNotifier{}
	r := newRunner(twelvePostings(), &scriptedProvider{}, n, Options{TopN: 3})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Selected)
	require.Len(t, n.got[0].Jobs, 3)
	assert.Equal(t, "Role 9", n.got[0].Jobs[0].Title)
	assert.Len(t, n.got[0].Ranked, 10)
}

func TestRun_FiltersBeforeScoring(t *testing.T) {
	n := &recordingNotifier{}
	exclude := filter.NewPreferenceFilter(model.CandidateProfile{ExcludeKeywords: []string{"9", "8"}})
	r := newRunner(twelvePostings(), &scriptedProvider{}, n, Options{TopN: 10}, exclude)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Excluded)
	assert.Equal(t, "Role 7", n.got[0].Jobs[0].Title)
}

func TestRun_NoJobsSkipsDelivery(t *testing.T) {
	n := &recordingNotifier{}
	r := newRunner(&querySource{name: "empty"}, &scriptedProvider{}, n, Options{})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, n.got)
	assert.False(t, rep.Delivered)
	require.NotNil(t, rep.Digest)
	assert.Empty(t, rep.Digest.Jobs)
}

func TestRun_AllSourcesFailed(t *testing.T) {
	n := &recordingNotifier{}
	r := newRunner(&querySource{name: "down", err: errors.New("dns")}, &scriptedProvider{}, n, Options{})

	rep, err := r.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrAllSourcesFailed)
	assert.Len(t, rep.QueryFailures, 3)
	assert.Empty(t, n.got)
}

func TestRun_ProviderUnavailable(t *testing.T) {
	n := &recordingNotifier{}
	p := &scriptedProvider{scoreErr: &model.HTTPError{StatusCode: 401, Err: errors.New("bad key")}}
	r := newRunner(twelvePostings(), p, n, Options{})

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrProviderUnavailable)
	assert.Empty(t, n.got)
}

func TestRun_DeliveryFailureKeepsDigest(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	r := newRunner(twelvePostings(), &scriptedProvider{}, n, Options{TopN: 10})

	rep, err := r.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrDelivery)
	assert.False(t, rep.Delivered)
	assert.EqualError(t, rep.DeliveryErr, "smtp down")
	require.NotNil(t, rep.Digest)
	assert.Len(t, rep.Digest.Jobs, 10)
}

// slowProvider blocks enrichment calls until the context ends.
type slowProvider struct{ scriptedProvider }

func (p *slowProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	if req.Schema == ai.ScoreSchema {
		return p.scriptedProvider.Complete(ctx, req)
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRun_SoftDeadlineStillDelivers(t *testing.T) {
	n := &recordingNotifier{}
	r := newRunner(twelvePostings(), &slowProvider{}, n, Options{TopN: 10, SoftDeadline: 200 * time.Millisecond})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Delivered)
	assert.Equal(t, 10, rep.EnrichFallback)
	for _, j := range n.got[0].Jobs {
		assert.Equal(t, "ORIGINAL CV", j.Enrichment.TailoredResume)
	}
}

func TestRun_NilNotifierBuildsDigestOnly(t *testing.T) {
	r := newRunner(twelvePostings(), &scriptedProvider{}, nil, Options{TopN: 5})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Delivered)
	assert.Len(t, rep.Digest.Jobs, 5)
}
