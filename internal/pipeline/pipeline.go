// Package pipeline runs one stateless digest run: fetch, normalize, filter,
// score, select, enrich, assemble and deliver.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobdigest/internal/digest"
	"github.com/amishk599/jobdigest/internal/enrich"
	"github.com/amishk599/jobdigest/internal/filter"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/normalize"
	"github.com/amishk599/jobdigest/internal/scoring"
	"github.com/amishk599/jobdigest/internal/selector"
	"github.com/amishk599/jobdigest/internal/source"
)

// Fetcher runs the configured queries against every source.
type Fetcher interface {
	Fetch(ctx context.Context, queries []model.Query) (*source.FetchResult, error)
}

// Scorer sets Match on each job.
type Scorer interface {
	ScoreAll(ctx context.Context, jobs []model.Job) (scoring.Stats, error)
}

// Enricher sets Enrichment on each job.
type Enricher interface {
	EnrichAll(ctx context.Context, jobs []model.Job) enrich.Stats
}

// Options bounds a run.
type Options struct {
	TopN            int
	SoftDeadline    time.Duration // bounds scoring and enrichment; zero for none
	DeliveryTimeout time.Duration
}

// Deps are the collaborators of a Runner. Notifier may be nil, in which case
// the digest is built but not delivered.
type Deps struct {
	Fetcher    Fetcher
	Normalizer *normalize.Normalizer
	Filters    []model.JobFilter
	Scorer     Scorer
	Enricher   Enricher
	Notifier   model.Notifier
	Clock      func() time.Time
	NewRunID   func() string
	Logger     *slog.Logger
}

// Report describes what one run did.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched        int
	QueryFailures  []source.QueryFailure
	Stale          int
	Duplicates     int
	Excluded       int
	Candidates     int
	ScoreFailures  int
	Selected       int
	EnrichFallback int

	Digest      *model.Digest
	Delivered   bool
	DeliveryErr error
}

// Runner holds no state between runs; Run may be called repeatedly.
type Runner struct {
	deps    Deps
	queries []model.Query
	opts    Options
}

// NewRunner creates a Runner for the given queries.
func NewRunner(deps Deps, queries []model.Query, opts Options) *Runner {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	if opts.TopN <= 0 {
		opts.TopN = selector.DefaultTopN
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = time.Minute
	}
	return &Runner{deps: deps, queries: queries, opts: opts}
}

// Run executes one digest run. Per-item failures are recorded in the report
// and never abort the run. The error is non-nil only when every source
// failed, the scoring provider was unavailable, or delivery failed; in the
// last case the report still carries the digest.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: r.deps.NewRunID(), StartedAt: r.deps.Clock()}
	logger := r.deps.Logger.With("run_id", rep.RunID)
	logger.Info("run started", "queries", len(r.queries))

	fetched, err := r.deps.Fetcher.Fetch(ctx, r.queries)
	if fetched != nil {
		rep.Fetched = len(fetched.Postings)
		rep.QueryFailures = fetched.Failures
	}
	if err != nil {
		return r.finish(rep, logger, fmt.Errorf("fetch: %w", err))
	}

	normalized := r.deps.Normalizer.Normalize(fetched.Postings)
	rep.Stale = normalized.Stale
	rep.Duplicates = normalized.Duplicates

	jobs := filter.Apply(normalized.Jobs, r.deps.Filters...)
	rep.Excluded = len(normalized.Jobs) - len(jobs)
	rep.Candidates = len(jobs)
	logger.Info("postings normalized",
		"fetched", rep.Fetched,
		"stale", rep.Stale,
		"duplicates", rep.Duplicates,
		"excluded", rep.Excluded,
		"candidates", rep.Candidates,
	)

	var workCtx context.Context
	var cancel context.CancelFunc
	if r.opts.SoftDeadline > 0 {
		workCtx, cancel = context.WithTimeout(ctx, r.opts.SoftDeadline)
	} else {
		workCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	stats, err := r.deps.Scorer.ScoreAll(workCtx, jobs)
	rep.ScoreFailures = stats.Failed
	if err != nil {
		return r.finish(rep, logger, fmt.Errorf("score: %w", err))
	}

	ranked := selector.Select(jobs, len(jobs))
	selected := selector.Select(jobs, r.opts.TopN)
	rep.Selected = len(selected)

	if len(selected) > 0 {
		es := r.deps.Enricher.EnrichAll(workCtx, selected)
		rep.EnrichFallback = es.Fallback
	}
	if errors.Is(workCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("soft deadline reached, pending work used fallback content", "deadline", r.opts.SoftDeadline)
	}
	cancel()

	d := digest.Build(rep.RunID, r.deps.Clock(), selected)
	d.Ranked = ranked
	rep.Digest = &d

	if len(selected) == 0 {
		logger.Warn("no matching jobs today, skipping delivery")
		return r.finish(rep, logger, nil)
	}
	if r.deps.Notifier == nil {
		return r.finish(rep, logger, nil)
	}

	deliverCtx, cancelDeliver := context.WithTimeout(ctx, r.opts.DeliveryTimeout)
	defer cancelDeliver()
	if err := r.deps.Notifier.Send(deliverCtx, d); err != nil {
		rep.DeliveryErr = err
		return r.finish(rep, logger, fmt.Errorf("%w: %w", model.ErrDelivery, err))
	}
	rep.Delivered = true
	return r.finish(rep, logger, nil)
}

func (r *Runner) finish(rep *Report, logger *slog.Logger, err error) (*Report, error) {
	rep.FinishedAt = r.deps.Clock()
	args := []any{
		"duration", rep.FinishedAt.Sub(rep.StartedAt),
		"query_failures", len(rep.QueryFailures),
		"score_failures", rep.ScoreFailures,
		"selected", rep.Selected,
		"enrich_fallback", rep.EnrichFallback,
		"delivered", rep.Delivered,
	}
	if err != nil {
		logger.Error("run failed", append(args, "error", err)...)
		return rep, err
	}
	logger.Info("run complete", args...)
	return rep, nil
}
