// Package scoring rates jobs against the candidate profile with an LLM.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/amishk599/jobdigest/internal/ai"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/retry"
	"github.com/amishk599/jobdigest/internal/workpool"
)

const (
	systemPrompt   = "You rate how well job postings fit a candidate. Reply with JSON only."
	scoreMaxTokens = 300
)

type scoreResponse struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Stats summarizes a scoring pass.
type Stats struct {
	Scored int // jobs with a valid score
	Failed int // jobs defaulted to 0
}

// Scorer asks the provider for a 0-100 match score per job.
type Scorer struct {
	provider    ai.Provider
	profile     model.CandidateProfile
	policy      retry.Policy
	concurrency int
	logger      *slog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(provider ai.Provider, profile model.CandidateProfile, policy retry.Policy, concurrency int, logger *slog.Logger) *Scorer {
	return &Scorer{
		provider:    provider,
		profile:     profile,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ScoreAll sets Match on every job. A job whose call fails, times out,
// returns an unusable response, or is never started before ctx is done gets
// score 0 with the failure recorded. Only when every call failed with a
// provider error does ScoreAll return model.ErrProviderUnavailable.
func (s *Scorer) ScoreAll(ctx context.Context, jobs []model.Job) (Stats, error) {
	errs := workpool.Run(ctx, s.concurrency, len(jobs), func(ctx context.Context, i int) error {
		m, err := s.score(ctx, jobs[i])
		if err != nil {
			return err
		}
		jobs[i].Match = m
		return nil
	})

	var stats Stats
	unavailable := 0
	var lastProviderErr error
	for i, err := range errs {
		if err == nil {
			stats.Scored++
			continue
		}
		stats.Failed++
		if isProviderError(ctx, err) {
			unavailable++
			lastProviderErr = err
		}
		jobs[i].Match = &model.Match{
			Score: 0,
			Err:   fmt.Errorf("%w: %s at %s: %w", model.ErrScoring, jobs[i].Title, jobs[i].Company, err),
		}
		s.logger.Warn("scoring failed, defaulting to 0",
			"title", jobs[i].Title,
			"company", jobs[i].Company,
			"error", err,
		)
	}

	if len(jobs) > 0 && unavailable == len(jobs) {
		return stats, fmt.Errorf("%w: all %d scoring calls failed: %w", model.ErrProviderUnavailable, len(jobs), lastProviderErr)
	}
	return stats, nil
}

func (s *Scorer) score(ctx context.Context, job model.Job) (*model.Match, error) {
	prompt, err := ai.Render(ai.ScoreTemplate, s.profile, job)
	if err != nil {
		return nil, err
	}

	resp, err := retry.Do(ctx, s.policy, s.logger, "score", func(ctx context.Context) (scoreResponse, error) {
		text, err := s.provider.Complete(ctx, ai.Request{
			System:    systemPrompt,
			Prompt:    prompt,
			Schema:    ai.ScoreSchema,
			MaxTokens: scoreMaxTokens,
		})
		if err != nil {
			return scoreResponse{}, err
		}
		var out scoreResponse
		if err := ai.DecodeJSON(text, ai.ScoreSchema, &out); err != nil {
			return scoreResponse{}, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	score := math.Round(resp.Score)
	if score < 0 || score > 100 || math.IsNaN(score) {
		return nil, &model.ParseError{Err: fmt.Errorf("score %v out of range 0-100", resp.Score)}
	}

	s.logger.Debug("job scored",
		"title", job.Title,
		"company", job.Company,
		"score", int(score),
	)
	return &model.Match{Score: int(score), Reason: resp.Reason}, nil
}

// isProviderError reports whether err means the provider could not be
// reached or refused the call. Malformed responses and the run's own
// deadline do not count.
func isProviderError(ctx context.Context, err error) bool {
	var parseErr *model.ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	return true
}
