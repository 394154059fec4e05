package retry

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobdigest/internal/model"
)

// RetrySource is a decorator that retries transient query failures before
// giving up on that query.
type RetrySource struct {
	inner  model.PostingSource
	policy Policy
	logger *slog.Logger
}

// NewRetrySource wraps a PostingSource with retry logic.
func NewRetrySource(inner model.PostingSource, policy Policy, logger *slog.Logger) *RetrySource {
	return &RetrySource{inner: inner, policy: policy, logger: logger}
}

func (s *RetrySource) Name() string { return s.inner.Name() }

// Search runs the wrapped query under the retry policy.
func (s *RetrySource) Search(ctx context.Context, q model.Query) ([]model.RawPosting, error) {
	return Do(ctx, s.policy, s.logger, s.inner.Name()+" search", func(ctx context.Context) ([]model.RawPosting, error) {
		return s.inner.Search(ctx, q)
	})
}
