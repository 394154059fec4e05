package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobdigest/internal/model"
)

// Policy bounds how an external call is retried.
type Policy struct {
	MaxRetries     int           // additional attempts after the first failure
	BaseDelay      time.Duration // delay before the first retry, doubled per retry
	AttemptTimeout time.Duration // per-attempt deadline, zero for none
}

// DefaultPolicy allows a single retry, matching the provider contracts.
var DefaultPolicy = Policy{MaxRetries: 1, BaseDelay: 2 * time.Second, AttemptTimeout: 30 * time.Second}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent. Each attempt gets its own timeout derived from ctx.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	v, err := attempt(ctx, p, fn)
	if err == nil {
		return v, nil
	}
	if !isRetryable(ctx, err) {
		return zero, err
	}

	lastErr := err
	for n := 1; n <= p.MaxRetries; n++ {
		delay := backoffDelay(p.BaseDelay, n, lastErr)

		logger.Warn("retrying after transient error",
			"op", op,
			"attempt", n,
			"max_retries", p.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		v, err = attempt(ctx, p, fn)
		if err == nil {
			return v, nil
		}
		if !isRetryable(ctx, err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

func attempt[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(actx)
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func backoffDelay(base time.Duration, attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is a transient failure worth retrying while
// the caller's ctx is still alive.
func isRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// A malformed response will be malformed again.
	var parseErr *model.ParseError
	if errors.As(err, &parseErr) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Per-attempt timeouts, network and DNS errors.
	return true
}
