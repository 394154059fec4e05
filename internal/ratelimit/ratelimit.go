package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobdigest/internal/ai"
	"github.com/amishk599/jobdigest/internal/model"
)

// KeyedLimiter enforces a minimum spacing between requests that share a key
// (a search provider or the LLM backend). Different keys never block each other.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minDelay time.Duration
}

// NewKeyedLimiter creates a limiter allowing one request per minDelay per key.
// A zero minDelay disables limiting.
func NewKeyedLimiter(minDelay time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (l *KeyedLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	limit := rate.Inf
	if l.minDelay > 0 {
		limit = rate.Every(l.minDelay)
	}
	lim := rate.NewLimiter(limit, 1)
	l.limiters[key] = lim
	return lim
}

// Wait blocks until a request for key is allowed.
// Returns an error if the context is cancelled while waiting.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if err := l.limiterFor(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", key, err)
	}
	return nil
}

// LimitedSource is a decorator that enforces provider-level rate limiting
// before delegating to the wrapped PostingSource.
type LimitedSource struct {
	inner   model.PostingSource
	limiter *KeyedLimiter
}

// NewLimitedSource wraps a PostingSource. All sources hitting the same
// provider should share one limiter so their requests are spaced together.
func NewLimitedSource(inner model.PostingSource, limiter *KeyedLimiter) *LimitedSource {
	return &LimitedSource{inner: inner, limiter: limiter}
}

func (s *LimitedSource) Name() string { return s.inner.Name() }

func (s *LimitedSource) Search(ctx context.Context, q model.Query) ([]model.RawPosting, error) {
	if err := s.limiter.Wait(ctx, s.inner.Name()); err != nil {
		return nil, err
	}
	return s.inner.Search(ctx, q)
}

// LimitedProvider spaces out text-generation calls.
type LimitedProvider struct {
	inner   ai.Provider
	limiter *KeyedLimiter
	key     string
}

// NewLimitedProvider wraps an ai.Provider with rate limiting under key.
func NewLimitedProvider(inner ai.Provider, limiter *KeyedLimiter, key string) *LimitedProvider {
	return &LimitedProvider{inner: inner, limiter: limiter, key: key}
}

func (p *LimitedProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	if err := p.limiter.Wait(ctx, p.key); err != nil {
		return "", err
	}
	return p.inner.Complete(ctx, req)
}
