package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobdigest/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSource calls a function on each invocation, tracking call count.
type mockSource struct {
	calls int
	fn    func(attempt int) ([]model.RawPosting, error)
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Search(_ context.Context, _ model.Query) ([]model.RawPosting, error) {
	m.calls++
	return m.fn(m.calls)
}

func fastPolicy() Policy {
	return Policy{MaxRetries: 1, BaseDelay: 10 * time.Millisecond}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.RawPosting, error) {
		return []model.RawPosting{{Title: "Engineer"}}, nil
	}}

	rs := NewRetrySource(mock, fastPolicy(), discardLogger())
	got, err := rs.Search(context.Background(), model.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Engineer" {
		t.Fatalf("unexpected postings: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockSource{fn: func(attempt int) ([]model.RawPosting, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return []model.RawPosting{{}}, nil
	}}

	rs := NewRetrySource(mock, fastPolicy(), discardLogger())
	got, err := rs.Search(context.Background(), model.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.RawPosting, error) {
		return nil, &model.HTTPError{StatusCode: 403, Err: errors.New("forbidden")}
	}}

	rs := NewRetrySource(mock, fastPolicy(), discardLogger())
	_, err := rs.Search(context.Background(), model.Query{})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 403 {
		t.Fatalf("expected HTTPError with status 403, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_AtMostOneRetry(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.RawPosting, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	rs := NewRetrySource(mock, fastPolicy(), discardLogger())
	if _, err := rs.Search(context.Background(), model.Query{}); err == nil {
		t.Fatal("expected error after retry budget spent, got nil")
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls (1 + 1 retry), got %d", mock.calls)
	}
}

func TestRetry_ParseErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), discardLogger(), "score", func(context.Context) (int, error) {
		calls++
		return 0, &model.ParseError{Err: errors.New("bad json")}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetry_AttemptTimeoutIsRetried(t *testing.T) {
	p := Policy{MaxRetries: 1, BaseDelay: time.Millisecond, AttemptTimeout: 20 * time.Millisecond}
	calls := 0
	got, err := Do(context.Background(), p, discardLogger(), "slow", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Fatalf("got %q after %d calls, want ok after 2", got, calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.RawPosting, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rs := NewRetrySource(mock, Policy{MaxRetries: 1, BaseDelay: time.Second}, discardLogger())
	if _, err := rs.Search(ctx, model.Query{}); err == nil {
		t.Fatal("expected error from context cancellation, got nil")
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}
