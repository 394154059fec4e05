package runlock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RunsAndReleases(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "run.lock"))

	calls := 0
	for range 2 {
		err := l.Do(context.Background(), func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestDo_NestedRunIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	outer, inner := New(path), New(path)

	var innerErr error
	innerCalled := false
	err := outer.Do(context.Background(), func(ctx context.Context) error {
		innerErr = inner.Do(ctx, func(context.Context) error {
			innerCalled = true
			return nil
		})
		return nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, innerErr, ErrHeld)
	assert.False(t, innerCalled)
}

func TestDo_ReturnsRunError(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nested", "run.lock"))
	boom := errors.New("boom")

	err := l.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	// The lock was released despite the failure.
	assert.NoError(t, l.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, "jobdigest.lock", filepath.Base(New("").Path()))
}
