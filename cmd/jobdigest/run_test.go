package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobdigest/internal/pipeline"
	"github.com/amishk599/jobdigest/internal/runlock"
)

func TestLockedRun_ReturnsReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	want := &pipeline.Report{RunID: "r1"}

	rep, err := lockedRun(context.Background(), path, func(context.Context) (*pipeline.Report, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Same(t, want, rep)
}

func TestLockedRun_SkipsWhileAnotherRunHoldsLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	called := false
	var innerErr error
	err := runlock.New(path).Do(context.Background(), func(ctx context.Context) error {
		_, innerErr = lockedRun(ctx, path, func(context.Context) (*pipeline.Report, error) {
			called = true
			return &pipeline.Report{}, nil
		})
		return nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, innerErr, runlock.ErrHeld)
	assert.False(t, called)
}
