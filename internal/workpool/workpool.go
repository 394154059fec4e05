// Package workpool runs indexed tasks with bounded concurrency.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Run calls fn(ctx, i) for every i in [0, n) with at most limit calls in
// flight. Errors are returned per task, in index order; a task that had not
// started when ctx was done is not called and reports ctx.Err(). A task error
// never cancels its siblings.
func Run(ctx context.Context, limit, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = safeCall(ctx, i, fn)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func safeCall(ctx context.Context, i int, fn func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %d panicked: %v", i, r)
		}
	}()
	return fn(ctx, i)
}
