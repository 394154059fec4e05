// Package source queries job providers and merges their postings.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/workpool"
)

// QueryFailure records one (query, source) pair that produced no postings.
type QueryFailure struct {
	QueryIndex int
	Source     string
	Err        error
}

// FetchResult holds merged postings in query-submission order.
type FetchResult struct {
	Postings []model.RawPosting
	Failures []QueryFailure
}

// Fetcher fans every query out to every source with bounded concurrency.
type Fetcher struct {
	sources     []model.PostingSource
	concurrency int
	logger      *slog.Logger
}

// NewFetcher creates a Fetcher. concurrency bounds in-flight searches.
func NewFetcher(sources []model.PostingSource, concurrency int, logger *slog.Logger) *Fetcher {
	return &Fetcher{sources: sources, concurrency: concurrency, logger: logger}
}

// Fetch runs all queries and merges the results by query index, then source
// order, then provider order. Failed searches are logged and skipped; if no
// search succeeds the error wraps model.ErrAllSourcesFailed.
func (f *Fetcher) Fetch(ctx context.Context, queries []model.Query) (*FetchResult, error) {
	if len(queries) == 0 || len(f.sources) == 0 {
		return nil, fmt.Errorf("fetch: no queries or sources configured: %w", model.ErrConfig)
	}

	n := len(queries) * len(f.sources)
	results := make([][]model.RawPosting, n)

	errs := workpool.Run(ctx, f.concurrency, n, func(ctx context.Context, i int) error {
		qi, si := i/len(f.sources), i%len(f.sources)
		postings, err := f.sources[si].Search(ctx, queries[qi])
		if err != nil {
			return err
		}
		for k := range postings {
			postings[k].QueryIndex = qi
		}
		results[i] = postings
		return nil
	})

	res := &FetchResult{}
	succeeded := 0
	for i, err := range errs {
		qi, si := i/len(f.sources), i%len(f.sources)
		src := f.sources[si].Name()
		if err != nil {
			err = fmt.Errorf("%w: %s query %d: %w", model.ErrSourceQuery, src, qi, err)
			f.logger.Warn("query failed, skipping",
				"source", src,
				"keywords", queries[qi].Keywords,
				"location", queries[qi].Location,
				"error", err,
			)
			res.Failures = append(res.Failures, QueryFailure{QueryIndex: qi, Source: src, Err: err})
			continue
		}
		succeeded++
		f.logger.Debug("query done",
			"source", src,
			"keywords", queries[qi].Keywords,
			"postings", len(results[i]),
		)
		res.Postings = append(res.Postings, results[i]...)
	}

	if succeeded == 0 {
		return res, fmt.Errorf("fetch %d queries: %w", len(queries), model.ErrAllSourcesFailed)
	}
	return res, nil
}
