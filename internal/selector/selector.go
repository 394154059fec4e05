// Package selector ranks scored jobs and keeps the best N.
package selector

import (
	"slices"

	"github.com/amishk599/jobdigest/internal/model"
)

// DefaultTopN is the digest size when none is configured.
const DefaultTopN = 10

// Select returns up to n jobs ordered by score (highest first), then by
// posting time (newest first, unknown times last), then by Seq. Unscored jobs
// count as 0. The input slice is not modified.
func Select(jobs []model.Job, n int) []model.Job {
	if n <= 0 || len(jobs) == 0 {
		return nil
	}
	ranked := slices.Clone(jobs)
	slices.SortStableFunc(ranked, compare)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func compare(a, b model.Job) int {
	if sa, sb := a.Score(), b.Score(); sa != sb {
		if sa > sb {
			return -1
		}
		return 1
	}

	switch {
	case a.PostedAt != nil && b.PostedAt == nil:
		return -1
	case a.PostedAt == nil && b.PostedAt != nil:
		return 1
	case a.PostedAt != nil && b.PostedAt != nil && !a.PostedAt.Equal(*b.PostedAt):
		if a.PostedAt.After(*b.PostedAt) {
			return -1
		}
		return 1
	}

	return a.Seq - b.Seq
}
