package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobdigest/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the digest to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each digest entry via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs one line per job with rank, score, company, title, location and
// URL. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Send(ctx context.Context, d model.Digest) error {
	n.logger.Info("digest", "run_id", d.RunID, "jobs", len(d.Jobs))
	for i, j := range d.Jobs {
		args := []any{
			"rank", i + 1,
			"score", j.Score(),
			"company", j.Company,
			"title", j.Title,
			"location", j.Location,
			"url", j.URL,
		}
		if j.PostedAt != nil {
			args = append(args, "posted_at", *j.PostedAt)
		}
		if j.Enrichment != nil {
			args = append(args, "contacts", len(j.Enrichment.Contacts), "fallback", j.Enrichment.Fallback)
		}
		n.logger.InfoContext(ctx, "digest job", args...)
	}
	return nil
}
