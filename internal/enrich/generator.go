// Package enrich generates per-job content: a tailored résumé and
// networking contacts.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amishk599/jobdigest/internal/ai"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/normalize"
	"github.com/amishk599/jobdigest/internal/retry"
	"github.com/amishk599/jobdigest/internal/workpool"
)

const (
	// ContactsPerJob is the number of contacts each digest entry carries.
	ContactsPerJob = 2

	tailorMaxTokens   = 1500
	contactsMaxTokens = 600
)

// Stats summarizes an enrichment pass.
type Stats struct {
	Complete int
	Fallback int
}

// Generator produces enrichment for selected jobs.
type Generator struct {
	provider    ai.Provider
	profile     model.CandidateProfile
	policy      retry.Policy
	concurrency int
	logger      *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(provider ai.Provider, profile model.CandidateProfile, policy retry.Policy, concurrency int, logger *slog.Logger) *Generator {
	return &Generator{
		provider:    provider,
		profile:     profile,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
	}
}

// EnrichAll sets Enrichment on every job. Failures never propagate: a job
// whose tailoring fails keeps the original résumé, a job whose contacts fail
// gets none, and jobs not reached before ctx is done get both fallbacks.
func (g *Generator) EnrichAll(ctx context.Context, jobs []model.Job) Stats {
	errs := workpool.Run(ctx, g.concurrency, len(jobs), func(ctx context.Context, i int) error {
		jobs[i].Enrichment = g.enrich(ctx, jobs[i])
		return nil
	})

	var stats Stats
	for i, err := range errs {
		if err != nil {
			jobs[i].Enrichment = g.fallback(jobs[i], err)
		}
		if jobs[i].Enrichment.Fallback {
			stats.Fallback++
		} else {
			stats.Complete++
		}
	}
	return stats
}

func (g *Generator) enrich(ctx context.Context, job model.Job) *model.Enrichment {
	e := &model.Enrichment{}

	resume, err := g.tailor(ctx, job)
	if err != nil {
		e.TailoredResume = g.profile.Resume
		e.Fallback = true
		e.Err = fmt.Errorf("%w: tailor résumé for %s at %s: %w", model.ErrEnrichment, job.Title, job.Company, err)
		g.logger.Warn("résumé tailoring failed, using original",
			"title", job.Title,
			"company", job.Company,
			"error", err,
		)
	} else {
		e.TailoredResume = resume
	}

	contacts, err := g.contacts(ctx, job)
	if err != nil {
		e.Contacts = nil
		e.Fallback = true
		if e.Err == nil {
			e.Err = fmt.Errorf("%w: contacts for %s at %s: %w", model.ErrEnrichment, job.Title, job.Company, err)
		}
		g.logger.Warn("contact suggestions failed, leaving empty",
			"title", job.Title,
			"company", job.Company,
			"error", err,
		)
	} else {
		e.Contacts = contacts
	}
	return e
}

func (g *Generator) fallback(job model.Job, err error) *model.Enrichment {
	g.logger.Warn("enrichment skipped, using fallback content",
		"title", job.Title,
		"company", job.Company,
		"error", err,
	)
	return &model.Enrichment{
		TailoredResume: g.profile.Resume,
		Fallback:       true,
		Err:            fmt.Errorf("%w: %s at %s: %w", model.ErrEnrichment, job.Title, job.Company, err),
	}
}

func (g *Generator) tailor(ctx context.Context, job model.Job) (string, error) {
	prompt, err := ai.Render(ai.TailorTemplate, g.profile, job)
	if err != nil {
		return "", err
	}
	return retry.Do(ctx, g.policy, g.logger, "tailor résumé", func(ctx context.Context) (string, error) {
		text, err := g.provider.Complete(ctx, ai.Request{Prompt: prompt, MaxTokens: tailorMaxTokens})
		if err != nil {
			return "", err
		}
		text = normalize.PlainText(stripFences(text))
		if text == "" {
			return "", &model.ParseError{Err: errors.New("empty résumé")}
		}
		return text, nil
	})
}

type contactsResponse struct {
	Contacts []model.Contact `json:"contacts"`
}

func (g *Generator) contacts(ctx context.Context, job model.Job) ([]model.Contact, error) {
	prompt, err := ai.Render(ai.ContactsTemplate, g.profile, job)
	if err != nil {
		return nil, err
	}
	return retry.Do(ctx, g.policy, g.logger, "suggest contacts", func(ctx context.Context) ([]model.Contact, error) {
		text, err := g.provider.Complete(ctx, ai.Request{
			Prompt:    prompt,
			Schema:    ai.ContactsSchema,
			MaxTokens: contactsMaxTokens,
		})
		if err != nil {
			return nil, err
		}

		// Some models answer with the bare array.
		cleaned := ai.CleanJSON(text)
		if strings.HasPrefix(cleaned, "[") {
			cleaned = `{"contacts":` + cleaned + `}`
		}
		var out contactsResponse
		if err := ai.DecodeJSON(cleaned, ai.ContactsSchema, &out); err != nil {
			return nil, err
		}
		if len(out.Contacts) < ContactsPerJob {
			return nil, &model.ParseError{Err: fmt.Errorf("got %d contacts, want %d", len(out.Contacts), ContactsPerJob)}
		}

		contacts := out.Contacts[:ContactsPerJob]
		for i := range contacts {
			contacts[i] = sanitizeContact(contacts[i])
		}
		return contacts, nil
	})
}

func sanitizeContact(c model.Contact) model.Contact {
	return model.Contact{
		Role:      normalize.CollapseWhitespace(normalize.PlainText(c.Role)),
		Why:       normalize.CollapseWhitespace(normalize.PlainText(c.Why)),
		SearchTip: normalize.CollapseWhitespace(normalize.PlainText(c.SearchTip)),
		Message:   normalize.PlainText(c.Message),
	}
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
