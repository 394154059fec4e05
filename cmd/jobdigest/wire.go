package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/amishk599/jobdigest/internal/ai"
	"github.com/amishk599/jobdigest/internal/config"
	"github.com/amishk599/jobdigest/internal/enrich"
	"github.com/amishk599/jobdigest/internal/filter"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/normalize"
	"github.com/amishk599/jobdigest/internal/notifier"
	"github.com/amishk599/jobdigest/internal/pipeline"
	"github.com/amishk599/jobdigest/internal/profile"
	"github.com/amishk599/jobdigest/internal/ratelimit"
	"github.com/amishk599/jobdigest/internal/retry"
	"github.com/amishk599/jobdigest/internal/scoring"
	"github.com/amishk599/jobdigest/internal/source"
)

// llmLimiterKey is the rate-limit bucket shared by every LLM call.
const llmLimiterKey = "llm"

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// buildRunner wires the pipeline from cfg. A nil notifier builds the digest
// without delivering it.
func buildRunner(ctx context.Context, cfg *config.Config, n model.Notifier, httpClient *http.Client, logger *slog.Logger) (*pipeline.Runner, error) {
	loader := &profile.Loader{}
	prof, err := loader.Load(ctx, cfg.Profile)
	if err != nil {
		return nil, err
	}
	logger.Info("profile loaded",
		"resume_chars", len(prof.Resume),
		"desired_roles", len(prof.DesiredRoles),
		"exclude_keywords", len(prof.ExcludeKeywords),
	)

	sources := buildSources(cfg, httpClient, logger)
	provider, err := buildProvider(ctx, cfg.LLM, httpClient)
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{
		MaxRetries:     cfg.LLM.MaxRetries,
		BaseDelay:      retry.DefaultPolicy.BaseDelay,
		AttemptTimeout: cfg.LLM.Timeout,
	}

	return pipeline.NewRunner(pipeline.Deps{
		Fetcher:    source.NewFetcher(sources, cfg.Concurrency, logger),
		Normalizer: normalize.New(cfg.Freshness, time.Now),
		Filters:    []model.JobFilter{filter.NewPreferenceFilter(prof)},
		Scorer:     scoring.NewScorer(provider, prof, policy, cfg.LLM.Concurrency, logger),
		Enricher:   enrich.NewGenerator(provider, prof, policy, cfg.LLM.Concurrency, logger),
		Notifier:   n,
		Logger:     logger,
	}, cfg.Queries, pipeline.Options{
		TopN:            cfg.TopN,
		SoftDeadline:    cfg.SoftDeadline,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}), nil
}

// buildSources creates every configured source, each wrapped with retry and
// a per-provider rate limit.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []model.PostingSource {
	var raw []model.PostingSource
	if js := cfg.Sources.JSearch; js.Enabled {
		raw = append(raw, source.NewJSearch(source.JSearchConfig{
			BaseURL:         js.BaseURL,
			APIKey:          js.APIKey,
			NumPages:        js.NumPages,
			EmploymentTypes: js.EmploymentTypes,
			RadiusKm:        js.RadiusKm,
			Widen:           js.Widen,
		}, httpClient))
	}
	if len(cfg.Sources.Greenhouse) > 0 {
		raw = append(raw, source.NewGreenhouse("", boards(cfg.Sources.Greenhouse), httpClient))
	}
	if len(cfg.Sources.Ashby) > 0 {
		raw = append(raw, source.NewAshby("", boards(cfg.Sources.Ashby), httpClient))
	}
	if len(cfg.Sources.Lever) > 0 {
		raw = append(raw, source.NewLever("", boards(cfg.Sources.Lever), httpClient))
	}

	// Shared limiter - every query against the same provider waits on it.
	limiter := ratelimit.NewKeyedLimiter(cfg.Sources.MinDelay)
	policy := retry.Policy{MaxRetries: 1, BaseDelay: retry.DefaultPolicy.BaseDelay, AttemptTimeout: httpClient.Timeout}

	sources := make([]model.PostingSource, 0, len(raw))
	for _, s := range raw {
		sources = append(sources, retry.NewRetrySource(ratelimit.NewLimitedSource(s, limiter), policy, logger))
		logger.Info("registered source", "name", s.Name())
	}
	return sources
}

func boards(cfgs []config.BoardConfig) []source.Board {
	out := make([]source.Board, 0, len(cfgs))
	for _, b := range cfgs {
		out = append(out, source.Board{Token: b.Token, Company: b.Company})
	}
	return out
}

// buildProvider creates the configured LLM client behind the shared limiter.
func buildProvider(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (ai.Provider, error) {
	var p ai.Provider
	switch cfg.Provider {
	case "openai":
		p = ai.NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient)
	case "anthropic":
		p = ai.NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient)
	case "gemini":
		g, err := ai.NewGeminiProvider(ctx, cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
		}
		p = g
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", model.ErrConfig, cfg.Provider)
	}
	return ratelimit.NewLimitedProvider(p, ratelimit.NewKeyedLimiter(cfg.MinDelay), llmLimiterKey), nil
}

// buildNotifier fans out to every enabled channel. It returns nil when none
// is enabled.
func buildNotifier(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, error) {
	if !cfg.Notifiers() {
		return nil, nil
	}

	var ns notifier.Multi
	if e := cfg.Notify.Email; e.Enabled {
		ns = append(ns, notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:              e.Host,
			Port:              e.Port,
			Username:          e.Username,
			Password:          e.Password,
			From:              e.From,
			To:                e.To,
			AttachSpreadsheet: e.AttachSpreadsheet,
		}, logger))
		logger.Info("using email notifier", "host", e.Host, "to", len(e.To))
	}
	if g := cfg.Notify.Gmail; g.Enabled {
		creds, err := os.ReadFile(g.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read gmail credentials: %w", model.ErrConfig, err)
		}
		token, err := os.ReadFile(g.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read gmail token: %w", model.ErrConfig, err)
		}
		gn, err := notifier.NewGmailNotifier(ctx, creds, token, g.From, g.To, g.AttachSpreadsheet, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
		}
		ns = append(ns, gn)
		logger.Info("using gmail notifier", "to", len(g.To))
	}
	if s := cfg.Notify.Slack; s.Enabled {
		ns = append(ns, notifier.NewSlackNotifier(s.WebhookURL, httpClient, logger))
		logger.Info("using slack notifier")
	}
	if cfg.Notify.Log {
		ns = append(ns, notifier.NewLogNotifier(logger))
	}

	if len(ns) == 1 {
		return ns[0], nil
	}
	return ns, nil
}
