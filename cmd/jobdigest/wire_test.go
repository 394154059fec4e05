package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobdigest/internal/config"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/notifier"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildSources(t *testing.T) {
	cfg := &config.Config{Sources: config.SourcesConfig{
		JSearch:    config.JSearchConfig{Enabled: true, APIKey: "k"},
		Greenhouse: []config.BoardConfig{{Token: "acme"}},
		Ashby:      []config.BoardConfig{{Token: "beta", Company: "Beta"}},
		Lever:      []config.BoardConfig{{Token: "gamma"}},
	}}

	sources := buildSources(cfg, &http.Client{Timeout: time.Second}, discardLogger())

	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"jsearch", "greenhouse", "ashby", "lever"}, names)
}

func TestBuildProvider(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "gemini"} {
		t.Run(name, func(t *testing.T) {
			p, err := buildProvider(context.Background(), config.LLMConfig{Provider: name, APIKey: "k", Model: "m"}, http.DefaultClient)
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}

	_, err := buildProvider(context.Background(), config.LLMConfig{Provider: "mistral"}, http.DefaultClient)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestBuildNotifier(t *testing.T) {
	ctx := context.Background()

	n, err := buildNotifier(ctx, &config.Config{}, http.DefaultClient, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = buildNotifier(ctx, &config.Config{Notify: config.NotifyConfig{Log: true}}, http.DefaultClient, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &notifier.LogNotifier{}, n)

	n, err = buildNotifier(ctx, &config.Config{Notify: config.NotifyConfig{
		Log:   true,
		Slack: config.SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/x"},
	}}, http.DefaultClient, discardLogger())
	require.NoError(t, err)
	require.IsType(t, notifier.Multi{}, n)
	assert.Len(t, n.(notifier.Multi), 2)
}

func TestBuildNotifier_MissingGmailFiles(t *testing.T) {
	cfg := &config.Config{Notify: config.NotifyConfig{Gmail: config.GmailConfig{
		Enabled:         true,
		CredentialsFile: t.TempDir() + "/missing.json",
	}}}
	_, err := buildNotifier(context.Background(), cfg, http.DefaultClient, discardLogger())
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestBoardLabel(t *testing.T) {
	assert.Equal(t, "acme", boardLabel("acme", ""))
	assert.Equal(t, "acme", boardLabel("acme", "Acme"))
	assert.Equal(t, "Acme Corp (acme)", boardLabel("acme", "Acme Corp"))
}
