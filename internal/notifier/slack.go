package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobdigest/internal/digest"
	"github.com/amishk599/jobdigest/internal/httpx"
	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/normalize"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts a digest summary to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each digest to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send posts the whole digest as one Block Kit message. A 429 is retried
// once after the advertised delay.
func (s *SlackNotifier) Send(ctx context.Context, d model.Digest) error {
	body, err := json.Marshal(buildPayload(d))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	err = s.post(ctx, body)
	var httpErr *model.HTTPError
	if asHTTPError(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		wait := httpErr.RetryAfter
		if wait <= 0 {
			wait = time.Second
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after", wait)
		select {
		case <-ctx.Done():
			return fmt.Errorf("post to slack: %w", ctx.Err())
		case <-time.After(wait):
		}
		err = s.post(ctx, body)
	}
	if err != nil {
		return err
	}

	s.logger.Info("slack digest sent", "run_id", d.RunID, "jobs", len(d.Jobs))
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpx.StatusError(resp, "post to slack")
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string         `json:"type"`
	Text      *slackText     `json:"text,omitempty"`
	Fields    []slackText    `json:"fields,omitempty"`
	Elements  []slackElement `json:"elements,omitempty"`
	Accessory *slackElement  `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url,omitempty"`
	Style string    `json:"style,omitempty"`
}

// maxSlackText keeps a section under Slack's 3000 character limit.
const maxSlackText = 2900

func buildPayload(d model.Digest) slackPayload {
	subject := digest.Subject(d)
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: subject},
		},
	}

	if len(d.Jobs) == 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "No matching jobs today."},
		})
	}

	for i, j := range d.Jobs {
		text := fmt.Sprintf("*#%d %s*  `%d/100`\n%s", i+1, escapeMrkdwn(j.Title), j.Score(), escapeMrkdwn(j.Company))
		if j.Location != "" {
			text += " · " + escapeMrkdwn(j.Location)
		}
		if j.Match != nil && j.Match.Reason != "" {
			text += "\n_" + escapeMrkdwn(j.Match.Reason) + "_"
		}
		if j.Enrichment != nil && len(j.Enrichment.Contacts) > 0 {
			text += "\n*Contact:* "
			for k, c := range j.Enrichment.Contacts {
				if k > 0 {
					text += ", "
				}
				text += escapeMrkdwn(c.Role)
			}
		}
		text = normalize.Truncate(text, maxSlackText)

		block := slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		}
		if j.URL != "" {
			block.Accessory = &slackElement{
				Type:  "button",
				Text:  slackText{Type: "plain_text", Text: "Apply"},
				URL:   j.URL,
				Style: "primary",
			}
		}
		blocks = append(blocks, block, slackBlock{Type: "divider"})
	}

	return slackPayload{Text: subject, Blocks: blocks}
}

// escapeMrkdwn escapes the characters Slack treats as control sequences.
func escapeMrkdwn(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
