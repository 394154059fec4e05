package notifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/amishk599/jobdigest/internal/model"
)

// Ensure GmailNotifier implements model.Notifier.
var _ model.Notifier = (*GmailNotifier)(nil)

// GmailNotifier sends the digest through the Gmail API instead of SMTP. It
// needs an OAuth client (credentials.json) and a previously authorized token
// with a refresh token; access tokens are refreshed automatically.
type GmailNotifier struct {
	service *gmail.Service
	from    string
	to      []string
	attach  bool
	logger  *slog.Logger
}

// NewGmailNotifier builds a Gmail API client from the OAuth client
// credentials and token JSON documents.
func NewGmailNotifier(ctx context.Context, credentialsJSON, tokenJSON []byte, from string, to []string, attach bool, logger *slog.Logger) (*GmailNotifier, error) {
	config, err := google.ConfigFromJSON(credentialsJSON, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(tokenJSON, tok); err != nil {
		return nil, fmt.Errorf("parse gmail token: %w", err)
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}
	return NewGmailNotifierWithService(srv, from, to, attach, logger), nil
}

// NewGmailNotifierWithService wraps an existing Gmail service.
func NewGmailNotifierWithService(srv *gmail.Service, from string, to []string, attach bool, logger *slog.Logger) *GmailNotifier {
	return &GmailNotifier{service: srv, from: from, to: to, attach: attach, logger: logger}
}

// Send renders the same MIME message as the SMTP notifier and submits it
// as the authorized user.
func (n *GmailNotifier) Send(ctx context.Context, d model.Digest) error {
	msg, err := buildMessage(n.from, n.to, d, n.attach)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode gmail message: %w", err)
	}

	sent, err := n.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(buf.Bytes()),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	n.logger.Info("gmail sent", "to", n.to, "message_id", sent.Id, "run_id", d.RunID, "jobs", len(d.Jobs))
	return nil
}
