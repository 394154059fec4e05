package notifier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/amishk599/jobdigest/internal/digest"
	"github.com/amishk599/jobdigest/internal/export"
	"github.com/amishk599/jobdigest/internal/model"
)

// Ensure EmailNotifier implements model.Notifier.
var _ model.Notifier = (*EmailNotifier)(nil)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// EmailConfig describes the SMTP relay and the envelope.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	// AttachSpreadsheet adds an .xlsx of every ranked job to the message.
	AttachSpreadsheet bool
}

// EmailNotifier sends the digest as a multipart HTML + text email over SMTP
// with mandatory STARTTLS and PLAIN auth.
type EmailNotifier struct {
	cfg    EmailConfig
	logger *slog.Logger
	dial   func(ctx context.Context, msg *mail.Msg) error
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(cfg EmailConfig, logger *slog.Logger) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg, logger: logger}
	n.dial = n.dialAndSend
	return n
}

// Send builds and sends the digest email.
func (n *EmailNotifier) Send(ctx context.Context, d model.Digest) error {
	msg, err := buildMessage(n.cfg.From, n.cfg.To, d, n.cfg.AttachSpreadsheet)
	if err != nil {
		return err
	}
	if err := n.dial(ctx, msg); err != nil {
		return fmt.Errorf("send email via %s:%d: %w", n.cfg.Host, n.cfg.Port, err)
	}
	n.logger.Info("email sent", "to", n.cfg.To, "run_id", d.RunID, "jobs", len(d.Jobs))
	return nil
}

func (n *EmailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// buildMessage renders d into a multipart/alternative message, optionally
// with the spreadsheet attached. An empty from leaves the From header unset.
func buildMessage(from string, to []string, d model.Digest, attach bool) (*mail.Msg, error) {
	html, err := digest.HTML(d)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	// Gmail fills in the authorized sender when From is absent.
	if from != "" {
		if err := msg.From(from); err != nil {
			return nil, fmt.Errorf("invalid from address %q: %w", from, err)
		}
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(digest.Subject(d))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, digest.Text(d))
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	if attach {
		data, err := export.Workbook(d)
		if err != nil {
			return nil, err
		}
		if err := msg.AttachReader(export.FileName(d), bytes.NewReader(data),
			mail.WithFileContentType(mail.ContentType(xlsxContentType))); err != nil {
			return nil, fmt.Errorf("attach spreadsheet: %w", err)
		}
	}
	return msg, nil
}
