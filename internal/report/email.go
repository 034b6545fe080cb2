package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/servermedic/medic/internal/baseline"
	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/config"
	"github.com/servermedic/medic/internal/errors"
)

// Mailer delivers the HTML report over SMTP.
type Mailer struct {
	cfg config.EmailSettings
	log *slog.Logger
}

// NewMailer creates a mailer from the email settings.
func NewMailer(cfg config.EmailSettings, log *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// Subject builds the severity-prefixed subject line for a report.
func Subject(r *check.Report) string {
	host := r.Hostname
	if host == "" {
		host = "server"
	}
	switch {
	case r.HasCritical():
		return fmt.Sprintf("[CRITICAL] %s: %d critical findings", host, r.Summary.Critical)
	case r.HasWarnings():
		return fmt.Sprintf("[WARNING] %s: %d warnings", host, r.Summary.Warning)
	default:
		return fmt.Sprintf("[OK] %s: all checks passed", host)
	}
}

// Send renders the HTML report and delivers it to the configured recipients.
// STARTTLS is attempted and falls back to plaintext when the server offers
// none.
func (m *Mailer) Send(ctx context.Context, r *check.Report, diff *baseline.Diff) error {
	if m.cfg.SMTPHost == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "email delivery requires email.smtp_host")
	}
	if len(m.cfg.To) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "email delivery requires at least one recipient in email.to")
	}

	var body bytes.Buffer
	if err := WriteHTML(&body, r, diff); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = "medic@localhost"
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return errors.Wrapf(err, "invalid sender address %q", from)
	}
	if err := msg.To(m.cfg.To...); err != nil {
		return errors.Wrap(err, "invalid recipient address")
	}
	msg.Subject(Subject(r))
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if m.cfg.SMTPPort > 0 {
		opts = append(opts, mail.WithPort(m.cfg.SMTPPort))
	}
	if m.cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.SMTPUser),
			mail.WithPassword(m.cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return errors.Wrap(err, "creating SMTP client")
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrapf(err, "sending report email via %s", m.cfg.SMTPHost)
	}

	m.log.Info("email report sent",
		"to", strings.Join(m.cfg.To, ", "),
		"subject", Subject(r))
	return nil
}
