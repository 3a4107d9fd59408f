package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"neofab/internal/config"
	"neofab/internal/core"
)

// SMTPNotifier delivers status-change notifications as short plaintext mails.
// No authentication: it is meant for a local relay or an internal smarthost.
type SMTPNotifier struct {
	addr       string
	from       string
	recipients []string

	// send is swapped out in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a notifier from SMTP configuration.
func NewSMTPNotifier(cfg config.NotifyConfig) (*SMTPNotifier, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp notifier requires smtp_host to be set")
	}
	if cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("smtp notifier requires smtp_from to be set")
	}
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("smtp notifier requires at least one recipient")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 25
	}
	return &SMTPNotifier{
		addr:       fmt.Sprintf("%s:%d", cfg.SMTPHost, port),
		from:       cfg.SMTPFrom,
		recipients: cfg.Recipients,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}, nil
}

// Notify sends one mail describing the transition. The body is a hint; the
// authoritative record is the status event ledger.
func (n *SMTPNotifier) Notify(ctx context.Context, note core.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("NeoFab: %s is now %s", note.Title, note.To)
	if note.Title == "" {
		subject = fmt.Sprintf("NeoFab: %s %s is now %s", note.Subject.Type, note.Subject.ID, note.To)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", n.from)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(n.recipients, ", "))
	fmt.Fprintf(&body, "Subject: %s\r\n", subject)
	body.WriteString("\r\n")
	fmt.Fprintf(&body, "%s %s", note.Subject.Type, note.Subject.ID)
	if note.From != "" {
		fmt.Fprintf(&body, " moved from %s to %s", note.From, note.To)
	} else {
		fmt.Fprintf(&body, " was created as %s", note.To)
	}
	fmt.Fprintf(&body, " by %s at %s.\r\n", note.ActorID, note.OccurredAt.Format("2006-01-02 15:04:05 MST"))

	if err := n.send(n.addr, n.from, n.recipients, []byte(body.String())); err != nil {
		return fmt.Errorf("sending notification mail: %w", err)
	}
	return nil
}

// Compile-time check that SMTPNotifier implements core.Notifier
var _ core.Notifier = (*SMTPNotifier)(nil)
