package core

import (
	"context"
	"time"

	"neofab/internal/model"
)

// Notification is the terse event descriptor handed to the gateway. The
// full content lives in-app; the mail is only a hint.
type Notification struct {
	Subject    model.Ref
	Title      string // project title, for the subject line
	OwnerID    string
	From       string
	To         string
	ActorID    string
	OccurredAt time.Time
}

// Notifier is the outbound notification gateway. Delivery is best-effort:
// the engine logs a returned error and moves on, it never rolls back a
// transition over it. Notify is called after the transaction commits and
// must not block on entity locks.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier discards all notifications. Use in tests and when no gateway
// is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }
