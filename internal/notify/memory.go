package notify

import (
	"context"
	"sync"

	"neofab/internal/core"
)

// RecordingNotifier captures notifications in memory. Useful for tests and
// for the "memory" gateway type. Safe for concurrent use.
type RecordingNotifier struct {
	mu       sync.Mutex
	sent     []core.Notification
	failWith error
}

// NewRecordingNotifier creates an empty recording notifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// FailWith makes every subsequent Notify call return err.
func (n *RecordingNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failWith = err
}

func (n *RecordingNotifier) Notify(ctx context.Context, note core.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.sent = append(n.sent, note)
	return nil
}

// Sent returns a copy of all recorded notifications.
func (n *RecordingNotifier) Sent() []core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]core.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

// Compile-time check that RecordingNotifier implements core.Notifier
var _ core.Notifier = (*RecordingNotifier)(nil)
