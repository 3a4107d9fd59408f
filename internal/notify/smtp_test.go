package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"neofab/internal/config"
	"neofab/internal/core"
	"neofab/internal/model"
)

func TestNewSMTPNotifier_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.NotifyConfig
	}{
		{name: "missing host", cfg: config.NotifyConfig{Type: "smtp", SMTPFrom: "a@b", Recipients: []string{"c@d"}}},
		{name: "missing from", cfg: config.NotifyConfig{Type: "smtp", SMTPHost: "mail", Recipients: []string{"c@d"}}},
		{name: "missing recipients", cfg: config.NotifyConfig{Type: "smtp", SMTPHost: "mail", SMTPFrom: "a@b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewSMTPNotifier(tt.cfg); err == nil {
				t.Error("NewSMTPNotifier() expected error")
			}
		})
	}
}

func TestSMTPNotifier_Notify(t *testing.T) {
	t.Parallel()

	n, err := NewSMTPNotifier(config.NotifyConfig{
		Type:       "smtp",
		SMTPHost:   "mail.example.com",
		SMTPPort:   2525,
		SMTPFrom:   "neofab@example.com",
		Recipients: []string{"lab@example.com"},
	})
	if err != nil {
		t.Fatalf("NewSMTPNotifier() error = %v", err)
	}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	note := core.Notification{
		Subject:    model.ProjectRef("p-1"),
		Title:      "Bracket v2",
		OwnerID:    "alice",
		From:       "submitted",
		To:         "under_review",
		ActorID:    "bob",
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := n.Notify(context.Background(), note); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if gotAddr != "mail.example.com:2525" {
		t.Errorf("addr = %q, want %q", gotAddr, "mail.example.com:2525")
	}
	if gotFrom != "neofab@example.com" {
		t.Errorf("from = %q, want %q", gotFrom, "neofab@example.com")
	}
	if len(gotTo) != 1 || gotTo[0] != "lab@example.com" {
		t.Errorf("to = %v, want [lab@example.com]", gotTo)
	}

	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: NeoFab: Bracket v2 is now under_review") {
		t.Errorf("message missing subject line:\n%s", msg)
	}
	if !strings.Contains(msg, "moved from submitted to under_review") {
		t.Errorf("message missing transition line:\n%s", msg)
	}
	if !strings.Contains(msg, "by bob") {
		t.Errorf("message missing actor:\n%s", msg)
	}
}

func TestSMTPNotifier_NotifyCreation(t *testing.T) {
	t.Parallel()

	n, err := NewSMTPNotifier(config.NotifyConfig{
		Type:       "smtp",
		SMTPHost:   "mail.example.com",
		SMTPFrom:   "neofab@example.com",
		Recipients: []string{"lab@example.com"},
	})
	if err != nil {
		t.Fatalf("NewSMTPNotifier() error = %v", err)
	}

	var gotMsg []byte
	n.send = func(addr, from string, to []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	note := core.Notification{
		Subject:    model.PrintJobRef("j-1"),
		To:         "queued",
		ActorID:    "alice",
		OccurredAt: time.Now(),
	}
	if err := n.Notify(context.Background(), note); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if !strings.Contains(string(gotMsg), "was created as queued") {
		t.Errorf("message missing creation line:\n%s", gotMsg)
	}
}

func TestSMTPNotifier_CancelledContext(t *testing.T) {
	t.Parallel()

	n, err := NewSMTPNotifier(config.NotifyConfig{
		Type:       "smtp",
		SMTPHost:   "mail.example.com",
		SMTPFrom:   "neofab@example.com",
		Recipients: []string{"lab@example.com"},
	})
	if err != nil {
		t.Fatalf("NewSMTPNotifier() error = %v", err)
	}
	n.send = func(addr, from string, to []string, msg []byte) error {
		t.Error("send called despite cancelled context")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Notify(ctx, core.Notification{}); err == nil {
		t.Error("Notify() with cancelled context expected error")
	}
}

func TestNewNotifierFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		n, err := NewNotifierFromConfig(config.NotifyConfig{Type: "none"})
		if err != nil {
			t.Fatalf("NewNotifierFromConfig() error = %v", err)
		}
		if _, ok := n.(core.NopNotifier); !ok {
			t.Errorf("got %T, want core.NopNotifier", n)
		}
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		n, err := NewNotifierFromConfig(config.NotifyConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewNotifierFromConfig() error = %v", err)
		}
		if _, ok := n.(*RecordingNotifier); !ok {
			t.Errorf("got %T, want *RecordingNotifier", n)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		if _, err := NewNotifierFromConfig(config.NotifyConfig{Type: "pigeon"}); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
