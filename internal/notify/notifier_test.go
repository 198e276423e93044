package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type fakeSender struct {
	name string
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("event filter", func(t *testing.T) {
		s := &fakeSender{name: "fake"}
		n := NewNotifier([]Sender{s}, []string{"risk_alert"}, logger)

		if err := n.Notify(ctx, "risk_alert", "allowed", "m"); err != nil {
			t.Fatalf("notify: %v", err)
		}
		if err := n.Notify(ctx, "opportunity", "filtered", "m"); err != nil {
			t.Fatalf("notify: %v", err)
		}
		if len(s.sent) != 1 || s.sent[0] != "allowed" {
			t.Errorf("sent = %v, want only the allowed event", s.sent)
		}
	})

	t.Run("empty filter allows everything", func(t *testing.T) {
		s := &fakeSender{name: "fake"}
		n := NewNotifier([]Sender{s}, nil, logger)
		if err := n.Notify(ctx, "anything", "t", "m"); err != nil {
			t.Fatalf("notify: %v", err)
		}
		if len(s.sent) != 1 {
			t.Errorf("sent = %v, want one delivery", s.sent)
		}
	})

	t.Run("notify all bypasses the filter", func(t *testing.T) {
		s := &fakeSender{name: "fake"}
		n := NewNotifier([]Sender{s}, []string{"risk_alert"}, logger)
		if err := n.NotifyAll(ctx, "t", "m"); err != nil {
			t.Fatalf("notify all: %v", err)
		}
		if len(s.sent) != 1 {
			t.Errorf("sent = %v, want one delivery", s.sent)
		}
	})

	t.Run("one failing sender does not block the rest", func(t *testing.T) {
		bad := &fakeSender{name: "bad", err: errors.New("down")}
		good := &fakeSender{name: "good"}
		n := NewNotifier([]Sender{bad, good}, nil, logger)
		err := n.NotifyAll(ctx, "t", "m")
		if err == nil {
			t.Fatal("expected a combined error")
		}
		if !strings.Contains(err.Error(), "bad") {
			t.Errorf("error %q does not name the failing sender", err)
		}
		if len(good.sent) != 1 {
			t.Errorf("good sender deliveries = %d, want 1", len(good.sent))
		}
	})
}
