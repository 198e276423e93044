package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

type fakeBus struct {
	published []fakeDelivery
	appended  []fakeDelivery
	err       error
}

type fakeDelivery struct {
	target string
	kind   domain.EventKind
}

func (f *fakeBus) PublishEvent(_ context.Context, channel string, ev domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, fakeDelivery{target: channel, kind: ev.Kind()})
	return nil
}

func (f *fakeBus) AppendEvent(_ context.Context, stream string, ev domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, fakeDelivery{target: stream, kind: ev.Kind()})
	return nil
}

func TestMirror(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	t.Run("every event goes to the channel", func(t *testing.T) {
		bus := &fakeBus{}
		listener := NewMirror(bus, testDispatcher().logger).Listener(ctx)

		listener(domain.MarketProcessed{EventID: "evt-1", Timestamp: now})

		if len(bus.published) != 1 {
			t.Fatalf("published %d messages, want 1", len(bus.published))
		}
		if bus.published[0].target != ChannelEvents {
			t.Errorf("channel = %q, want %q", bus.published[0].target, ChannelEvents)
		}
		if bus.published[0].kind != domain.EventMarketProcessed {
			t.Errorf("kind = %q", bus.published[0].kind)
		}
		if len(bus.appended) != 0 {
			t.Errorf("appended %d stream messages for a non-opportunity event, want 0", len(bus.appended))
		}
	})

	t.Run("opportunity events also hit the stream", func(t *testing.T) {
		bus := &fakeBus{}
		listener := NewMirror(bus, testDispatcher().logger).Listener(ctx)

		listener(domain.ImmediateOpportunity{Timestamp: now})
		listener(domain.OpportunitiesDetected{Timestamp: now})

		if len(bus.published) != 2 {
			t.Fatalf("published %d messages, want 2", len(bus.published))
		}
		if len(bus.appended) != 2 {
			t.Fatalf("appended %d stream messages, want 2", len(bus.appended))
		}
		for _, msg := range bus.appended {
			if msg.target != StreamOpportunities {
				t.Errorf("stream = %q, want %q", msg.target, StreamOpportunities)
			}
		}
	})

	t.Run("bus failure is swallowed", func(t *testing.T) {
		bus := &fakeBus{err: errors.New("connection refused")}
		listener := NewMirror(bus, testDispatcher().logger).Listener(ctx)
		listener(domain.MarketProcessed{EventID: "evt-1", Timestamp: now}) // must not panic
	})
}
