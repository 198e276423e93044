package events

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

func testDispatcher() *Dispatcher {
	return NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatcher(t *testing.T) {
	ev := domain.MarketProcessed{EventID: "evt-1", Timestamp: time.Now()}

	t.Run("fan out", func(t *testing.T) {
		d := testDispatcher()
		var gotA, gotB int
		d.Subscribe("a", func(domain.Event) { gotA++ })
		d.Subscribe("b", func(domain.Event) { gotB++ })
		d.Emit(ev)
		if gotA != 1 || gotB != 1 {
			t.Errorf("deliveries = (%d, %d), want (1, 1)", gotA, gotB)
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		d := testDispatcher()
		var got int
		d.Subscribe("a", func(domain.Event) { got++ })
		d.Emit(ev)
		d.Unsubscribe("a")
		d.Emit(ev)
		if got != 1 {
			t.Errorf("deliveries = %d, want 1", got)
		}
	})

	t.Run("subscribe replaces same id", func(t *testing.T) {
		d := testDispatcher()
		var first, second int
		d.Subscribe("a", func(domain.Event) { first++ })
		d.Subscribe("a", func(domain.Event) { second++ })
		d.Emit(ev)
		if first != 0 || second != 1 {
			t.Errorf("deliveries = (%d, %d), want (0, 1)", first, second)
		}
	})

	t.Run("panic is isolated", func(t *testing.T) {
		d := testDispatcher()
		var got int
		d.Subscribe("a-panics", func(domain.Event) { panic("boom") })
		d.Subscribe("b-survives", func(domain.Event) { got++ })
		d.Emit(ev)
		if got != 1 {
			t.Errorf("surviving listener deliveries = %d, want 1", got)
		}
	})

	t.Run("subscribers sorted", func(t *testing.T) {
		d := testDispatcher()
		d.Subscribe("zebra", func(domain.Event) {})
		d.Subscribe("alpha", func(domain.Event) {})
		ids := d.Subscribers()
		if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "zebra" {
			t.Errorf("subscribers = %v, want sorted", ids)
		}
	})

	t.Run("emit with no listeners", func(t *testing.T) {
		d := testDispatcher()
		d.Emit(ev) // must not panic
	})
}
