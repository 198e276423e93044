package events

import (
	"context"
	"log/slog"

	"github.com/syntharb/syntharb/internal/domain"
)

const (
	// ChannelEvents is the pub/sub channel carrying every core event.
	ChannelEvents = "syntharb.events"

	// StreamOpportunities is the durable stream carrying detected
	// opportunities only.
	StreamOpportunities = "syntharb.opportunities"
)

// Mirror forwards dispatched events out of process through a signal bus.
// Every event is published to the events channel; opportunity detections are
// additionally appended to a durable stream so consumers can catch up after a
// disconnect. Bus failures are logged and dropped, never propagated back into
// the dispatch path.
type Mirror struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewMirror creates a Mirror publishing through the given bus.
func NewMirror(bus domain.SignalBus, logger *slog.Logger) *Mirror {
	return &Mirror{
		bus:    bus,
		logger: logger.With(slog.String("component", "event_mirror")),
	}
}

// Listener returns a dispatcher listener that mirrors events to the bus. The
// given context bounds the lifetime of all publishes.
func (m *Mirror) Listener(ctx context.Context) Listener {
	return func(ev domain.Event) {
		if err := m.bus.PublishEvent(ctx, ChannelEvents, ev); err != nil {
			m.logger.Warn("publish event",
				slog.String("kind", string(ev.Kind())),
				slog.String("error", err.Error()),
			)
		}

		switch ev.Kind() {
		case domain.EventOpportunitiesDetected, domain.EventImmediateOpportunity:
			if err := m.bus.AppendEvent(ctx, StreamOpportunities, ev); err != nil {
				m.logger.Warn("append opportunity stream",
					slog.String("kind", string(ev.Kind())),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
