package workers

import (
	"context"
	"log/slog"
	"time"

	"parley/contract"
	"parley/domain/event"
)

// EventFanout broadcasts domain events to multiple in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. EventFanout is not a message broker.
//
// Permanent sinks (search index, projections, monitoring) receive every
// event. Live session sinks are resolved through the registry from the
// membership snapshot carried by the event, so only sessions belonging to
// members of the conversation are notified.
type EventFanout struct {
	log         *slog.Logger
	sinks       []contract.EventSink
	registry    contract.IRegistry
	events      chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, sinks []contract.EventSink,
	registry contract.IRegistry, events chan event.DomainEvent,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		sinks:       sinks,
		registry:    registry,
		events:      events,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout delivers one event to every permanent sink and to the live
// sessions of the event's recipients. A slow sink only burns its own
// timeout; it cannot stall the pipeline forever.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	targets := append([]contract.EventSink{}, w.sinks...)
	targets = append(targets, w.registry.SinksForUsers(evt.Recipients())...)

	for _, sink := range targets {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Debug("Sink delivery failed", "error", err)
		}
		cancel()
	}
}
