// Package sink contains the event consumers fed by the fanout: live
// session delivery and the permanent side effects of a broadcast.
package sink

import (
	"context"

	"parley/domain/event"
)

// SessionSink bridges the fanout to one connected client. Consume hands
// the event to the owner of the channel; the connection handler takes it
// from there. Delivery is at-most-once: a full buffer means the event is
// dropped for this session and the client resynchronizes via the
// conversation detail endpoint.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Backpressure: the session is too slow, drop rather than stall
		return nil
	}
}
