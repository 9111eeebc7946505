// Package projection builds local read models from observed events.
// It does not emit events or interact with transport directly.
package projection

import (
	"context"
	"sync"

	"parley/domain/event"
)

// Timeline keeps the most recent broadcast messages per conversation.
// It backs the recent-activity endpoint; the durable log in the message
// repository remains the source of truth.
type Timeline struct {
	mu             sync.RWMutex
	capacity       int
	byConversation map[string][]event.SanitizedMessage
}

func NewTimeline(capacity int) *Timeline {
	return &Timeline{
		capacity:       capacity,
		byConversation: make(map[string][]event.SanitizedMessage),
	}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.SanitizedMessage)
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	entries := append(t.byConversation[evt.Conversation], evt)
	if len(entries) > t.capacity {
		entries = entries[len(entries)-t.capacity:]
	}
	t.byConversation[evt.Conversation] = entries
	return nil
}

// Recent returns the retained messages of a conversation in chronological
// order.
func (t *Timeline) Recent(conversationID string) []event.SanitizedMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := t.byConversation[conversationID]
	out := make([]event.SanitizedMessage, len(entries))
	copy(out, entries)
	return out
}
