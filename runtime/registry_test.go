package runtime

import (
	"context"
	"testing"

	"parley/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type nopSink struct{ id int }

func (s nopSink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given no session is connected
	req.Zero(registry.Sessions())
	req.Empty(registry.SinksForUsers([]string{"alice"}))

	// When a session registers
	sessionID := uuid.NewString()
	sink := nopSink{id: 1}
	registry.Register(sessionID, "alice", sink)

	// Then it is resolvable through its user
	req.Equal(1, registry.Sessions())
	sinks := registry.SinksForUsers([]string{"alice"})
	req.Len(sinks, 1)
	req.Equal(sink, sinks[0])
}

func TestRegistry_MultipleSessionsPerUser(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// One user on two devices, another user on one
	registry.Register(uuid.NewString(), "alice", nopSink{id: 1})
	registry.Register(uuid.NewString(), "alice", nopSink{id: 2})
	registry.Register(uuid.NewString(), "bob", nopSink{id: 3})

	req.Equal(3, registry.Sessions())
	req.Len(registry.SinksForUsers([]string{"alice"}), 2)
	req.Len(registry.SinksForUsers([]string{"alice", "bob"}), 3)

	// Non-recipients resolve to nothing
	req.Empty(registry.SinksForUsers([]string{"clara"}))
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	sessionID := uuid.NewString()
	registry.Register(sessionID, "alice", nopSink{})
	registry.Unregister(sessionID)

	req.Zero(registry.Sessions())
	req.Empty(registry.SinksForUsers([]string{"alice"}))

	// Unknown sessions are a no-op
	registry.Unregister("ghost")
}
