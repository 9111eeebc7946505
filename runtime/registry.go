package runtime

import (
	"sync"

	"parley/contract"
)

// session binds a live connection to the identity resolved once at connect
// time. The identity is carried here explicitly, never re-derived from
// ambient state.
type session struct {
	userID string
	sink   contract.EventSink
}

// Registry tracks live client sessions. A user may hold several sessions
// (multiple tabs or devices); each registers under its own session ID.
// Connect and disconnect events race with broadcast iteration, so every
// access goes through the mutex.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]session)}
}

// Register records a connection for a resolved identity.
func (r *Registry) Register(sessionID, userID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = session{userID: userID, sink: sink}
}

// Unregister drops a connection. Safe to call for unknown session IDs.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// SinksForUsers resolves the sinks of every live session belonging to one
// of the given users. Events carry their membership snapshot, so this is
// how the fanout filters delivery per member instead of broadcasting to
// every connected session.
func (r *Registry) SinksForUsers(userIDs []string) []contract.EventSink {
	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var sinks []contract.EventSink
	for _, s := range r.sessions {
		if _, ok := wanted[s.userID]; ok {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

// Sessions reports the number of live connections.
func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
