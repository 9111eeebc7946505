package runtime

import "sync"

// KeyedMutex serializes work per key. Every conversation mutation is a
// read-modify-persist sequence; holding the conversation's lock for the
// whole sequence prevents lost updates while leaving operations on other
// conversations fully concurrent.
//
// Locks are created on first use and never removed. The conversation
// population is small and conversations are never deleted, so the map only
// grows with actual conversations.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if m, ok := k.locks[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	k.locks[key] = m
	return m
}
