package runtime

import (
	"polychat/contract"
	"polychat/domain"
	"sync"
)

var _ contract.ISessionRegistry = (*Registry)(nil)

// Registry is the session directory: one Participant per live connection.
// It never talks to the transport or the translation gateway.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]domain.Participant
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnectionID]domain.Participant),
	}
}

// Register inserts or replaces the Participant of a connection.
// Display name and language are opaque; the caller guarantees a non-empty room.
func (r *Registry) Register(p domain.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[p.ConnectionID] = p
}

// Unregister removes the Participant and returns it.
// A second call for the same connection reports false.
func (r *Registry) Unregister(id domain.ConnectionID) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.sessions[id]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.sessions, id)
	return p, true
}

func (r *Registry) Lookup(id domain.ConnectionID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.sessions[id]
	return p, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
