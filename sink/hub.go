package sink

import (
	"context"
	"polychat/contract"
	"polychat/domain"
	"polychat/domain/event"
	"polychat/errors"
	"sync"
)

var _ contract.IHub = (*Hub)(nil)

// Hub routes an event to the sink of a connection, by identity only.
type Hub struct {
	mu    sync.RWMutex
	sinks map[domain.ConnectionID]contract.EventSink
}

func NewHub() *Hub {
	return &Hub{sinks: make(map[domain.ConnectionID]contract.EventSink)}
}

func (h *Hub) Attach(id domain.ConnectionID, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks[id] = sink
}

func (h *Hub) Detach(id domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sinks, id)
}

// Deliver drops the event when the connection is gone.
// A connection that timed out is detached; its sink is already closed.
func (h *Hub) Deliver(ctx context.Context, id domain.ConnectionID, e event.DomainEvent) error {
	h.mu.RLock()
	s, ok := h.sinks[id]
	h.mu.RUnlock()
	if !ok {
		return errors.ErrConnectionClosed
	}
	err := s.Consume(ctx, e)
	if errors.Is(err, errors.ErrSinkFull) {
		h.Detach(id)
	}
	return err
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}
