package sink

import (
	"context"
	"log/slog"
	"polychat/contract"
	"polychat/domain/event"
	"polychat/errors"
	"sync"
	"time"
)

var _ contract.EventSink = (*ConnectionSink)(nil)

// ConnectionSink is the outbound queue of one connection.
// The transport drains Events; the router fills it through the hub.
// Once closed every Consume is a no-op returning errors.ErrConnectionClosed.
type ConnectionSink struct {
	Events          chan event.DomainEvent
	done            chan struct{}
	once            sync.Once
	log             *slog.Logger
	deliveryTimeout time.Duration
}

func NewConnectionSink(log *slog.Logger, bufferSize int, deliveryTimeout time.Duration) *ConnectionSink {
	return &ConnectionSink{
		Events:          make(chan event.DomainEvent, bufferSize),
		done:            make(chan struct{}),
		log:             log,
		deliveryTimeout: deliveryTimeout,
	}
}

// Consume queues the event, waiting at most deliveryTimeout for room in the buffer.
// A connection that cannot keep up is closed rather than left with a gap in its stream.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}

	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()

	select {
	case s.Events <- e:
		return nil
	case <-s.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.log.Warn("Connection too slow, closing it", "type", e.Type())
		s.Close()
		return errors.ErrSinkFull
	}
}

// Done is closed when the connection goes away.
func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

func (s *ConnectionSink) Close() {
	s.once.Do(func() { close(s.done) })
}
