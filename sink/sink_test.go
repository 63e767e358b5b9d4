package sink

import (
	"context"
	"log/slog"
	"polychat/domain"
	"polychat/domain/event"
	"polychat/errors"
	"polychat/mocks"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestConnectionSink_Consume(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s := NewConnectionSink(log, 1, 10*time.Millisecond)
	evt := event.UserLeft{DisplayName: "Bob"}

	// When an event is consumed
	req.NoError(s.Consume(context.Background(), evt))

	// Then it is queued for the transport
	req.Equal(evt, <-s.Events)
}

func TestConnectionSink_Full_Buffer_Times_Out(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s := NewConnectionSink(log, 1, 10*time.Millisecond)

	// Given the buffer is full
	req.NoError(s.Consume(context.Background(), event.UserLeft{}))

	// When the next event waits past the delivery timeout
	req.ErrorIs(s.Consume(context.Background(), event.UserLeft{}), errors.ErrSinkFull)

	// Then the connection is closed so the transport hangs up
	select {
	case <-s.Done():
	default:
		req.Fail("sink still open after a timed out delivery")
	}
	req.ErrorIs(s.Consume(context.Background(), event.UserLeft{}), errors.ErrConnectionClosed)
}

func TestHub_Slow_Connection_Is_Detached(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := NewHub()
	id := domain.NewConnectionID()
	s := NewConnectionSink(log, 1, 10*time.Millisecond)

	// Given a connection whose buffer is full
	hub.Attach(id, s)
	req.NoError(hub.Deliver(context.Background(), id, event.UserLeft{}))

	// When a delivery times out
	req.ErrorIs(hub.Deliver(context.Background(), id, event.UserLeft{}), errors.ErrSinkFull)

	// Then the hub forgets it and later deliveries fail fast
	req.Zero(hub.Len())
	req.ErrorIs(hub.Deliver(context.Background(), id, event.UserLeft{}), errors.ErrConnectionClosed)
}

func TestConnectionSink_Closed_Drops(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s := NewConnectionSink(log, 1, time.Second)

	s.Close()
	s.Close()

	req.ErrorIs(s.Consume(context.Background(), event.UserLeft{}), errors.ErrConnectionClosed)
	req.Empty(s.Events)
}

func TestHub_Deliver(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	hub := NewHub()
	id := domain.NewConnectionID()
	mockSink := mocks.NewMockEventSink(ctrl)
	evt := event.RoomUsers{}

	mockSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	// Given a connection attached
	hub.Attach(id, mockSink)
	req.Equal(1, hub.Len())

	// When delivering to it
	req.NoError(hub.Deliver(context.Background(), id, evt))

	// When it is detached, deliveries are dropped
	hub.Detach(id)
	req.ErrorIs(hub.Deliver(context.Background(), id, evt), errors.ErrConnectionClosed)
	req.Zero(hub.Len())
}
