package services

import (
	"context"
	"log/slog"
	"polychat/contract"
	"polychat/domain"
	"polychat/domain/event"
	"polychat/errors"
	"polychat/runtime"
	"polychat/runtime/workers"
	"polychat/sink"
	"polychat/translation"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service *ChatService
	hub     *sink.Hub
	cancel  context.CancelFunc
	ctx     context.Context
}

func newFixture(t *testing.T) fixture {
	return newFixtureWith(t, translation.NoopTranslator{}, 16)
}

func newFixtureWith(t *testing.T, translator contract.Translator, commandBufferSize int) fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := sink.NewHub()
	gateway := translation.NewGateway(log, translator, 5*time.Second)
	router := runtime.NewRouter(log, runtime.NewRegistry(), runtime.NewRoomIndex(), gateway, hub, 4)
	supervisor := workers.NewSupervisor(log, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	service := NewChatService(log, router, hub, supervisor, gateway, Config{
		ConnectionBufferSize: 16,
		CommandBufferSize:    commandBufferSize,
		DeliveryTimeout:      time.Second,
	})
	return fixture{service: service, hub: hub, cancel: cancel, ctx: ctx}
}

// slowTranslator holds every translation until released.
type slowTranslator struct {
	started chan struct{}
	release chan struct{}
}

func (s slowTranslator) Translate(ctx context.Context, text, target, _ string) (string, error) {
	select {
	case s.started <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
		return "[" + target + "] " + text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s slowTranslator) SupportedLanguages(context.Context) ([]domain.Language, error) {
	return nil, nil
}

// next waits for the next event of a given type on a session.
func next[T event.DomainEvent](t *testing.T, s *Session) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-s.Sink.Events:
			if typed, ok := e.(T); ok {
				return typed
			}
		case <-deadline:
			var zero T
			require.Failf(t, "timeout", "no %T received", zero)
			return zero
		}
	}
}

func TestChatService_Join_Send_Close(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given Alice and Bob connected to R1
	alice := f.service.Open(f.ctx)
	bob := f.service.Open(f.ctx)
	req.Equal(2, f.hub.Len())

	req.NoError(alice.JoinRoom(f.ctx, "R1", "Alice", "en"))
	next[event.RoomUsers](t, alice)
	req.NoError(bob.JoinRoom(f.ctx, "R1", "Bob", "en"))
	users := next[event.RoomUsers](t, bob)
	req.Len(users.Users, 2)

	// When Alice sends a message
	req.NoError(alice.SendMessage(f.ctx, "R1", "hello", "en"))

	// Then both receive it
	req.Equal("hello", next[event.MessageReceived](t, alice).DisplayedText)
	req.Equal("hello", next[event.MessageReceived](t, bob).DisplayedText)

	// When Bob disconnects
	f.service.Close(bob)

	// Then Alice is told, and the room counts one member
	left := next[event.UserLeft](t, alice)
	req.Equal("Bob", left.DisplayName)
	req.Eventually(func() bool {
		return f.service.Room("R1").MemberCount == 1
	}, time.Second, 10*time.Millisecond)
	req.Equal(domain.Stats{TotalRooms: 1, TotalUsers: 1, ActiveRooms: 1}, f.service.Stats())
	req.Equal(1, f.hub.Len())

	// And Bob cannot send anything anymore
	req.ErrorIs(bob.SendMessage(f.ctx, "R1", "ghost", "en"), errors.ErrConnectionClosed)
	f.service.Close(bob)
}

func TestChatService_Languages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	req.Empty(f.service.Languages(f.ctx))
	req.Empty(f.service.Rooms())
}

func TestChatService_Close_With_Full_Mailbox_Leaves_After_Queued_Join(t *testing.T) {
	req := require.New(t)
	translator := slowTranslator{started: make(chan struct{}, 1), release: make(chan struct{})}
	f := newFixtureWith(t, translator, 1)

	// Given Alice (en) and Bob (fr) in R1
	alice := f.service.Open(f.ctx)
	bob := f.service.Open(f.ctx)
	req.NoError(alice.JoinRoom(f.ctx, "R1", "Alice", "en"))
	next[event.RoomUsers](t, alice)
	req.NoError(bob.JoinRoom(f.ctx, "R1", "Bob", "fr"))
	next[event.RoomUsers](t, bob)

	// Given Alice's worker is stuck translating her message for Bob
	req.NoError(alice.SendMessage(f.ctx, "R1", "hello", "en"))
	select {
	case <-translator.started:
	case <-time.After(2 * time.Second):
		req.Fail("translation never started")
	}

	// Given a join to R2 fills her mailbox
	req.NoError(alice.JoinRoom(f.ctx, "R2", "Alice", "en"))

	// When Alice disconnects, then the translation completes
	f.service.Close(alice)
	close(translator.release)

	// Then the queued join runs first and Alice ends up in no room at all
	req.Eventually(func() bool {
		return f.service.Stats() == domain.Stats{TotalRooms: 2, TotalUsers: 1, ActiveRooms: 1}
	}, 2*time.Second, 10*time.Millisecond)
	req.Equal(0, f.service.Room("R2").MemberCount)
	req.Equal(1, f.service.Room("R1").MemberCount)
}
