//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/services/mock_chat_service.go -package=mock_services

package services

import (
	"context"
	"log/slog"
	"polychat/contract"
	"polychat/domain"
	"polychat/errors"
	"polychat/runtime/workers"
	"polychat/sink"
	"sync"
	"time"
)

type IChatService interface {
	Open(ctx context.Context) *Session
	Close(session *Session)
	Rooms() []domain.RoomStat
	Room(roomID domain.RoomID) domain.RoomInfo
	Stats() domain.Stats
	Languages(ctx context.Context) []domain.Language
}

type Config struct {
	ConnectionBufferSize int
	CommandBufferSize    int
	DeliveryTimeout      time.Duration
}

// ChatService is what every front door talks to.
// It owns the lifecycle of a connection: identity, outbound sink and ordered mailbox.
type ChatService struct {
	log        *slog.Logger
	router     contract.IRouter
	hub        contract.IHub
	supervisor contract.ISupervisor
	gateway    contract.ITranslationGateway
	config     Config
}

func NewChatService(log *slog.Logger, router contract.IRouter, hub contract.IHub,
	supervisor contract.ISupervisor, gateway contract.ITranslationGateway, config Config) *ChatService {
	return &ChatService{
		log:        log,
		router:     router,
		hub:        hub,
		supervisor: supervisor,
		gateway:    gateway,
		config:     config,
	}
}

// Session is one open connection as seen by the transport.
type Session struct {
	ID   domain.ConnectionID
	Sink *sink.ConnectionSink

	mu       sync.RWMutex
	closed   bool
	commands chan domain.Command
}

// Open assigns an identity to a new connection and starts its mailbox worker.
// ctx bounds the lifetime of the worker, usually the server context.
func (s *ChatService) Open(ctx context.Context) *Session {
	session := &Session{
		ID:       domain.NewConnectionID(),
		Sink:     sink.NewConnectionSink(s.log, s.config.ConnectionBufferSize, s.config.DeliveryTimeout),
		commands: make(chan domain.Command, s.config.CommandBufferSize),
	}
	s.hub.Attach(session.ID, session.Sink)
	s.supervisor.Start(ctx, workers.NewSessionWorker(session.ID, s.router, session.commands, s.log))
	s.log.Info("Connection opened", "connection", session.ID)
	return session
}

// Close stops every delivery to the session and closes its mailbox.
// The session worker leaves the room once the commands already received are drained.
func (s *ChatService) Close(session *Session) {
	s.hub.Detach(session.ID)
	session.Sink.Close()

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.closed {
		return
	}
	session.closed = true
	close(session.commands)
	s.log.Info("Connection closed", "connection", session.ID)
}

func (s *Session) enqueue(ctx context.Context, cmd domain.Command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrConnectionClosed
	}
	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) JoinRoom(ctx context.Context, roomID domain.RoomID, displayName, languageCode string) error {
	return s.enqueue(ctx, domain.JoinRoomCommand{
		ConnectionID: s.ID,
		RoomID:       roomID,
		DisplayName:  displayName,
		LanguageCode: languageCode,
	})
}

func (s *Session) SendMessage(ctx context.Context, roomID domain.RoomID, text, sourceLanguage string) error {
	return s.enqueue(ctx, domain.SendMessageCommand{
		ConnectionID:   s.ID,
		RoomID:         roomID,
		Text:           text,
		SourceLanguage: sourceLanguage,
		CreatedAt:      time.Now().UTC(),
	})
}

func (s *Session) LeaveRoom(ctx context.Context) error {
	return s.enqueue(ctx, domain.LeaveRoomCommand{ConnectionID: s.ID})
}

func (s *ChatService) Rooms() []domain.RoomStat {
	return s.router.Rooms()
}

func (s *ChatService) Room(roomID domain.RoomID) domain.RoomInfo {
	return s.router.Room(roomID)
}

func (s *ChatService) Stats() domain.Stats {
	return s.router.Stats()
}

func (s *ChatService) Languages(ctx context.Context) []domain.Language {
	return s.gateway.Languages(ctx)
}
