package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"polychat/domain"
	"polychat/errors"
	"polychat/services"
	"time"

	"github.com/coder/websocket"
)

type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OriginPatterns []string
}

// ChatServer upgrades HTTP requests to websockets and bridges each of them
// to a chat session.
type ChatServer struct {
	log         *slog.Logger
	chatService services.IChatService
	codec       Codec
	config      Config
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, config Config) *ChatServer {
	return &ChatServer{log: log, chatService: chatService, codec: NewCodec(), config: config}
}

// Handler returns the websocket endpoint.
// ctx is the server lifetime: cancelling it ends every open connection.
func (s *ChatServer) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.serve(ctx, w, r)
	})
}

// serve blocks until the client disconnects or the server stops.
// The session is closed on the way out so its membership is always released.
func (s *ChatServer) serve(serverCtx context.Context, w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.config.OriginPatterns})
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn := NewConn(ws, s.config.ReadTimeout, s.config.WriteTimeout)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(serverCtx, cancel)
	defer stop()

	session := s.chatService.Open(serverCtx)
	defer s.chatService.Close(session)

	go s.writeLoop(ctx, cancel, conn, session)

	status, reason := s.readLoop(ctx, conn, session)
	_ = conn.Close(status, reason)
}

func (s *ChatServer) readLoop(ctx context.Context, conn *Conn, session *services.Session) (websocket.StatusCode, string) {
	for {
		var in Inbound
		if err := conn.Read(ctx, &in); err != nil {
			switch {
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				s.log.Debug("Client disconnected", "connection", session.ID)
				return websocket.StatusNormalClosure, ""
			case isClosed(session.Sink.Done()):
				return websocket.StatusTryAgainLater, "connection too slow"
			case ctx.Err() != nil:
				return websocket.StatusGoingAway, "server shutting down"
			default:
				s.log.Debug("Read failed, closing connection", "connection", session.ID, "error", err)
				return websocket.StatusPolicyViolation, "unreadable frame"
			}
		}

		if err := s.dispatch(ctx, session, in); err != nil {
			if errors.Is(err, errors.ErrConnectionClosed) {
				return websocket.StatusNormalClosure, ""
			}
			s.log.Debug("Command rejected", "connection", session.ID, "type", in.Type, "error", err)
			if werr := conn.Write(ctx, ErrorEnvelope(err)); werr != nil {
				return websocket.StatusInternalError, "write failed"
			}
		}
	}
}

func (s *ChatServer) dispatch(ctx context.Context, session *services.Session, in Inbound) error {
	switch in.Type {
	case JoinRoomType:
		var p JoinRoomPayload
		if err := s.codec.Decode(in, &p); err != nil {
			return err
		}
		return session.JoinRoom(ctx, domain.RoomID(p.RoomID), p.DisplayName, p.LanguageCode)
	case SendMessageType:
		var p SendMessagePayload
		if err := s.codec.Decode(in, &p); err != nil {
			return err
		}
		return session.SendMessage(ctx, domain.RoomID(p.RoomID), p.Text, p.SourceLanguage)
	case LeaveRoomType:
		return session.LeaveRoom(ctx)
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownCommand, in.Type)
	}
}

// writeLoop drains the session sink onto the socket, in the order events were queued.
func (s *ChatServer) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *Conn, session *services.Session) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Sink.Done():
			return
		case evt := <-session.Sink.Events:
			out, err := s.codec.Encode(evt)
			if err != nil {
				s.log.Error("Event skipped", "connection", session.ID, "error", err)
				continue
			}
			if err := conn.Write(ctx, out); err != nil {
				s.log.Debug("Write failed, closing connection", "connection", session.ID, "error", err)
				return
			}
		}
	}
}

func isClosed(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
