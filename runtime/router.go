// Package runtime handles room membership, sessions and the per-message fan-out.
// It coordinates the stores, the translation gateway and the transport hub
// without knowing anything about the wire protocol.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"polychat/contract"
	"polychat/domain"
	"polychat/domain/event"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var _ contract.IRouter = (*Router)(nil)

type Router struct {
	log           *slog.Logger
	registry      contract.ISessionRegistry
	index         contract.IRoomIndex
	locks         *RoomLocks
	gateway       contract.ITranslationGateway
	hub           contract.IHub
	detector      contract.ILanguageDetector
	censor        contract.ICensor
	telemetry     chan<- event.Delivered
	fanoutWorkers int
	now           func() time.Time
}

func NewRouter(log *slog.Logger,
	registry contract.ISessionRegistry, index contract.IRoomIndex,
	gateway contract.ITranslationGateway, hub contract.IHub,
	fanoutWorkers int) *Router {
	return &Router{
		log:           log,
		registry:      registry,
		index:         index,
		locks:         NewRoomLocks(),
		gateway:       gateway,
		hub:           hub,
		fanoutWorkers: fanoutWorkers,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithDetector enables detection of the source language
// when a message is sent with "auto" or no language at all.
func (r *Router) WithDetector(detector contract.ILanguageDetector) *Router {
	r.detector = detector
	return r
}

// WithCensor masks forbidden words before a message is fanned out.
// Every recipient but the sender sees the masked text as the original one.
func (r *Router) WithCensor(censor contract.ICensor) *Router {
	r.censor = censor
	return r
}

// WithTelemetry publishes a trace of every successful delivery.
// Traces are dropped rather than slowing the fan-out down when the channel is full.
func (r *Router) WithTelemetry(telemetry chan<- event.Delivered) *Router {
	r.telemetry = telemetry
	return r
}

// Handle dispatches a command coming from a connection.
func (r *Router) Handle(ctx context.Context, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.JoinRoomCommand:
		r.Join(ctx, c)
	case domain.SendMessageCommand:
		r.Send(ctx, c)
	case domain.LeaveRoomCommand:
		r.Leave(ctx, c)
	default:
		r.log.Warn("Unknown command dropped", "type", fmt.Sprintf("%T", cmd))
	}
}

// Join moves a connection into a room. A connection already joined elsewhere
// leaves its previous room first, within the same critical section.
func (r *Router) Join(ctx context.Context, cmd domain.JoinRoomCommand) {
	joiner := domain.Participant{
		ConnectionID: cmd.ConnectionID,
		DisplayName:  cmd.DisplayName,
		LanguageCode: cmd.LanguageCode,
		RoomID:       cmd.RoomID,
	}

	previous, rejoin := r.registry.Lookup(cmd.ConnectionID)
	rooms := []domain.RoomID{cmd.RoomID}
	if rejoin {
		rooms = append(rooms, previous.RoomID)
	}

	unlock := r.locks.Lock(rooms...)
	if rejoin {
		r.registry.Unregister(cmd.ConnectionID)
		r.index.RemoveMember(previous.RoomID, cmd.ConnectionID)
	}
	r.registry.Register(joiner)
	r.index.AddMember(cmd.RoomID, cmd.ConnectionID)

	members := r.participants(cmd.RoomID)
	var leftBehind []domain.Participant
	movedOut := rejoin && previous.RoomID != cmd.RoomID
	if movedOut {
		leftBehind = r.participants(previous.RoomID)
	}
	unlock()

	r.log.Info("Participant joined",
		"connection", cmd.ConnectionID, "room", cmd.RoomID,
		"name", cmd.DisplayName, "lang", cmd.LanguageCode, "members", len(members))

	if movedOut {
		r.notifyLeft(ctx, previous, leftBehind)
	}

	others := lo.Filter(members, func(p domain.Participant, _ int) bool {
		return p.ConnectionID != cmd.ConnectionID
	})
	r.broadcast(ctx, ids(others), event.NewUserJoined(joiner))
	r.broadcast(ctx, ids(members), roomUsers(members))
}

// Leave unregisters a connection. Unknown connections are ignored silently.
func (r *Router) Leave(ctx context.Context, cmd domain.LeaveRoomCommand) {
	current, ok := r.registry.Lookup(cmd.ConnectionID)
	if !ok {
		r.log.Debug("Leave ignored, connection not joined", "connection", cmd.ConnectionID)
		return
	}

	unlock := r.locks.Lock(current.RoomID)
	leaver, ok := r.registry.Unregister(cmd.ConnectionID)
	if !ok {
		unlock()
		return
	}
	r.index.RemoveMember(leaver.RoomID, leaver.ConnectionID)
	remaining := r.participants(leaver.RoomID)
	unlock()

	r.log.Info("Participant left",
		"connection", leaver.ConnectionID, "room", leaver.RoomID, "remaining", len(remaining))
	r.notifyLeft(ctx, leaver, remaining)
}

// Send fans a message out to every member of the sender's room, each one
// receiving the text in their own language. It returns once every member was served.
func (r *Router) Send(ctx context.Context, cmd domain.SendMessageCommand) {
	sender, ok := r.registry.Lookup(cmd.ConnectionID)
	if !ok {
		r.log.Debug("Message dropped, sender not joined", "connection", cmd.ConnectionID)
		return
	}
	if cmd.RoomID != "" && cmd.RoomID != sender.RoomID {
		r.log.Debug("Message room differs from sender room, using sender room",
			"declared", cmd.RoomID, "room", sender.RoomID)
	}

	unlock := r.locks.RLock(sender.RoomID)
	recipients := r.participants(sender.RoomID)
	unlock()

	message := r.newMessage(sender, cmd)

	g, gctx := errgroup.WithContext(ctx)
	if r.fanoutWorkers > 0 {
		g.SetLimit(r.fanoutWorkers)
	}
	for _, recipient := range recipients {
		g.Go(func() error {
			r.deliver(gctx, message, cmd.Text, sender, recipient)
			return nil
		})
	}
	_ = g.Wait()

	r.log.Debug("Message fanned out",
		"message", message.ID, "room", message.RoomID, "recipients", len(recipients))
}

func (r *Router) newMessage(sender domain.Participant, cmd domain.SendMessageCommand) domain.Message {
	text := cmd.Text
	if r.censor != nil {
		text, _ = r.censor.Censor(text)
	}
	sentAt := cmd.CreatedAt
	if sentAt.IsZero() {
		sentAt = r.now()
	}
	return domain.Message{
		ID:             uuid.New(),
		SenderName:     sender.DisplayName,
		RoomID:         sender.RoomID,
		OriginalText:   text,
		SourceLanguage: r.sourceLanguage(cmd),
		SentAt:         sentAt,
	}
}

func (r *Router) sourceLanguage(cmd domain.SendMessageCommand) string {
	if cmd.SourceLanguage != "" && cmd.SourceLanguage != domain.AutoLanguage {
		return cmd.SourceLanguage
	}
	if r.detector != nil {
		if lang, ok := r.detector.Detect(cmd.Text); ok {
			return lang
		}
	}
	return domain.AutoLanguage
}

// deliver translates for one recipient and pushes the result.
// The sender always gets its own raw text back untouched.
func (r *Router) deliver(ctx context.Context, m domain.Message, raw string, sender, recipient domain.Participant) {
	displayed := m.OriginalText
	translated := false
	switch {
	case recipient.ConnectionID == sender.ConnectionID:
		m.OriginalText = raw
		displayed = raw
		recipient.LanguageCode = m.SourceLanguage
	case domain.SameLanguage(recipient.LanguageCode, m.SourceLanguage):
	default:
		displayed = r.gateway.Translate(ctx, m.OriginalText, recipient.LanguageCode, m.SourceLanguage)
		translated = true
	}

	delivery := domain.NewDeliveryEvent(m, recipient, displayed, r.now())
	if err := r.hub.Deliver(ctx, recipient.ConnectionID, event.NewMessageReceived(delivery)); err != nil {
		r.log.Debug("Delivery dropped", "connection", recipient.ConnectionID, "error", err)
		return
	}
	r.trace(event.Delivered{
		MessageID:   m.ID,
		RoomID:      m.RoomID,
		Recipient:   recipient.ConnectionID,
		Translated:  translated,
		SentAt:      m.SentAt,
		DeliveredAt: delivery.DeliveredAt,
	})
}

func (r *Router) trace(d event.Delivered) {
	if r.telemetry == nil {
		return
	}
	select {
	case r.telemetry <- d:
	default:
	}
}

func (r *Router) notifyLeft(ctx context.Context, leaver domain.Participant, remaining []domain.Participant) {
	r.broadcast(ctx, ids(remaining), event.NewUserLeft(leaver))
	r.broadcast(ctx, ids(remaining), roomUsers(remaining))
}

// broadcast pushes the same event to several connections and waits for all of them.
func (r *Router) broadcast(ctx context.Context, recipients []domain.ConnectionID, evt event.DomainEvent) {
	g, gctx := errgroup.WithContext(ctx)
	if r.fanoutWorkers > 0 {
		g.SetLimit(r.fanoutWorkers)
	}
	for _, id := range recipients {
		g.Go(func() error {
			if err := r.hub.Deliver(gctx, id, evt); err != nil {
				r.log.Debug("Notification dropped", "connection", id, "type", evt.Type(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// participants resolves the room members to their sessions.
// Callers hold the room lock.
func (r *Router) participants(roomID domain.RoomID) []domain.Participant {
	return lo.FilterMap(r.index.Members(roomID), func(id domain.ConnectionID, _ int) (domain.Participant, bool) {
		return r.registry.Lookup(id)
	})
}

func (r *Router) Rooms() []domain.RoomStat {
	unlock := r.locks.Snapshot()
	defer unlock()
	return r.index.AllRooms()
}

func (r *Router) Room(roomID domain.RoomID) domain.RoomInfo {
	unlock := r.locks.RLock(roomID)
	defer unlock()
	return domain.RoomInfo{
		ID:          roomID,
		Exists:      r.index.Exists(roomID),
		MemberCount: r.index.Count(roomID),
	}
}

func (r *Router) Stats() domain.Stats {
	unlock := r.locks.Snapshot()
	defer unlock()
	return domain.NewStats(r.index.AllRooms())
}

func ids(participants []domain.Participant) []domain.ConnectionID {
	return lo.Map(participants, func(p domain.Participant, _ int) domain.ConnectionID {
		return p.ConnectionID
	})
}

func roomUsers(participants []domain.Participant) event.RoomUsers {
	return event.RoomUsers{
		Users: lo.Map(participants, func(p domain.Participant, _ int) domain.Member {
			return domain.Member{DisplayName: p.DisplayName, LanguageCode: p.LanguageCode}
		}),
	}
}
