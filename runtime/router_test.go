package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"polychat/contract"
	"polychat/domain"
	"polychat/domain/event"
	"polychat/errors"
	"polychat/mocks"
	"polychat/translation"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingHub keeps every event delivered to each connection.
type recordingHub struct {
	mu     sync.Mutex
	events map[domain.ConnectionID][]event.DomainEvent
	gone   map[domain.ConnectionID]struct{}
}

func newRecordingHub() *recordingHub {
	return &recordingHub{
		events: make(map[domain.ConnectionID][]event.DomainEvent),
		gone:   make(map[domain.ConnectionID]struct{}),
	}
}

func (h *recordingHub) Attach(domain.ConnectionID, contract.EventSink) {}

func (h *recordingHub) Detach(id domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gone[id] = struct{}{}
}

func (h *recordingHub) Deliver(_ context.Context, id domain.ConnectionID, e event.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.gone[id]; ok {
		return errors.ErrConnectionClosed
	}
	h.events[id] = append(h.events[id], e)
	return nil
}

func (h *recordingHub) of(id domain.ConnectionID) []event.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.DomainEvent(nil), h.events[id]...)
}

func (h *recordingHub) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, evts := range h.events {
		n += len(evts)
	}
	return n
}

func (h *recordingHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = make(map[domain.ConnectionID][]event.DomainEvent)
}

func messages(evts []event.DomainEvent) []event.MessageReceived {
	var res []event.MessageReceived
	for _, e := range evts {
		if m, ok := e.(event.MessageReceived); ok {
			res = append(res, m)
		}
	}
	return res
}

type routerFixture struct {
	router   *Router
	registry *Registry
	index    *RoomIndex
	hub      *recordingHub
	gateway  *mocks.MockITranslationGateway
}

func newRouterFixture(t *testing.T) routerFixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	index := NewRoomIndex()
	hub := newRecordingHub()
	gateway := mocks.NewMockITranslationGateway(ctrl)
	return routerFixture{
		router:   NewRouter(log, registry, index, gateway, hub, 4),
		registry: registry,
		index:    index,
		hub:      hub,
		gateway:  gateway,
	}
}

func join(id domain.ConnectionID, room domain.RoomID, name, lang string) domain.JoinRoomCommand {
	return domain.JoinRoomCommand{ConnectionID: id, RoomID: room, DisplayName: name, LanguageCode: lang}
}

func TestRouter_Join_N_Connections(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	const n = 5

	// When n distinct connections join R
	for i := 0; i < n; i++ {
		f.router.Join(ctx, join(domain.NewConnectionID(), "R", fmt.Sprintf("user-%d", i), "en"))
	}

	// Then the room has exactly n members
	req.Len(f.index.Members("R"), n)
	req.Equal([]domain.RoomStat{{ID: "R", MemberCount: n}}, f.router.Rooms())
	req.Equal(domain.Stats{TotalRooms: 1, TotalUsers: n, ActiveRooms: 1}, f.router.Stats())
}

func TestRouter_Join_Notifies_Others_And_Pushes_Member_List(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice is in R1
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.hub.reset()

	// When Bob joins R1
	f.router.Join(ctx, join(bob, "R1", "Bob", "es"))

	// Then Alice is told Bob joined, then gets the member list
	expectedUsers := event.RoomUsers{Users: []domain.Member{
		{DisplayName: "Alice", LanguageCode: "en"},
		{DisplayName: "Bob", LanguageCode: "es"},
	}}
	aliceEvents := f.hub.of(alice)
	req.Len(aliceEvents, 2)
	req.Equal(event.UserJoined{DisplayName: "Bob", LanguageCode: "es", Message: "Bob joined the chat"}, aliceEvents[0])
	req.Equal(expectedUsers, aliceEvents[1])

	// And Bob only gets the member list, including himself
	req.Equal([]event.DomainEvent{expectedUsers}, f.hub.of(bob))
}

func TestRouter_Rejoin_Moves_Connection(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice and Bob are in R1
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "en"))
	f.hub.reset()

	// When Alice joins R2 with the same connection
	f.router.Join(ctx, join(alice, "R2", "Alice", "en"))

	// Then Alice is only in R2
	req.Equal([]domain.ConnectionID{bob}, f.index.Members("R1"))
	req.Equal([]domain.ConnectionID{alice}, f.index.Members("R2"))
	p, ok := f.registry.Lookup(alice)
	req.True(ok)
	req.Equal(domain.RoomID("R2"), p.RoomID)

	// And Bob is told Alice left
	bobEvents := f.hub.of(bob)
	req.Len(bobEvents, 2)
	req.Equal(event.UserLeft{DisplayName: "Alice", Message: "Alice left the chat"}, bobEvents[0])
	req.Equal(event.RoomUsers{Users: []domain.Member{{DisplayName: "Bob", LanguageCode: "en"}}}, bobEvents[1])
}

func TestRouter_Leave_Unknown_Is_Noop(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice := domain.NewConnectionID()
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.hub.reset()

	// When an unknown connection leaves
	f.router.Leave(ctx, domain.LeaveRoomCommand{ConnectionID: domain.NewConnectionID()})

	// Then nothing is emitted and nothing changes
	req.Zero(f.hub.total())
	req.Equal(1, f.registry.Len())
	req.Equal([]domain.ConnectionID{alice}, f.index.Members("R1"))
}

func TestRouter_Leave_Notifies_Remaining_Members(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "en"))
	f.hub.reset()

	// When Bob leaves
	f.router.Leave(ctx, domain.LeaveRoomCommand{ConnectionID: bob})

	// Then Alice gets the notification and the new list, Bob gets nothing
	req.Len(f.hub.of(alice), 2)
	req.Empty(f.hub.of(bob))

	// And leaving a second time is silent
	f.hub.reset()
	f.router.Leave(ctx, domain.LeaveRoomCommand{ConnectionID: bob})
	req.Zero(f.hub.total())
}

func TestRouter_Send_Translates_Per_Recipient(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice (en) and Bob (es) in R1
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "es"))

	// Then the gateway is only called for Bob
	f.gateway.EXPECT().
		Translate(gomock.Any(), "hello", "es", "en").
		Return("hola").
		Times(1)

	// When Alice sends "hello" in English
	f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, RoomID: "R1", Text: "hello", SourceLanguage: "en"})

	aliceMessages := messages(f.hub.of(alice))
	req.Len(aliceMessages, 1)
	req.Equal("hello", aliceMessages[0].DisplayedText)
	req.Equal("hello", aliceMessages[0].OriginalText)
	req.Equal("en", aliceMessages[0].TargetLanguage)
	req.Equal("Alice", aliceMessages[0].SenderName)

	bobMessages := messages(f.hub.of(bob))
	req.Len(bobMessages, 1)
	req.Equal("hola", bobMessages[0].DisplayedText)
	req.Equal("hello", bobMessages[0].OriginalText)
	req.Equal("en", bobMessages[0].SourceLanguage)
	req.Equal("es", bobMessages[0].TargetLanguage)
	req.Equal(aliceMessages[0].ID, bobMessages[0].ID)
}

func TestRouter_Send_Same_Language_Never_Calls_Gateway(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice and Bob both speak French
	f.router.Join(ctx, join(alice, "R1", "Alice", "fr"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "fr-FR"))

	// When Alice sends a French text (no gateway expectation: any call fails the test)
	f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, Text: "bonjour", SourceLanguage: "fr"})

	// Then both see the original text
	for _, id := range []domain.ConnectionID{alice, bob} {
		received := messages(f.hub.of(id))
		req.Len(received, 1)
		req.Equal("bonjour", received[0].DisplayedText)
	}
}

func TestRouter_Send_Unknown_Sender_Produces_Nothing(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	// When a connection that never joined sends a message
	f.router.Send(context.Background(), domain.SendMessageCommand{
		ConnectionID: domain.NewConnectionID(), RoomID: "ghost", Text: "hi", SourceLanguage: "en",
	})

	// Then no delivery happens and no room appears
	req.Zero(f.hub.total())
	req.Empty(f.router.Rooms())
	req.Equal(domain.RoomInfo{ID: "ghost"}, f.router.Room("ghost"))
}

func TestRouter_Send_Empty_Text_Is_Routed(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice := domain.NewConnectionID()
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))

	f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, Text: "", SourceLanguage: "en"})

	received := messages(f.hub.of(alice))
	req.Len(received, 1)
	req.Empty(received[0].DisplayedText)
}

func TestRouter_Send_Provider_Always_Failing_Falls_Back(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx := context.Background()

	// Given a provider that always fails behind the real gateway
	provider := mocks.NewMockTranslator(ctrl)
	provider.EXPECT().
		Translate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.ErrProviderStatus).
		AnyTimes()
	gateway := translation.NewGateway(log, provider, time.Second)
	hub := newRecordingHub()
	router := NewRouter(log, NewRegistry(), NewRoomIndex(), gateway, hub, 2)

	ids := []domain.ConnectionID{domain.NewConnectionID(), domain.NewConnectionID(), domain.NewConnectionID()}
	for i, lang := range []string{"en", "es", "de"} {
		router.Join(ctx, join(ids[i], "R1", lang, lang))
	}

	// When the English speaker sends a message
	router.Send(ctx, domain.SendMessageCommand{ConnectionID: ids[0], Text: "hello", SourceLanguage: "en"})

	// Then every member still receives the original text
	for _, id := range ids {
		received := messages(hub.of(id))
		req.Len(received, 1)
		req.Equal("hello", received[0].DisplayedText)
		req.Equal("hello", received[0].OriginalText)
	}
}

func TestRouter_Send_Gone_Recipient_Does_Not_Block_Others(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "en"))

	// Given Bob's transport vanished before he was unregistered
	f.hub.Detach(bob)

	// When Alice sends
	f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, Text: "still there?", SourceLanguage: "en"})

	// Then Alice still receives her echo
	req.Len(messages(f.hub.of(alice)), 1)
}

func TestRouter_Disconnect_Then_New_Join(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice joined then disconnected
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Handle(ctx, domain.LeaveRoomCommand{ConnectionID: alice})
	req.Empty(f.index.Members("R1"))

	// When Bob joins R1
	f.router.Handle(ctx, join(bob, "R1", "Bob", "en"))

	// Then Bob is the sole member
	req.Equal([]domain.ConnectionID{bob}, f.index.Members("R1"))
	req.Equal(domain.RoomInfo{ID: "R1", Exists: true, MemberCount: 1}, f.router.Room("R1"))
}

func TestRouter_Send_Auto_Language_Uses_Detector(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctrl := gomock.NewController(t)
	detector := mocks.NewMockILanguageDetector(ctrl)
	f.router.WithDetector(detector)
	ctx := context.Background()
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "en"))

	// Given the text is detected as English
	detector.EXPECT().Detect("good morning everyone").Return("en", true).Times(1)

	// When Alice sends with an "auto" source language
	f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, Text: "good morning everyone", SourceLanguage: domain.AutoLanguage})

	// Then Bob needs no translation
	received := messages(f.hub.of(bob))
	req.Len(received, 1)
	req.Equal("en", received[0].SourceLanguage)
	req.Equal("good morning everyone", received[0].DisplayedText)
}

func TestRouter_Send_Censors_For_Others_But_Echoes_Raw_Text(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctrl := gomock.NewController(t)
	censor := mocks.NewMockICensor(ctrl)
	f.router.WithCensor(censor)
	ctx := context.Background()
	alice, bob, carol := domain.NewConnectionID(), domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice (en), Bob (en) and Carol (fr) in R1
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "en"))
	f.router.Join(ctx, join(carol, "R1", "Carol", "fr"))

	censor.EXPECT().Censor("you badger").Return("you ******", []string{"badger"}).Times(1)
	// Then only the masked text goes to the translator
	f.gateway.EXPECT().Translate(gomock.Any(), "you ******", "fr", "en").Return("toi ******").Times(1)

	// When Alice sends a forbidden word
	f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, Text: "you badger", SourceLanguage: "en"})

	// Then Alice gets her own text back unmodified
	echo := messages(f.hub.of(alice))
	req.Len(echo, 1)
	req.Equal("you badger", echo[0].DisplayedText)
	req.Equal("you badger", echo[0].OriginalText)

	// Then the others only ever see the masked text
	toBob := messages(f.hub.of(bob))
	req.Len(toBob, 1)
	req.Equal("you ******", toBob[0].DisplayedText)
	req.Equal("you ******", toBob[0].OriginalText)

	toCarol := messages(f.hub.of(carol))
	req.Len(toCarol, 1)
	req.Equal("toi ******", toCarol[0].DisplayedText)
	req.Equal("you ******", toCarol[0].OriginalText)
}

func TestRouter_Send_Membership_Change_During_Translation_Keeps_Snapshot(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	alice, bob, carol, dave := domain.NewConnectionID(), domain.NewConnectionID(), domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice (en), Bob (fr) and Carol (en) in R1
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "fr"))
	f.router.Join(ctx, join(carol, "R1", "Carol", "en"))
	f.hub.reset()

	// Given Bob's translation hangs until released
	started := make(chan struct{})
	release := make(chan struct{})
	f.gateway.EXPECT().Translate(gomock.Any(), "hello", "fr", "en").
		DoAndReturn(func(context.Context, string, string, string) string {
			close(started)
			<-release
			return "bonjour"
		}).Times(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, Text: "hello", SourceLanguage: "en"})
	}()
	<-started

	// When Dave joins and Carol leaves while the fan-out is in flight
	f.router.Join(ctx, join(dave, "R1", "Dave", "en"))
	f.router.Leave(ctx, domain.LeaveRoomCommand{ConnectionID: carol})
	close(release)
	<-done

	// Then the recipients are exactly the members at send time
	req.Len(messages(f.hub.of(alice)), 1)
	req.Len(messages(f.hub.of(bob)), 1)
	req.Len(messages(f.hub.of(carol)), 1)
	req.Empty(messages(f.hub.of(dave)))
	req.Equal("bonjour", messages(f.hub.of(bob))[0].DisplayedText)
}

func TestRouter_Stats_Never_See_A_Move_Half_Done(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	const n = 20

	ids := make([]domain.ConnectionID, n)
	for i := range ids {
		ids[i] = domain.NewConnectionID()
		f.router.Join(ctx, join(ids[i], "R1", "u", "en"))
	}

	// When every connection keeps bouncing between R1 and R2
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rooms := []domain.RoomID{"R2", "R1"}
			for i := range 200 {
				f.router.Join(ctx, join(id, rooms[i%2], "u", "en"))
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Then every stats read counts every connection exactly once
	for {
		select {
		case <-done:
			req.Equal(n, f.router.Stats().TotalUsers)
			return
		default:
		}
		req.Equal(n, f.router.Stats().TotalUsers)
		rooms := f.router.Rooms()
		req.Equal(n, rooms[0].MemberCount+lastCount(rooms))
	}
}

func lastCount(rooms []domain.RoomStat) int {
	if len(rooms) < 2 {
		return 0
	}
	return rooms[len(rooms)-1].MemberCount
}

func TestRouter_Concurrent_Joins_And_Leaves_Stay_Consistent(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	rooms := []domain.RoomID{"R1", "R2", "R3"}
	const n = 60

	ids := make([]domain.ConnectionID, n)
	for i := range ids {
		ids[i] = domain.NewConnectionID()
	}

	// When every connection joins, moves, and half of them leave, concurrently
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.router.Join(ctx, join(id, rooms[i%3], "u", "en"))
			f.router.Join(ctx, join(id, rooms[(i+1)%3], "u", "en"))
			if i%2 == 0 {
				f.router.Leave(ctx, domain.LeaveRoomCommand{ConnectionID: id})
			}
		}()
	}
	wg.Wait()

	// Then each live participant is a member of exactly its own room
	total := 0
	for _, room := range rooms {
		for _, id := range f.index.Members(room) {
			p, ok := f.registry.Lookup(id)
			req.True(ok)
			req.Equal(room, p.RoomID)
			total++
		}
	}
	req.Equal(n/2, total)
	req.Equal(n/2, f.registry.Len())
}

func TestRouter_Send_Traces_Each_Delivery(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	ctx := context.Background()
	telemetry := make(chan event.Delivered, 4)
	f.router.WithTelemetry(telemetry)
	alice, bob := domain.NewConnectionID(), domain.NewConnectionID()

	// Given Alice (en) and Bob (fr) in R1
	f.router.Join(ctx, join(alice, "R1", "Alice", "en"))
	f.router.Join(ctx, join(bob, "R1", "Bob", "fr"))
	f.gateway.EXPECT().Translate(gomock.Any(), "hello", "fr", "en").Return("bonjour")

	// When Alice sends a message
	f.router.Send(ctx, domain.SendMessageCommand{ConnectionID: alice, Text: "hello", SourceLanguage: "en"})
	close(telemetry)

	// Then one trace per recipient is published, only Bob's being translated
	traces := map[domain.ConnectionID]event.Delivered{}
	for d := range telemetry {
		traces[d.Recipient] = d
	}
	req.Len(traces, 2)
	req.False(traces[alice].Translated)
	req.True(traces[bob].Translated)
	req.Equal(domain.RoomID("R1"), traces[bob].RoomID)
	req.GreaterOrEqual(traces[bob].LeadTime(), time.Duration(0))
}
