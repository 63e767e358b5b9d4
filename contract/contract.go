//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"polychat/domain"
	"polychat/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives the events addressed to one connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IHub resolves a connection identity to its sink.
// Delivering to a connection that is gone returns errors.ErrConnectionClosed.
type IHub interface {
	Attach(id domain.ConnectionID, sink EventSink)
	Detach(id domain.ConnectionID)
	Deliver(ctx context.Context, id domain.ConnectionID, e event.DomainEvent) error
}

// ISessionRegistry maps a connection to its Participant.
type ISessionRegistry interface {
	Register(p domain.Participant)
	Unregister(id domain.ConnectionID) (domain.Participant, bool)
	Lookup(id domain.ConnectionID) (domain.Participant, bool)
}

// IRoomIndex maps a room to its members, in join order.
type IRoomIndex interface {
	AddMember(roomID domain.RoomID, id domain.ConnectionID)
	RemoveMember(roomID domain.RoomID, id domain.ConnectionID)
	Members(roomID domain.RoomID) []domain.ConnectionID
	AllRooms() []domain.RoomStat
	Count(roomID domain.RoomID) int
	Exists(roomID domain.RoomID) bool
}

// Translator is one external translation provider. It may fail.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (string, error)
	SupportedLanguages(ctx context.Context) ([]domain.Language, error)
}

// ITranslationGateway never fails: on provider error it returns the original text.
type ITranslationGateway interface {
	Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) string
	Languages(ctx context.Context) []domain.Language
}

type ITranslationCache interface {
	Get(key string) (domain.CachedTranslation, bool)
	Set(key string, entry domain.CachedTranslation) error
}

// ILanguageDetector guesses the language of a text.
// ok is false when the guess is not reliable.
type ILanguageDetector interface {
	Detect(text string) (lang string, ok bool)
}

// ICensor masks forbidden words in a text.
type ICensor interface {
	Censor(original string) (string, []string)
}

type IRouter interface {
	Handle(ctx context.Context, cmd domain.Command)
	Join(ctx context.Context, cmd domain.JoinRoomCommand)
	Leave(ctx context.Context, cmd domain.LeaveRoomCommand)
	Send(ctx context.Context, cmd domain.SendMessageCommand)
	Rooms() []domain.RoomStat
	Room(roomID domain.RoomID) domain.RoomInfo
	Stats() domain.Stats
}
