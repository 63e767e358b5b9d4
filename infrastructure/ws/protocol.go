package ws

import (
	"encoding/json"
	"fmt"
	"polychat/domain"
	"polychat/domain/event"
	"polychat/errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Inbound command types, plus the error reply.
const (
	JoinRoomType    = "join-room"
	SendMessageType = "send-message"
	LeaveRoomType   = "leave-room"
	ErrorType       = "error"
)

// Outbound event types.
const (
	UserJoinedType      = string(event.UserJoinedType)
	UserLeftType        = string(event.UserLeftType)
	RoomUsersType       = string(event.RoomUsersType)
	MessageReceivedType = string(event.MessageReceivedType)
)

// Inbound is the envelope a client sends.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope the server sends.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type JoinRoomPayload struct {
	RoomID       string `json:"roomId" validate:"required,max=256"`
	DisplayName  string `json:"displayName"`
	LanguageCode string `json:"languageCode"`
}

type SendMessagePayload struct {
	RoomID         string `json:"roomId" validate:"max=256"`
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
}

type UserJoinedPayload struct {
	DisplayName  string `json:"displayName"`
	LanguageCode string `json:"languageCode"`
	Message      string `json:"message"`
}

type UserLeftPayload struct {
	DisplayName string `json:"displayName"`
	Message     string `json:"message"`
}

type MemberPayload struct {
	DisplayName  string `json:"displayName"`
	LanguageCode string `json:"languageCode"`
}

type MessageReceivedPayload struct {
	ID             string    `json:"id"`
	SenderName     string    `json:"senderName"`
	DisplayedText  string    `json:"displayedText"`
	OriginalText   string    `json:"originalText"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	Timestamp      time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Codec turns envelopes into payloads and events into envelopes.
type Codec struct {
	validate *validator.Validate
}

func NewCodec() Codec {
	return Codec{validate: validator.New()}
}

// Decode reads the payload of an inbound envelope into dst and validates it.
func (c Codec) Decode(in Inbound, dst any) error {
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: %s without data", errors.ErrInvalidPayload, in.Type)
	}
	if err := json.Unmarshal(in.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrInvalidPayload, in.Type, err)
	}
	if err := c.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrInvalidPayload, in.Type, err)
	}
	return nil
}

// Encode maps a domain event onto the wire.
func (c Codec) Encode(e event.DomainEvent) (Outbound, error) {
	switch evt := e.(type) {
	case event.UserJoined:
		return Outbound{Type: string(evt.Type()), Data: UserJoinedPayload{
			DisplayName:  evt.DisplayName,
			LanguageCode: evt.LanguageCode,
			Message:      evt.Message,
		}}, nil
	case event.UserLeft:
		return Outbound{Type: string(evt.Type()), Data: UserLeftPayload{
			DisplayName: evt.DisplayName,
			Message:     evt.Message,
		}}, nil
	case event.RoomUsers:
		return Outbound{Type: string(evt.Type()), Data: lo.Map(evt.Users, func(m domain.Member, _ int) MemberPayload {
			return MemberPayload{DisplayName: m.DisplayName, LanguageCode: m.LanguageCode}
		})}, nil
	case event.MessageReceived:
		return Outbound{Type: string(evt.Type()), Data: MessageReceivedPayload{
			ID:             evt.ID.String(),
			SenderName:     evt.SenderName,
			DisplayedText:  evt.DisplayedText,
			OriginalText:   evt.OriginalText,
			SourceLanguage: evt.SourceLanguage,
			TargetLanguage: evt.TargetLanguage,
			Timestamp:      evt.Timestamp,
		}}, nil
	default:
		return Outbound{}, fmt.Errorf("no wire format for %T", e)
	}
}

func ErrorEnvelope(err error) Outbound {
	return Outbound{Type: ErrorType, Data: ErrorPayload{Code: errors.ToWireError(err), Message: err.Error()}}
}
