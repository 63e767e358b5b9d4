// Package event defines what the router pushes to connections.
package event

import (
	"fmt"
	"polychat/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	UserJoinedType      Type = "user-joined"
	UserLeftType        Type = "user-left"
	RoomUsersType       Type = "room-users"
	MessageReceivedType Type = "message-received"
)

// DomainEvent is addressed to a single connection.
type DomainEvent interface {
	Type() Type
}

type UserJoined struct {
	DisplayName  string
	LanguageCode string
	Message      string
}

func (UserJoined) Type() Type { return UserJoinedType }

func NewUserJoined(p domain.Participant) UserJoined {
	return UserJoined{
		DisplayName:  p.DisplayName,
		LanguageCode: p.LanguageCode,
		Message:      fmt.Sprintf("%s joined the chat", p.DisplayName),
	}
}

type UserLeft struct {
	DisplayName string
	Message     string
}

func (UserLeft) Type() Type { return UserLeftType }

func NewUserLeft(p domain.Participant) UserLeft {
	return UserLeft{
		DisplayName: p.DisplayName,
		Message:     fmt.Sprintf("%s left the chat", p.DisplayName),
	}
}

// RoomUsers is the full member list of a room at the time it was sent.
type RoomUsers struct {
	Users []domain.Member
}

func (RoomUsers) Type() Type { return RoomUsersType }

type MessageReceived struct {
	ID             uuid.UUID
	SenderName     string
	DisplayedText  string
	OriginalText   string
	SourceLanguage string
	TargetLanguage string
	Timestamp      time.Time
}

func (MessageReceived) Type() Type { return MessageReceivedType }

func NewMessageReceived(d domain.DeliveryEvent) MessageReceived {
	return MessageReceived{
		ID:             d.MessageID,
		SenderName:     d.SenderName,
		DisplayedText:  d.DisplayedText,
		OriginalText:   d.OriginalText,
		SourceLanguage: d.SourceLanguage,
		TargetLanguage: d.TargetLanguage,
		Timestamp:      d.DeliveredAt,
	}
}
