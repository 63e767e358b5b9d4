// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"log/slog"

	"github.com/google/uuid"
)

// ConnectionID is assigned by the transport when a connection opens.
// It is never reused once the connection is closed.
type ConnectionID uuid.UUID

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New())
}

func (c ConnectionID) String() string {
	return uuid.UUID(c).String()
}

// LogValue renders the identifier as its canonical string in structured logs.
func (c ConnectionID) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

func (c ConnectionID) MarshalText() ([]byte, error) {
	return uuid.UUID(c).MarshalText()
}

func (c *ConnectionID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(c).UnmarshalText(data)
}

// Participant is the membership record of one connection.
// Name and language are fixed for the whole session.
type Participant struct {
	ConnectionID ConnectionID
	DisplayName  string
	LanguageCode string
	RoomID       RoomID
}
