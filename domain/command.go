package domain

import (
	"time"
)

// Command is anything a connection asks the router to do.
// Commands of one connection are handled in the order they were received.
type Command interface {
	Connection() ConnectionID
}

type JoinRoomCommand struct {
	ConnectionID ConnectionID
	RoomID       RoomID
	DisplayName  string
	LanguageCode string
}

func (c JoinRoomCommand) Connection() ConnectionID { return c.ConnectionID }

type SendMessageCommand struct {
	ConnectionID   ConnectionID
	RoomID         RoomID
	Text           string
	SourceLanguage string
	CreatedAt      time.Time
}

func (c SendMessageCommand) Connection() ConnectionID { return c.ConnectionID }

// LeaveRoomCommand covers both an explicit leave and a disconnect.
type LeaveRoomCommand struct {
	ConnectionID ConnectionID
}

func (c LeaveRoomCommand) Connection() ConnectionID { return c.ConnectionID }
