// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are transient: they live for one handling cycle of the router.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AutoLanguage asks the router to detect the source language of a message.
const AutoLanguage = "auto"

// Message is produced by a send command and discarded once fanned out.
type Message struct {
	ID             uuid.UUID
	SenderName     string
	RoomID         RoomID
	OriginalText   string
	SourceLanguage string
	SentAt         time.Time
}

// DeliveryEvent is the per-recipient rendition of a Message.
type DeliveryEvent struct {
	MessageID      uuid.UUID
	Recipient      ConnectionID
	SenderName     string
	DisplayedText  string
	OriginalText   string
	SourceLanguage string
	TargetLanguage string
	DeliveredAt    time.Time
}

// NewDeliveryEvent builds the delivery for one recipient.
// displayed is the text after translation (or the original on fallback).
func NewDeliveryEvent(m Message, recipient Participant, displayed string, at time.Time) DeliveryEvent {
	return DeliveryEvent{
		MessageID:      m.ID,
		Recipient:      recipient.ConnectionID,
		SenderName:     m.SenderName,
		DisplayedText:  displayed,
		OriginalText:   m.OriginalText,
		SourceLanguage: m.SourceLanguage,
		TargetLanguage: recipient.LanguageCode,
		DeliveredAt:    at,
	}
}

// CachedTranslation is a stored translation with the text it was made from.
// Keys only carry a hash of the text, the text tells two colliding entries apart.
type CachedTranslation struct {
	SourceText     string `json:"source"`
	TranslatedText string `json:"translated"`
}
