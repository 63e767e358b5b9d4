package event

import (
	"polychat/domain"
	"time"

	"github.com/google/uuid"
)

// Delivered is the technical trace of one message handed to one connection.
type Delivered struct {
	MessageID   uuid.UUID
	RoomID      domain.RoomID
	Recipient   domain.ConnectionID
	Translated  bool
	SentAt      time.Time
	DeliveredAt time.Time
}

func (d Delivered) LeadTime() time.Duration {
	return d.DeliveredAt.Sub(d.SentAt)
}

// Handler Each kind of telemetry has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(d Delivered)
}
