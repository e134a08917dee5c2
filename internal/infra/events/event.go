package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event dispatched through the Bus.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	// Subject is the user the event concerns.
	Subject() uuid.UUID
}

// Meta carries the fields shared by every event. Embed it in concrete events.
type Meta struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    uuid.UUID `json:"user_id"`
}

// NewMeta stamps a new event of the given type about userID.
func NewMeta(eventType string, userID uuid.UUID) Meta {
	return Meta{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

func (m Meta) EventID() uuid.UUID    { return m.ID }
func (m Meta) EventType() string     { return m.Type }
func (m Meta) OccurredAt() time.Time { return m.Timestamp }
func (m Meta) Subject() uuid.UUID    { return m.UserID }
