package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeInventoryReconciled Type = "inventory.reconciled"
	TypeListingFailed       Type = "inventory.listing_failed"
	TypeUploadPhase         Type = "upload.phase"
	TypeDocumentDeleted     Type = "document.deleted"
	TypeStatusChanged       Type = "status.changed"
	TypeStatusCleared       Type = "status.cleared"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// New stamps an event with a fresh id and the current UTC time.
func New(eventType Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
