package types

import "time"

// EventType names a domain event published after a successful write.
type EventType string

const (
	EventUserRegistered  EventType = "user.registered"
	EventNoteCreated     EventType = "note.created"
	EventNoteUpdated     EventType = "note.updated"
	EventNoteDeleted     EventType = "note.deleted"
	EventCategoryCreated EventType = "category.created"
	EventCategoryDeleted EventType = "category.deleted"
	EventNotesExported   EventType = "notes.exported"
)

// Event is the JSON payload placed on the events channel. It never carries
// note content or credentials.
type Event struct {
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id"`
	ResourceID string    `json:"resource_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
