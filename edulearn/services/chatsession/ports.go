package chatsession

import (
	"context"
	"time"
)

// DocumentStore persists session records. Implementations must filter
// ListByOwner by owner and return the most recently created first.
type DocumentStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]SessionRecord, error)
	Create(ctx context.Context, ownerID string, rec SessionRecord) (string, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

// SessionRecord is the wire shape of a stored session.
type SessionRecord struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Starred   bool            `json:"starred"`
	Messages  []MessageRecord `json:"messages"`
	OwnerID   string          `json:"ownerId"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type MessageRecord struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Title     *string
	Starred   *bool
	Messages  []MessageRecord
	UpdatedAt time.Time
}

// Fields flattens the patch into snake_case column names.
func (p Patch) Fields() map[string]any {
	fields := map[string]any{"updated_at": p.UpdatedAt}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Starred != nil {
		fields["starred"] = *p.Starred
	}
	if p.Messages != nil {
		fields["messages"] = p.Messages
	}
	return fields
}

// Apply merges the patch into rec in place.
func (p Patch) Apply(rec *SessionRecord) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Starred != nil {
		rec.Starred = *p.Starred
	}
	if p.Messages != nil {
		rec.Messages = append([]MessageRecord(nil), p.Messages...)
	}
	if !p.UpdatedAt.IsZero() {
		rec.UpdatedAt = p.UpdatedAt
	}
}

// SessionContext is what a ResponseGenerator sees of the conversation.
type SessionContext struct {
	SessionID string
	OwnerID   string
	Title     string
	History   []Message
}

// ResponseGenerator produces the assistant counterpart to the last user message.
type ResponseGenerator interface {
	GenerateResponse(ctx context.Context, sc SessionContext) (Message, error)
}

type EventType string

const (
	EventSessionsLoaded  EventType = "sessions.loaded"
	EventSessionsSeeded  EventType = "sessions.seeded"
	EventSessionsCleared EventType = "sessions.cleared"
	EventSessionCreated  EventType = "session.created"
	EventSessionRenamed  EventType = "session.renamed"
	EventSessionStarred  EventType = "session.starred"
	EventSessionDeleted  EventType = "session.deleted"
	EventMessageAppended EventType = "message.appended"
)

type Event struct {
	Type       EventType      `json:"type"`
	OwnerID    string         `json:"ownerId"`
	SessionID  string         `json:"sessionId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventSink receives store events after successful mutations.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}
