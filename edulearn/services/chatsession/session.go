// edulearn/services/chatsession/session.go
package chatsession

import (
	"strings"
	"time"
)

// SentinelTitle marks a session that has not been auto-titled yet.
const SentinelTitle = "New Chat"

// MaxTitleLength is the number of runes kept from the first user message.
const MaxTitleLength = 30

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ParseSender accepts the wire values plus the legacy "ai" alias.
func ParseSender(s string) (Sender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return SenderUser, true
	case "assistant", "ai":
		return SenderAssistant, true
	}
	return "", false
}

type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Starred   bool      `json:"starred"`
	Messages  []Message `json:"messages"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Session) clone() Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return c
}

type LoadStatus string

const (
	LoadIdle    LoadStatus = "idle"
	LoadLoading LoadStatus = "loading"
	LoadError   LoadStatus = "error"
)

// Snapshot is a deep copy of the store state handed to consumers.
type Snapshot struct {
	OwnerID         string     `json:"ownerId,omitempty"`
	Sessions        []Session  `json:"sessions"`
	ActiveSessionID string     `json:"activeSessionId,omitempty"`
	ActiveMessages  []Message  `json:"activeMessages"`
	PendingResponse bool       `json:"pendingResponse"`
	LoadStatus      LoadStatus `json:"loadStatus"`
}

// Active returns the active session of the snapshot, if any.
func (s Snapshot) Active() (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == s.ActiveSessionID {
			return sess, true
		}
	}
	return Session{}, false
}
