package chatsession

import (
	"encoding/json"
	"fmt"
)

func toRecord(s *Session) SessionRecord {
	return SessionRecord{
		ID:        s.ID,
		Title:     s.Title,
		Starred:   s.Starred,
		Messages:  toMessageRecords(s.Messages),
		OwnerID:   s.OwnerID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toMessageRecords(msgs []Message) []MessageRecord {
	out := make([]MessageRecord, len(msgs))
	for i, m := range msgs {
		out[i] = MessageRecord{
			ID:        m.ID,
			Sender:    string(m.Sender),
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC(),
		}
	}
	return out
}

// fromRecord deserializes a stored record. Unknown senders are an error
// rather than silently becoming assistant messages.
func fromRecord(rec SessionRecord) (Session, error) {
	s := Session{
		ID:        rec.ID,
		Title:     rec.Title,
		Starred:   rec.Starred,
		OwnerID:   rec.OwnerID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Messages:  make([]Message, 0, len(rec.Messages)),
	}
	if s.Title == "" {
		s.Title = SentinelTitle
	}
	for _, m := range rec.Messages {
		sender, ok := ParseSender(m.Sender)
		if !ok {
			return Session{}, fmt.Errorf("session %s: message %s: unknown sender %q", rec.ID, m.ID, m.Sender)
		}
		s.Messages = append(s.Messages, Message{
			ID:        m.ID,
			Sender:    sender,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	return s, nil
}

// MarshalRecords renders sessions in the SessionRecord wire shape.
func MarshalRecords(sessions []Session) ([]byte, error) {
	recs := make([]SessionRecord, len(sessions))
	for i := range sessions {
		recs[i] = toRecord(&sessions[i])
	}
	return json.MarshalIndent(recs, "", "  ")
}
