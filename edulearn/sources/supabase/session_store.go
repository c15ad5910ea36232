package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edulearn/edulearn/config"
	"edulearn/edulearn/services/chatsession"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

// Querier is satisfied by *supabase.Client and *postgrest.Client.
type Querier interface {
	From(table string) *postgrest.QueryBuilder
}

// SessionStore keeps chat sessions in a Supabase table through PostgREST.
type SessionStore struct {
	client Querier
	table  string
}

type sessionRow struct {
	ID        string                      `json:"id,omitempty"`
	OwnerID   string                      `json:"owner_id"`
	Title     string                      `json:"title"`
	Starred   bool                        `json:"starred"`
	Messages  []chatsession.MessageRecord `json:"messages"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

func NewClient(cfg config.Config) (*supa.Client, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL or SUPABASE_KEY is missing")
	}
	return supa.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, &supa.ClientOptions{})
}

func NewSessionStore(client Querier, table string) *SessionStore {
	if table == "" {
		table = "chat_sessions"
	}
	return &SessionStore{client: client, table: table}
}

func (s *SessionStore) ListByOwner(_ context.Context, ownerID string) ([]chatsession.SessionRecord, error) {
	resp, _, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("owner_id", ownerID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, err
	}
	var rows []sessionRow
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	recs := make([]chatsession.SessionRecord, len(rows))
	for i, row := range rows {
		recs[i] = row.record()
	}
	return recs, nil
}

func (s *SessionStore) Create(_ context.Context, ownerID string, rec chatsession.SessionRecord) (string, error) {
	row := sessionRow{
		OwnerID:   ownerID,
		Title:     rec.Title,
		Starred:   rec.Starred,
		Messages:  rec.Messages,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if row.Messages == nil {
		row.Messages = []chatsession.MessageRecord{}
	}
	resp, _, err := s.client.From(s.table).Insert([]sessionRow{row}, false, "", "", "").Execute()
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	var created []sessionRow
	if err := json.Unmarshal(resp, &created); err != nil {
		return "", err
	}
	if len(created) == 0 || created[0].ID == "" {
		return "", fmt.Errorf("insert returned no session")
	}
	return created[0].ID, nil
}

func (s *SessionStore) Update(_ context.Context, id string, patch chatsession.Patch) error {
	resp, _, err := s.client.From(s.table).
		Update(patch.Fields(), "", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	var updated []sessionRow
	if err := json.Unmarshal(resp, &updated); err != nil {
		return fmt.Errorf("failed to parse update result: %w", err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("session %s: %w", id, chatsession.ErrNotFound)
	}
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	_, _, err := s.client.From(s.table).Delete("minimal", "").Eq("id", id).Execute()
	return err
}

func (r sessionRow) record() chatsession.SessionRecord {
	msgs := r.Messages
	if msgs == nil {
		msgs = []chatsession.MessageRecord{}
	}
	return chatsession.SessionRecord{
		ID:        r.ID,
		Title:     r.Title,
		Starred:   r.Starred,
		Messages:  msgs,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
