package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"edulearn/edulearn/services/chatsession"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionStore keeps session records in process memory. It backs the offline
// CLI and tests. mu orders writes so a Delete is never undone by an Update.
type SessionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewSessionStore() *SessionStore {
	return &SessionStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *SessionStore) ListByOwner(_ context.Context, ownerID string) ([]chatsession.SessionRecord, error) {
	out := []chatsession.SessionRecord{}
	for _, item := range s.cache.Items() {
		rec := item.Object.(chatsession.SessionRecord)
		if rec.OwnerID == ownerID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *SessionStore) Create(_ context.Context, ownerID string, rec chatsession.SessionRecord) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	rec = copyRecord(rec)
	rec.ID = id.String()
	rec.OwnerID = ownerID
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.Add(rec.ID, rec, cache.NoExpiration); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *SessionStore) Update(_ context.Context, id string, patch chatsession.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(id)
	if !ok {
		return fmt.Errorf("session %s: %w", id, chatsession.ErrNotFound)
	}
	rec := v.(chatsession.SessionRecord)
	patch.Apply(&rec)
	s.cache.SetDefault(id, rec)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(id)
	return nil
}

func copyRecord(rec chatsession.SessionRecord) chatsession.SessionRecord {
	rec.Messages = append([]chatsession.MessageRecord{}, rec.Messages...)
	return rec
}
