package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"edulearn/edulearn/services/chatsession"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	older, err := s.Create(ctx, "ada", chatsession.SessionRecord{Title: "older", CreatedAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	newer, err := s.Create(ctx, "ada", chatsession.SessionRecord{Title: "newer", CreatedAt: now})
	require.NoError(t, err)
	_, err = s.Create(ctx, "bob", chatsession.SessionRecord{Title: "other", CreatedAt: now})
	require.NoError(t, err)

	recs, err := s.ListByOwner(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, newer, recs[0].ID)
	assert.Equal(t, older, recs[1].ID)

	title := "renamed"
	msgs := []chatsession.MessageRecord{{ID: "m1", Sender: "user", Text: "hi", Timestamp: now}}
	require.NoError(t, s.Update(ctx, older, chatsession.Patch{Title: &title, Messages: msgs, UpdatedAt: now}))

	recs, err = s.ListByOwner(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "renamed", recs[1].Title)
	assert.Len(t, recs[1].Messages, 1)
	assert.False(t, recs[1].Starred)

	require.NoError(t, s.Delete(ctx, older))
	recs, err = s.ListByOwner(ctx, "ada")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSessionStoreUpdateMissing(t *testing.T) {
	s := NewSessionStore()
	err := s.Update(context.Background(), "nope", chatsession.Patch{UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, chatsession.ErrNotFound)
}

func TestSessionStoreDeleteWinsOverConcurrentUpdate(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()
	title := "renamed"

	for i := 0; i < 200; i++ {
		id, err := s.Create(ctx, "ada", chatsession.SessionRecord{Title: "doomed", CreatedAt: time.Now()})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			// either applied before the delete or ErrNotFound after it
			_ = s.Update(ctx, id, chatsession.Patch{Title: &title, UpdatedAt: time.Now()})
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Delete(ctx, id))
		}()
		wg.Wait()

		recs, err := s.ListByOwner(ctx, "ada")
		require.NoError(t, err)
		require.Empty(t, recs, "deleted session came back on round %d", i)
	}
}

func TestSessionStoreBacksChatSessionStore(t *testing.T) {
	docs := NewSessionStore()
	store := chatsession.NewStore(docs)
	ctx := context.Background()

	require.NoError(t, store.LoadSessions(ctx, "ada"))
	assert.Len(t, store.Snapshot().Sessions, 3)

	reloaded := chatsession.NewStore(docs)
	require.NoError(t, reloaded.LoadSessions(ctx, "ada"))
	assert.Len(t, reloaded.Snapshot().Sessions, 3)
}
