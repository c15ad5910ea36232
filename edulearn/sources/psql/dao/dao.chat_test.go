package dao

import (
	"context"
	"testing"
	"time"

	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/sources/psql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDAO(t *testing.T) *ChatSessionDAO {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	require.NoError(t, psql.Migrate(context.Background(), db))
	return NewChatSessionDAO(db)
}

func TestChatSessionDAOLifecycle(t *testing.T) {
	dao := setupDAO(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	first, err := dao.Create(ctx, "ada", chatsession.SessionRecord{
		Title: chatsession.SentinelTitle, CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	second, err := dao.Create(ctx, "ada", chatsession.SessionRecord{
		Title: "Essay", Starred: true, CreatedAt: now, UpdatedAt: now,
		Messages: []chatsession.MessageRecord{{ID: "m1", Sender: "user", Text: "help", Timestamp: now}},
	})
	require.NoError(t, err)
	_, err = dao.Create(ctx, "bob", chatsession.SessionRecord{Title: "x", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	recs, err := dao.ListByOwner(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, second, recs[0].ID)
	assert.Equal(t, first, recs[1].ID)
	assert.True(t, recs[0].Starred)
	require.Len(t, recs[0].Messages, 1)
	assert.Equal(t, "help", recs[0].Messages[0].Text)
	assert.NotNil(t, recs[1].Messages)
	assert.Empty(t, recs[1].Messages)

	starred := false
	later := now.Add(time.Minute)
	require.NoError(t, dao.Update(ctx, second, chatsession.Patch{Starred: &starred, UpdatedAt: later}))
	recs, err = dao.ListByOwner(ctx, "ada")
	require.NoError(t, err)
	assert.False(t, recs[0].Starred)
	assert.Equal(t, "Essay", recs[0].Title)
	assert.Len(t, recs[0].Messages, 1)
	assert.True(t, recs[0].UpdatedAt.Equal(later))

	require.NoError(t, dao.Delete(ctx, first))
	recs, err = dao.ListByOwner(ctx, "ada")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestChatSessionDAOUpdateUnknown(t *testing.T) {
	dao := setupDAO(t)
	title := "x"
	err := dao.Update(context.Background(), "not-a-uuid", chatsession.Patch{Title: &title})
	assert.ErrorIs(t, err, chatsession.ErrNotFound)

	err = dao.Update(context.Background(), "0190b6a8-7d4c-7c1e-9a6b-3f2d1e0c9b8a", chatsession.Patch{Title: &title})
	assert.ErrorIs(t, err, chatsession.ErrNotFound)
}
