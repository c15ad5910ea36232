package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/sources/memory"
	"edulearn/edulearn/utils/color"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREPL(t *testing.T, input string) (*repl, *bytes.Buffer) {
	t.Helper()
	color.Disable()
	user := auth.UserFromEmail("ada@example.com")
	store := chatsession.NewStore(memory.NewSessionStore())
	provider := auth.NewProvider()
	t.Cleanup(store.Follow(provider))
	provider.SignIn(context.Background(), user)

	var out bytes.Buffer
	return newREPL(store, user, strings.NewReader(input), &out), &out
}

func TestREPLListsSeededChats(t *testing.T) {
	r, out := newTestREPL(t, "/quit\n")
	require.NoError(t, r.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Signed in as Ada")
	assert.Contains(t, text, "★ Physics: Understanding Momentum")
	assert.Contains(t, text, "Goodbye!")
	require.Len(t, r.listed, 3)
	assert.True(t, r.listed[0].Starred)
}

func TestREPLMessageStartsChat(t *testing.T) {
	r, out := newTestREPL(t, "/select 1\n/new\nWhat is torque?\n/quit\n")
	require.NoError(t, r.run(context.Background()))

	active, ok := r.store.Snapshot().Active()
	require.True(t, ok)
	assert.Equal(t, "What is torque?", active.Title)
	assert.Len(t, active.Messages, 1)
	assert.Contains(t, out.String(), "Started a new chat.")
}

func TestREPLDeleteAsksFirst(t *testing.T) {
	r, out := newTestREPL(t, "/select 2\n/delete\nn\n/delete\ny\n/quit\n")
	require.NoError(t, r.run(context.Background()))

	assert.Contains(t, out.String(), "Kept.")
	assert.Contains(t, out.String(), "Deleted.")
	assert.Len(t, r.store.Snapshot().Sessions, 2)
}

func TestREPLStarAndRename(t *testing.T) {
	r, _ := newTestREPL(t, "/select 3\n/rename Limits\n/star\n/quit\n")
	require.NoError(t, r.run(context.Background()))

	active, ok := r.store.Snapshot().Active()
	require.True(t, ok)
	assert.Equal(t, "Limits", active.Title)
	assert.True(t, active.Starred)
}

func TestREPLReportsUnknownCommand(t *testing.T) {
	r, out := newTestREPL(t, "/select 9\n/dance\n/quit\n")
	require.NoError(t, r.run(context.Background()))

	assert.Contains(t, out.String(), "pick a number from /list")
	assert.Contains(t, out.String(), "unknown command /dance")
}

func TestREPLClearAndExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.json")
	r, _ := newTestREPL(t, "/export "+path+"\n/clear\nyes\n/quit\n")
	require.NoError(t, r.run(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Essay Writing Tips")
	assert.Empty(t, r.store.Snapshot().Sessions)
}
