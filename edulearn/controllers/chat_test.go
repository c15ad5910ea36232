package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/sources/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	key   string
	err   error
	owner string
	data  []byte
}

func (s *stubUploader) UploadExport(_ context.Context, ownerID string, data []byte) (string, error) {
	s.owner = ownerID
	s.data = data
	return s.key, s.err
}

func newTestRegistry() *chatsession.Registry {
	docs := memory.NewSessionStore()
	ledger := chatsession.NewMemoryLedger()
	return chatsession.NewRegistry(time.Hour, func() *chatsession.Store {
		return chatsession.NewStore(docs, chatsession.WithSeedLedger(ledger))
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{chatsession.ErrValidationFailed, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", chatsession.ErrAuthRequired), http.StatusUnauthorized},
		{chatsession.ErrNotFound, http.StatusNotFound},
		{chatsession.ErrConfirmationRequired, http.StatusPreconditionRequired},
		{chatsession.ErrStorePersistFailed, http.StatusBadGateway},
		{errors.Join(chatsession.ErrResponseFailed, errors.New("boom")), http.StatusBadGateway},
		{chatsession.ErrStoreLoadFailed, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestChatControllerListSessions(t *testing.T) {
	ctrl := NewChatController(newTestRegistry(), nil)
	ctx := context.Background()
	u := auth.UserFromEmail("ada@example.com")

	list, err := ctrl.ListSessions(ctx, u, "", false)
	require.NoError(t, err)
	assert.Len(t, list.Starred, 1)
	assert.Len(t, list.Recent, 2)

	list, err = ctrl.ListSessions(ctx, u, "calc", false)
	require.NoError(t, err)
	assert.Empty(t, list.Starred)
	require.Len(t, list.Recent, 1)

	list, err = ctrl.ListSessions(ctx, u, "", true)
	require.NoError(t, err)
	assert.Len(t, list.Starred, 1)
	assert.Empty(t, list.Recent)
}

func TestChatControllerDeleteNeedsConfirmation(t *testing.T) {
	ctrl := NewChatController(newTestRegistry(), nil)
	ctx := context.Background()
	u := auth.UserFromEmail("ada@example.com")

	state, err := ctrl.State(ctx, u)
	require.NoError(t, err)
	id := state.Sessions[0].ID

	_, err = ctrl.DeleteSession(ctx, u, id, false)
	assert.ErrorIs(t, err, chatsession.ErrConfirmationRequired)

	res, err := ctrl.DeleteSession(ctx, u, id, true)
	require.NoError(t, err)
	assert.Len(t, res.Snapshot.Sessions, 2)
}

func TestChatControllerExportUploads(t *testing.T) {
	up := &stubUploader{key: "exports/x.json"}
	ctrl := NewChatController(newTestRegistry(), up)
	u := auth.UserFromEmail("ada@example.com")

	out, err := ctrl.Export(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "exports/x.json", out.Key)
	assert.Equal(t, u.ID, up.owner)
	assert.Equal(t, out.Data, up.data)
}

func TestChatControllerExportSurvivesUploadFailure(t *testing.T) {
	up := &stubUploader{err: errors.New("bucket gone")}
	ctrl := NewChatController(newTestRegistry(), up)

	out, err := ctrl.Export(context.Background(), auth.UserFromEmail("ada@example.com"))
	require.NoError(t, err)
	assert.Empty(t, out.Key)
	assert.NotEmpty(t, out.Data)
}
