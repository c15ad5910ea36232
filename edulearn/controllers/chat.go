// edulearn/controllers/chat.go
package controllers

import (
	"context"
	"errors"
	"net/http"

	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/utils/logging"

	"go.uber.org/zap"
)

// ExportUploader stores a chat export and returns its object key.
type ExportUploader interface {
	UploadExport(ctx context.Context, ownerID string, data []byte) (string, error)
}

type ChatController struct {
	registry *chatsession.Registry
	exports  ExportUploader
}

// NewChatController wires the per-owner stores. exports may be nil.
func NewChatController(registry *chatsession.Registry, exports ExportUploader) *ChatController {
	return &ChatController{registry: registry, exports: exports}
}

// SessionList splits sessions the way the sidebar shows them.
type SessionList struct {
	Starred []chatsession.Session `json:"starred"`
	Recent  []chatsession.Session `json:"recent"`
}

// Export is a JSON dump of the owner's sessions; Key is empty when nothing was uploaded.
type Export struct {
	Data []byte
	Key  string
}

func (c *ChatController) State(ctx context.Context, u auth.User) (chatsession.Snapshot, error) {
	store, err := c.registry.Open(ctx, u)
	if err != nil {
		return chatsession.Snapshot{}, err
	}
	return store.Snapshot(), nil
}

func (c *ChatController) ListSessions(ctx context.Context, u auth.User, query string, starredOnly bool) (SessionList, error) {
	store, err := c.registry.Open(ctx, u)
	if err != nil {
		return SessionList{}, err
	}
	starred, rest := chatsession.PartitionStarred(chatsession.FilterByTitle(store.Snapshot().Sessions, query))
	list := SessionList{Starred: starred, Recent: rest}
	if starredOnly {
		list.Recent = []chatsession.Session{}
	}
	return list, nil
}

func (c *ChatController) Reload(ctx context.Context, u auth.User) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.LoadSessionsCmd{OwnerID: u.ID})
}

func (c *ChatController) CreateSession(ctx context.Context, u auth.User) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.CreateSessionCmd{OwnerID: u.ID})
}

func (c *ChatController) SelectSession(ctx context.Context, u auth.User, id string) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.SelectSessionCmd{SessionID: id})
}

func (c *ChatController) RenameSession(ctx context.Context, u auth.User, id, title string) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.RenameSessionCmd{SessionID: id, Title: title})
}

func (c *ChatController) ToggleStar(ctx context.Context, u auth.User, id string) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.ToggleStarCmd{SessionID: id})
}

func (c *ChatController) DeleteSession(ctx context.Context, u auth.User, id string, confirmed bool) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.DeleteSessionCmd{SessionID: id, Confirmed: confirmed})
}

func (c *ChatController) ClearSessions(ctx context.Context, u auth.User, confirmed bool) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.ClearSessionsCmd{Confirmed: confirmed})
}

func (c *ChatController) AppendMessage(ctx context.Context, u auth.User, id, text string) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.AppendMessageCmd{SessionID: id, Text: text})
}

func (c *ChatController) SyncSession(ctx context.Context, u auth.User, id string) (chatsession.Result, error) {
	return c.dispatch(ctx, u, chatsession.SyncSessionCmd{SessionID: id})
}

// Export serializes the owner's sessions and, when an uploader is set, stores
// a copy. A failed upload is logged and the export still returned.
func (c *ChatController) Export(ctx context.Context, u auth.User) (Export, error) {
	defer logging.LogDuration(ctx, "chat.Export")()
	store, err := c.registry.Open(ctx, u)
	if err != nil {
		return Export{}, err
	}
	data, err := store.Export()
	if err != nil {
		return Export{}, err
	}
	out := Export{Data: data}
	if c.exports == nil {
		return out, nil
	}
	key, err := c.exports.UploadExport(ctx, u.ID, data)
	if err != nil {
		logging.ErrorLogger.Warn("export upload failed", zap.String("owner", u.ID), zap.Error(err))
		return out, nil
	}
	out.Key = key
	return out, nil
}

func (c *ChatController) dispatch(ctx context.Context, u auth.User, cmd chatsession.Command) (chatsession.Result, error) {
	store, err := c.registry.Open(ctx, u)
	if err != nil {
		return chatsession.Result{}, err
	}
	res, err := store.Dispatch(ctx, cmd)
	if err != nil {
		logging.AppLogger.Info("chat command failed",
			zap.String("owner", u.ID),
			zap.String("session", res.SessionID),
			zap.Error(err),
		)
	}
	return res, err
}

// StatusFor maps store errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, chatsession.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, chatsession.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, chatsession.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatsession.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, chatsession.ErrStorePersistFailed), errors.Is(err, chatsession.ErrResponseFailed):
		return http.StatusBadGateway
	case errors.Is(err, chatsession.ErrStoreLoadFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
