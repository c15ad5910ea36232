package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"edulearn/edulearn/config"
	"edulearn/edulearn/controllers"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/services/llm"
	"edulearn/edulearn/sources/memory"
	"edulearn/edulearn/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = config.Config{JWTSecret: "test-secret"}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, memory.NewSessionStore())
}

func newTestServerWith(t *testing.T, docs chatsession.DocumentStore) *httptest.Server {
	t.Helper()
	ledger := chatsession.NewMemoryLedger()
	gen := llm.NewSimulated(0)
	registry := chatsession.NewRegistry(time.Hour, func() *chatsession.Store {
		return chatsession.NewStore(docs, chatsession.WithSeedLedger(ledger), chatsession.WithGenerator(gen))
	})
	h := NewRouter(testCfg,
		controllers.NewAuthController(registry, testCfg),
		controllers.NewChatController(registry, nil),
		controllers.NewHealthController("memory", registry),
	)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := call(t, srv, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: "ada@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[controllers.LoginResponse](t, resp)
	require.NotEmpty(t, out.Token)
	assert.Equal(t, "Ada", out.User.DisplayName)
	return out.Token
}

func TestHealthRoute(t *testing.T) {
	srv := newTestServer(t)
	resp := call(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadEmail(t *testing.T) {
	srv := newTestServer(t)
	resp := call(t, srv, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginIgnoresPassword(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]string{"email": "ada@example.com", "password": "wrong"}
	resp := call(t, srv, http.MethodPost, "/auth/login", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[controllers.LoginResponse](t, resp).Token)
}

func TestChatRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	resp := call(t, srv, http.MethodGet, "/chat/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/chat/state", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	state := decode[chatsession.Snapshot](t, call(t, srv, http.MethodGet, "/chat/state", token, nil))
	require.Len(t, state.Sessions, 3)

	resp := call(t, srv, http.MethodPost, "/chat/sessions", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[chatsession.Result](t, resp)
	id := created.SessionID
	require.NotEmpty(t, id)
	assert.Equal(t, id, created.Snapshot.ActiveSessionID)

	resp = call(t, srv, http.MethodPost, "/chat/sessions/"+id+"/messages", token, types.AppendRequest{Text: "What is a derivative?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	appended := decode[chatsession.Result](t, resp)
	require.NotNil(t, appended.Append)
	assert.Equal(t, "What is a derivative?", appended.Append.Title)
	require.NotNil(t, appended.Append.Reply)
	assert.Equal(t, chatsession.SenderAssistant, appended.Append.Reply.Sender)

	resp = call(t, srv, http.MethodPatch, "/chat/sessions/"+id, token, types.RenameRequest{Title: "Derivatives"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/chat/sessions/"+id+"/star", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	starred := decode[chatsession.Result](t, resp)
	require.NotNil(t, starred.Starred)
	assert.True(t, *starred.Starred)

	list := decode[controllers.SessionList](t, call(t, srv, http.MethodGet, "/chat/sessions?q=deriv&starred=true", token, nil))
	require.Len(t, list.Starred, 1)
	assert.Equal(t, "Derivatives", list.Starred[0].Title)

	resp = call(t, srv, http.MethodDelete, "/chat/sessions/"+id, token, nil)
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)

	resp = call(t, srv, http.MethodDelete, "/chat/sessions/"+id+"?confirm=true", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[chatsession.Result](t, resp)
	assert.Len(t, after.Snapshot.Sessions, 3)

	resp = call(t, srv, http.MethodPost, "/chat/sessions/"+id+"/select", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// failingUpdates rejects every Update while failing is set.
type failingUpdates struct {
	*memory.SessionStore
	failing atomic.Bool
}

func (f *failingUpdates) Update(ctx context.Context, id string, patch chatsession.Patch) error {
	if f.failing.Load() {
		return errors.New("write refused")
	}
	return f.SessionStore.Update(ctx, id, patch)
}

func TestAppendPersistFailureReturnsLocalResult(t *testing.T) {
	docs := &failingUpdates{SessionStore: memory.NewSessionStore()}
	srv := newTestServerWith(t, docs)
	token := login(t, srv)
	state := decode[chatsession.Snapshot](t, call(t, srv, http.MethodGet, "/chat/state", token, nil))
	id := state.Sessions[0].ID

	docs.failing.Store(true)
	resp := call(t, srv, http.MethodPost, "/chat/sessions/"+id+"/messages", token, types.AppendRequest{Text: "Is this saved?"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	failed := decode[failedResult](t, resp)
	assert.Contains(t, failed.Error, "write refused")
	require.NotNil(t, failed.Append)
	assert.Equal(t, "Is this saved?", failed.Append.UserMessage.Text)
	assert.Equal(t, id, failed.SessionID)

	docs.failing.Store(false)
	resp = call(t, srv, http.MethodPost, "/chat/sessions/"+id+"/sync", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAppendRejectsBlankText(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)
	state := decode[chatsession.Snapshot](t, call(t, srv, http.MethodGet, "/chat/state", token, nil))

	resp := call(t, srv, http.MethodPost, "/chat/sessions/"+state.Sessions[0].ID+"/messages", token, types.AppendRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearAndExport(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp := call(t, srv, http.MethodGet, "/chat/export", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Export-Key"))
	records := decode[[]chatsession.SessionRecord](t, resp)
	assert.Len(t, records, 3)

	resp = call(t, srv, http.MethodDelete, "/chat/sessions", token, nil)
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)

	resp = call(t, srv, http.MethodDelete, "/chat/sessions?confirm=true", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := decode[chatsession.Result](t, resp)
	assert.Empty(t, cleared.Snapshot.Sessions)
}

func TestLogoutDropsStore(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp := call(t, srv, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// the token is still valid, so the next request reopens the store from storage
	state := decode[chatsession.Snapshot](t, call(t, srv, http.MethodGet, "/chat/state", token, nil))
	assert.Len(t, state.Sessions, 3)
}

func TestChatWebSocket(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)
	state := decode[chatsession.Snapshot](t, call(t, srv, http.MethodGet, "/chat/state", token, nil))
	id := state.Sessions[0].ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/chat/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, types.SocketRequest{Token: token, SessionID: id, Text: "Explain momentum"}))

	var got []types.FrameType
	for {
		var f types.SocketFrame
		require.NoError(t, wsjson.Read(ctx, conn, &f))
		got = append(got, f.Type)
		if f.Type == types.FrameDone || f.Type == types.FrameError {
			break
		}
	}
	assert.Equal(t, []types.FrameType{types.FramePending, types.FrameMessage, types.FrameMessage, types.FrameDone}, got)
}

func TestChatWebSocketRejectsBadToken(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/chat/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, types.SocketRequest{Token: "nope", SessionID: "x", Text: "hi"}))
	var f types.SocketFrame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	assert.Equal(t, types.FrameError, f.Type)
	assert.Equal(t, "invalid token", f.Error)
}
