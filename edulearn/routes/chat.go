package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"edulearn/edulearn/config"
	"edulearn/edulearn/controllers"
	"edulearn/edulearn/middlewares"
	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/utils/logging"
	"edulearn/edulearn/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func ChatRoutes(ctrl *controllers.ChatController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))
		gr.Use(middleware.Timeout(2 * time.Minute))

		gr.Get("/state", handleJSON(func(r *http.Request) (any, int, error) {
			snap, err := ctrl.State(r.Context(), currentUser(r))
			if err != nil {
				return nil, controllers.StatusFor(err), err
			}
			return snap, http.StatusOK, nil
		}))

		gr.Post("/reload", handleJSON(func(r *http.Request) (any, int, error) {
			return result(ctrl.Reload(r.Context(), currentUser(r)))
		}))

		// GET /chat/sessions?q=momentum&starred=true
		gr.Get("/sessions", handleJSON(func(r *http.Request) (any, int, error) {
			starredOnly, _ := strconv.ParseBool(r.URL.Query().Get("starred"))
			list, err := ctrl.ListSessions(r.Context(), currentUser(r), r.URL.Query().Get("q"), starredOnly)
			if err != nil {
				return nil, controllers.StatusFor(err), err
			}
			return list, http.StatusOK, nil
		}))

		gr.Post("/sessions", handleJSON(func(r *http.Request) (any, int, error) {
			res, status, err := result(ctrl.CreateSession(r.Context(), currentUser(r)))
			if err == nil {
				status = http.StatusCreated
			}
			return res, status, err
		}))

		gr.Delete("/sessions", handleJSON(func(r *http.Request) (any, int, error) {
			return result(ctrl.ClearSessions(r.Context(), currentUser(r), confirmed(r)))
		}))

		gr.Post("/sessions/{id}/select", handleJSON(func(r *http.Request) (any, int, error) {
			return result(ctrl.SelectSession(r.Context(), currentUser(r), chi.URLParam(r, "id")))
		}))

		gr.Patch("/sessions/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.RenameRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			if err := types.Validate(req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			return result(ctrl.RenameSession(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.Title))
		}))

		gr.Post("/sessions/{id}/star", handleJSON(func(r *http.Request) (any, int, error) {
			return result(ctrl.ToggleStar(r.Context(), currentUser(r), chi.URLParam(r, "id")))
		}))

		gr.Delete("/sessions/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			return result(ctrl.DeleteSession(r.Context(), currentUser(r), chi.URLParam(r, "id"), confirmed(r)))
		}))

		gr.Post("/sessions/{id}/messages", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.AppendRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			return result(ctrl.AppendMessage(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.Text))
		}))

		gr.Post("/sessions/{id}/sync", handleJSON(func(r *http.Request) (any, int, error) {
			return result(ctrl.SyncSession(r.Context(), currentUser(r), chi.URLParam(r, "id")))
		}))

		gr.Get("/export", func(w http.ResponseWriter, r *http.Request) {
			out, err := ctrl.Export(r.Context(), currentUser(r))
			if err != nil {
				http.Error(w, err.Error(), controllers.StatusFor(err))
				return
			}
			if out.Key != "" {
				w.Header().Set("X-Export-Key", out.Key)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Disposition", `attachment; filename="edulearn-chats.json"`)
			w.WriteHeader(http.StatusOK)
			w.Write(out.Data)
		})
	})

	// the token travels in the first frame, so the websocket sits outside the auth group
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			logging.ErrorLogger.Error("websocket accept error", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")
		serveSocket(r.Context(), conn, ctrl, cfg)
	})
	return r
}

func serveSocket(ctx context.Context, conn *websocket.Conn, ctrl *controllers.ChatController, cfg config.Config) {
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	if typ != websocket.MessageText {
		conn.Close(websocket.StatusUnsupportedData, "unsupported data")
		return
	}
	var req types.SocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		wsjson.Write(ctx, conn, types.SocketFrame{Type: types.FrameError, Error: "invalid json"})
		conn.Close(websocket.StatusUnsupportedData, "invalid json")
		return
	}
	if err := types.Validate(req); err != nil {
		wsjson.Write(ctx, conn, types.SocketFrame{Type: types.FrameError, Error: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}
	user, err := auth.ParseToken(cfg.JWTSecret, req.Token)
	if err != nil {
		wsjson.Write(ctx, conn, types.SocketFrame{Type: types.FrameError, Error: "invalid token"})
		conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}

	if err := wsjson.Write(ctx, conn, types.SocketFrame{Type: types.FramePending, SessionID: req.SessionID}); err != nil {
		return
	}
	res, err := ctrl.AppendMessage(ctx, user, req.SessionID, req.Text)
	if res.Append != nil {
		frames := []types.SocketFrame{{Type: types.FrameMessage, SessionID: res.SessionID, Payload: res.Append.UserMessage}}
		if res.Append.Reply != nil {
			frames = append(frames, types.SocketFrame{Type: types.FrameMessage, SessionID: res.SessionID, Payload: *res.Append.Reply})
		}
		for _, f := range frames {
			if werr := wsjson.Write(ctx, conn, f); werr != nil {
				logging.ErrorLogger.Error("websocket write error", zap.Error(werr))
				return
			}
		}
	}
	last := types.SocketFrame{Type: types.FrameDone, SessionID: req.SessionID}
	if err != nil {
		last = types.SocketFrame{Type: types.FrameError, SessionID: req.SessionID, Error: err.Error()}
	}
	if err := wsjson.Write(ctx, conn, last); err != nil {
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// failedResult is sent when a message was kept locally but not saved, so the
// client can show it and offer a sync.
type failedResult struct {
	Error string `json:"error"`
	chatsession.Result
}

// result adapts a dispatched command to handleJSON.
func result(res chatsession.Result, err error) (any, int, error) {
	if err != nil {
		if res.Append != nil {
			return failedResult{Error: err.Error(), Result: res}, controllers.StatusFor(err), nil
		}
		return nil, controllers.StatusFor(err), err
	}
	return res, http.StatusOK, nil
}

func confirmed(r *http.Request) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}
