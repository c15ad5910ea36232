// edulearn/routes/auth.go
package routes

import (
	"encoding/json"
	"net/http"

	"edulearn/edulearn/config"
	"edulearn/edulearn/controllers"
	"edulearn/edulearn/middlewares"
	"edulearn/edulearn/utils/types"

	"github.com/go-chi/chi/v5"
)

func AuthRoutes(ctrl *controllers.AuthController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		resp, err := ctrl.Login(r.Context(), req)
		if err != nil {
			return nil, controllers.StatusFor(err), err
		}
		return resp, http.StatusOK, nil
	}))

	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))
		gr.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			ctrl.Logout(r.Context(), currentUser(r))
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}
