// edulearn/routes/routes.go
package routes

import (
	"net/http"

	"edulearn/edulearn/config"
	"edulearn/edulearn/controllers"
	"edulearn/edulearn/middlewares"
	"edulearn/edulearn/services/auth"
	httputils "edulearn/edulearn/utils/http"
	"edulearn/edulearn/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every route area behind the shared middleware stack.
func NewRouter(cfg config.Config, authCtrl *controllers.AuthController, chatCtrl *controllers.ChatController, healthCtrl *controllers.HealthController) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestMiddleware)
	r.Use(middleware.Recoverer)

	r.Mount("/health", HealthRoutes(healthCtrl))
	r.Mount("/auth", AuthRoutes(authCtrl, cfg))
	r.Mount("/chat", ChatRoutes(chatCtrl, cfg))
	return r
}

// generic wrapper to reduce boilerplate
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		httputils.WriteJSON(w, status, res)
	}
}

// currentUser is only called behind AuthMiddleware.
func currentUser(r *http.Request) auth.User {
	u, _ := middlewares.UserFrom(r.Context())
	return u
}

