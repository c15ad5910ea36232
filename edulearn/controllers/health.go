package controllers

import (
	"net/http"

	httputils "edulearn/edulearn/utils/http"
)

// StoreCounter reports how many owner stores are open; *chatsession.Registry is one.
type StoreCounter interface {
	Len() int
}

type HealthController struct {
	backend string
	stores  StoreCounter
}

func NewHealthController(backend string, stores StoreCounter) *HealthController {
	return &HealthController{backend: backend, stores: stores}
}

type healthStatus struct {
	Status       string `json:"status"`
	Backend      string `json:"backend,omitempty"`
	ActiveStores int    `json:"activeStores"`
}

func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	st := healthStatus{Status: "ok", Backend: h.backend}
	if h.stores != nil {
		st.ActiveStores = h.stores.Len()
	}
	httputils.WriteJSON(w, http.StatusOK, st)
}
