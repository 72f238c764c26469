package handlers

import (
	"net/http"

	"github.com/eshaffer321/cartsync/internal/api/dto"
	"github.com/eshaffer321/cartsync/internal/api/shop"
)

// HealthHandler reports liveness along with the storefront's live
// session and order counts.
type HealthHandler struct {
	*Base
	sessions *shop.Sessions
	orders   *shop.Orders
}

// NewHealthHandler creates a health handler over the shop state.
func NewHealthHandler(base *Base, sessions *shop.Sessions, orders *shop.Orders) *HealthHandler {
	return &HealthHandler{Base: base, sessions: sessions, orders: orders}
}

// ServeHTTP handles the health check request. It never creates a session.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := dto.NewHealthResponse()
	resp.Sessions = h.sessions.Len()
	resp.Orders = h.orders.Len()
	h.WriteJSON(w, http.StatusOK, resp)
}
