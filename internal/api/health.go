package api

import (
	"context"
	"net/http"
	"time"

	"github.com/mnemocard/mnemocard/internal/api/respond"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	HealthPing(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{db: db} }

// CheckHealth returns 200 while the process serves traffic.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// CheckStorageHealth probes the backing store with a short deadline.
func (h *HealthHandler) CheckStorageHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.HealthPing(ctx); err != nil {
		respond.WriteServiceUnavailable(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
