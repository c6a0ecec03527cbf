package handlers

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	db Pinger
}

// NewSystemHandler takes a nil db when the backend is not configured.
func NewSystemHandler(db Pinger) *SystemHandler {
	return &SystemHandler{db: db}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":  "disabled",
			"service": "falcaopro-api",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "falcaopro-api",
	})
}

// Disabled answers every route while the backend is not configured.
func (h *SystemHandler) Disabled(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusServiceUnavailable, "backend not configured")
}
