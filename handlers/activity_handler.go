package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"falcaoProAPI/internal/types/activity"
	"falcaoProAPI/middleware"
	"falcaoProAPI/services"
)

type ActivityStore interface {
	ListForUser(ctx context.Context, userID string) ([]*activity.Activity, error)
	Complete(ctx context.Context, userID, activityID string, profit float64) (*activity.Activity, error)
	Reopen(ctx context.Context, userID, activityID string) (*activity.Activity, error)
}

type ActivityHandler struct {
	activities ActivityStore
	logger     *slog.Logger
}

func NewActivityHandler(activities ActivityStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger}
}

func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	list, err := h.activities.ListForUser(ctx, u.ID)
	if err != nil {
		h.logger.Error("failed to list activities", "user_id", u.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load activities")
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

func (h *ActivityHandler) CompleteActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req activity.CompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.activities.Complete(ctx, u.ID, mux.Vars(r)["id"], req.Profit())
	if err != nil {
		h.activityError(w, u.ID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, a)
}

func (h *ActivityHandler) ReopenActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	a, err := h.activities.Reopen(ctx, u.ID, mux.Vars(r)["id"])
	if err != nil {
		h.activityError(w, u.ID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, a)
}

func (h *ActivityHandler) activityError(w http.ResponseWriter, userID string, err error) {
	if errors.Is(err, services.ErrActivityNotFound) {
		respondWithError(w, http.StatusNotFound, "Activity not found")
		return
	}
	h.logger.Error("activity update failed", "user_id", userID, "error", err)
	respondWithError(w, http.StatusInternalServerError, "Failed to update activity")
}
