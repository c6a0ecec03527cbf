package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"falcaoProAPI/internal/stats"
	"falcaoProAPI/middleware"
	"falcaoProAPI/services"
)

type StatsStore interface {
	GetSummary(ctx context.Context, userID string) (*stats.Summary, error)
	AddDelayProfit(ctx context.Context, userID string, amount float64) (*stats.DelayProfitEntry, error)
	RemoveDelayProfit(ctx context.Context, userID, entryID string) error
}

type StatsHandler struct {
	stats  StatsStore
	logger *slog.Logger
}

func NewStatsHandler(stats StatsStore, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	summary, err := h.stats.GetSummary(ctx, u.ID)
	if err != nil {
		h.logger.Error("failed to compute stats", "user_id", u.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *StatsHandler) AddDelayProfit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req stats.AddDelayProfitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.stats.AddDelayProfit(ctx, u.ID, req.Amount)
	if err != nil {
		h.logger.Error("failed to add delay profit", "user_id", u.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to add entry")
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

func (h *StatsHandler) RemoveDelayProfit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.stats.RemoveDelayProfit(ctx, u.ID, mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			respondWithError(w, http.StatusNotFound, "Entry not found")
			return
		}
		h.logger.Error("failed to remove delay profit", "user_id", u.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to remove entry")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
