package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"falcaoProAPI/internal/types/activity"
	"falcaoProAPI/internal/types/admin"
	"falcaoProAPI/internal/types/discord"
	"falcaoProAPI/internal/types/support"
	"falcaoProAPI/services"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, req *activity.BroadcastRequest) (*activity.BroadcastResult, error)
}

type DiscordUpdater interface {
	Update(ctx context.Context, req *discord.UpdateRequest) (*discord.Config, error)
}

type OverviewProvider interface {
	Overview(ctx context.Context) (*admin.Overview, error)
}

type SupportInbox interface {
	Inbox(ctx context.Context, limit int) (*support.InboxResponse, error)
	MarkRead(ctx context.Context, id string) error
}

type AdminHandler struct {
	activities Broadcaster
	discord    DiscordUpdater
	overview   OverviewProvider
	support    SupportInbox
	logger     *slog.Logger
}

func NewAdminHandler(activities Broadcaster, discord DiscordUpdater, overview OverviewProvider, support SupportInbox, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		activities: activities,
		discord:    discord,
		overview:   overview,
		support:    support,
		logger:     logger,
	}
}

// BroadcastActivity fans a post out to every user. A partial failure still
// answers 201 with the counts; only a total failure is a 500.
func (h *AdminHandler) BroadcastActivity(w http.ResponseWriter, r *http.Request) {
	var req activity.BroadcastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// the fan-out outlives a client disconnect
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 60*time.Second)
	defer cancel()

	result, err := h.activities.Broadcast(ctx, &req)
	if err != nil {
		h.logger.Error("broadcast failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to broadcast activity")
		return
	}
	if result.Recipients > 0 && result.Inserted == 0 {
		respondWithJSON(w, http.StatusInternalServerError, result)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *AdminHandler) UpdateDiscord(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req discord.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.discord.Update(ctx, &req)
	if err != nil {
		h.logger.Error("failed to update discord status", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update Discord status")
		return
	}

	respondWithJSON(w, http.StatusOK, cfg)
}

func (h *AdminHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.overview.Overview(ctx)
	if err != nil {
		h.logger.Error("failed to build overview", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load overview")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) ListSupportMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	inbox, err := h.support.Inbox(ctx, limit)
	if err != nil {
		h.logger.Error("failed to load support inbox", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	respondWithJSON(w, http.StatusOK, inbox)
}

func (h *AdminHandler) MarkSupportMessageRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.support.MarkRead(ctx, mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			respondWithError(w, http.StatusNotFound, "Message not found")
			return
		}
		h.logger.Error("failed to mark message read", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update message")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
