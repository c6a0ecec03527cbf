package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"falcaoProAPI/internal/types/support"
	"falcaoProAPI/middleware"
)

type SupportSender interface {
	Send(ctx context.Context, userID, text string) (*support.Message, error)
}

type SupportHandler struct {
	support SupportSender
	logger  *slog.Logger
}

func NewSupportHandler(support SupportSender, logger *slog.Logger) *SupportHandler {
	return &SupportHandler{support: support, logger: logger}
}

func (h *SupportHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req support.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.support.Send(ctx, u.ID, req.Message)
	if err != nil {
		h.logger.Error("failed to send support message", "user_id", u.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}
