package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"falcaoProAPI/internal/realtime"
	"falcaoProAPI/internal/types/discord"
	"falcaoProAPI/middleware"
)

type DiscordReader interface {
	Get(ctx context.Context) (*discord.Config, error)
}

type DiscordHandler struct {
	discord  DiscordReader
	broker   *realtime.Broker
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewDiscordHandler accepts websocket origins from allowedOrigins; "*"
// accepts any.
func NewDiscordHandler(discord DiscordReader, broker *realtime.Broker, allowedOrigins []string, logger *slog.Logger) *DiscordHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &DiscordHandler{
		discord: discord,
		broker:  broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		logger: logger,
	}
}

func (h *DiscordHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if cfg, ok := h.broker.Current(); ok {
		respondWithJSON(w, http.StatusOK, cfg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.discord.Get(ctx)
	if err != nil {
		h.logger.Error("failed to load discord status", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load Discord status")
		return
	}

	respondWithJSON(w, http.StatusOK, cfg)
}

// StreamStatus upgrades to a websocket that receives the current status at
// once and every newer one after.
func (h *DiscordHandler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if _, ok := h.broker.Current(); !ok {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		cfg, err := h.discord.Get(ctx)
		cancel()
		if err != nil {
			h.logger.Error("failed to load discord status", "error", err)
		} else {
			h.broker.Deliver(*cfg)
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", u.ID, "error", err)
		return
	}

	h.logger.Debug("discord status stream opened", "user_id", u.ID)
	realtime.NewClient(conn, h.broker.Subscribe(), h.logger).Serve()
	h.logger.Debug("discord status stream closed", "user_id", u.ID)
}
