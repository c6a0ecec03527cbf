package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"falcaoProAPI/internal/types/notification"
	"falcaoProAPI/middleware"
)

type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error
}

type NotificationHandler struct {
	devices DeviceRegistrar
	logger  *slog.Logger
}

func NewNotificationHandler(devices DeviceRegistrar, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{devices: devices, logger: logger}
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.devices.RegisterDevice(ctx, u.ID, &req); err != nil {
		h.logger.Error("failed to register device", "user_id", u.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}
