package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"falcaoProAPI/internal/payment"
	"falcaoProAPI/internal/types/subscription"
	"falcaoProAPI/middleware"
)

const SignatureHeader = "X-Monetize-Signature"

type PaymentProcessor interface {
	ProcessEvent(ctx context.Context, ev payment.Event) (payment.Outcome, error)
	RecordDelivery(ctx context.Context, rec *subscription.WebhookEventRecord)
}

type WebhookHandler struct {
	payments PaymentProcessor
	secret   []byte
	logger   *slog.Logger
}

// NewWebhookHandler verifies signatures only when secret is non-empty.
func NewWebhookHandler(payments PaymentProcessor, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		secret:   []byte(secret),
		logger:   logger,
	}
}

func (h *WebhookHandler) HandleMonetizeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if !h.verifySignature(r.Header.Get(SignatureHeader), body) {
		h.logger.Warn("invalid webhook signature", "remote", r.RemoteAddr)
		middleware.ObserveWebhook("unverified", "rejected")
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	ev, raw, err := payment.DecodeEvent(body)
	rec := &subscription.WebhookEventRecord{
		Event:         raw.Name,
		TransactionID: raw.TransactionID,
		CustomerEmail: strings.ToLower(raw.CustomerEmail),
	}
	if json.Valid(body) {
		rec.Payload = body
	}

	switch {
	case errors.Is(err, payment.ErrUnknownEvent):
		h.logger.Info("unhandled webhook event", "event", raw.Name)
		rec.Outcome = payment.OutcomeIgnored
		h.finish(ctx, rec)
		respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	case err != nil:
		h.logger.Warn("malformed webhook payload", "event", raw.Name, "error", err)
		rec.Outcome = payment.OutcomeFailed
		rec.Error = err.Error()
		h.finish(ctx, rec)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("received webhook event", "event", ev.Kind, "transaction_id", ev.TransactionID)

	outcome, err := h.payments.ProcessEvent(ctx, ev)
	rec.Outcome = outcome
	if err != nil {
		h.logger.Error("error processing webhook", "event", ev.Kind, "transaction_id", ev.TransactionID, "error", err)
		rec.Error = err.Error()
		h.finish(ctx, rec)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.finish(ctx, rec)
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) finish(ctx context.Context, rec *subscription.WebhookEventRecord) {
	event := rec.Event
	if _, err := payment.ParseEventKind(event); err != nil {
		event = "unknown"
	}
	middleware.ObserveWebhook(event, string(rec.Outcome))
	h.payments.RecordDelivery(ctx, rec)
}

// verifySignature checks the hex HMAC-SHA256 of the raw body.
func (h *WebhookHandler) verifySignature(signature string, body []byte) bool {
	if len(h.secret) == 0 {
		return true
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
