package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/types/activity"
	"falcaoProAPI/internal/types/notification"
)

type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
	logger     *slog.Logger
}

func NewNotificationService(db *pgxpool.Pool, logger *slog.Logger) *NotificationService {
	s := &NotificationService{db: db, logger: logger}
	s.dispatcher = NewNotificationDispatcher(s, 3, logger)
	return s
}

// SetPushProvider enables push delivery. Without a provider broadcasts are
// only logged.
func (s *NotificationService) SetPushProvider(p PushNotificationProvider) {
	s.dispatcher.SetPushProvider(p)
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (token, user_id, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
			SET user_id = EXCLUDED.user_id,
				platform = EXCLUDED.platform,
				created_at = NOW()`, req.Token, userID, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// ListDeviceTokens returns the tokens of the given users, or of every user
// who can currently see the feed (grace period included) when userIDs is
// empty.
func (s *NotificationService) ListDeviceTokens(ctx context.Context, userIDs []string) ([]notification.DeviceToken, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(userIDs) > 0 {
		rows, err = s.db.Query(ctx, `
			SELECT token, platform, created_at
			FROM device_tokens
			WHERE user_id = ANY($1::uuid[])`, userIDs)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT d.token, d.platform, d.created_at
			FROM device_tokens d
			JOIN users u ON u.id = d.user_id
			WHERE u.is_admin
			   OR u.subscription_end_date > NOW() - INTERVAL '4 days'`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) DeleteDeviceTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM device_tokens WHERE token = ANY($1)`, tokens)
	if err != nil {
		return fmt.Errorf("failed to delete device tokens: %w", err)
	}
	return nil
}

func (s *NotificationService) NotifyBroadcast(a *activity.Activity) {
	s.dispatcher.Dispatch(&DispatchJob{
		Title: "Novo método disponível",
		Body:  a.Title,
		Data: map[string]string{
			"type":        "activity",
			"broadcastId": a.BroadcastID,
		},
	})
}

// NotifyExpiring reminds the given users that their plan ends in days.
func (s *NotificationService) NotifyExpiring(userIDs []string, days int) {
	if len(userIDs) == 0 {
		return
	}
	s.dispatcher.Dispatch(&DispatchJob{
		UserIDs: userIDs,
		Title:   "Sua assinatura está acabando",
		Body:    fmt.Sprintf("Faltam %d dias para o fim do seu plano. Renove para não perder os métodos.", days),
		Data: map[string]string{
			"type": "subscription_reminder",
		},
	})
}

func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}
