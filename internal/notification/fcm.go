package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"falcaoProAPI/internal/types/notification"
)

// multicastLimit is the FCM cap on tokens per multicast request.
const multicastLimit = 500

var ErrNoCredentials = errors.New("no firebase credentials configured")

type FCMService struct {
	client *messaging.Client
	logger *slog.Logger
}

// NewFCMService prefers base64 encoded credentials and falls back to a
// service account file on disk.
func NewFCMService(ctx context.Context, encodedCreds, localFilePath string, logger *slog.Logger) (*FCMService, error) {
	var opt option.ClientOption

	switch {
	case encodedCreds != "":
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case localFilePath != "":
		if _, err := os.Stat(localFilePath); err != nil {
			return nil, fmt.Errorf("%w: %s not readable: %v", ErrNoCredentials, localFilePath, err)
		}
		opt = option.WithCredentialsFile(localFilePath)
	default:
		return nil, ErrNoCredentials
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, logger: logger}, nil
}

// SendPush delivers one notification to every token. It returns the tokens
// FCM reported as no longer registered so callers can prune them.
func (s *FCMService) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	raw := make([]string, 0, len(tokens))
	for _, t := range tokens {
		raw = append(raw, t.Token)
	}

	var stale []string
	success, failure := 0, 0

	for start := 0; start < len(raw); start += multicastLimit {
		end := min(start+multicastLimit, len(raw))
		chunk := raw[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: "default",
				},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{Sound: "default"},
				},
			},
		})
		if err != nil {
			return stale, fmt.Errorf("fcm multicast failed: %w", err)
		}

		success += resp.SuccessCount
		failure += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			if messaging.IsRegistrationTokenNotRegistered(r.Error) {
				stale = append(stale, chunk[i])
			}
		}
	}

	s.logger.Info("fcm push sent", "success", success, "failed", failure, "stale", len(stale))

	if success == 0 && failure > 0 {
		return stale, errors.New("all push notifications failed")
	}
	return stale, nil
}
