package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"falcaoProAPI/internal/types/discord"
)

const StatusChannel = "discord_status"

type relayMessage struct {
	Origin string         `json:"origin"`
	Config discord.Config `json:"config"`
}

// RedisRelay shares status updates between API instances over Redis
// pub/sub.
type RedisRelay struct {
	rdb    *goredis.Client
	origin string
	logger *slog.Logger
}

func NewRedisRelay(rdb *goredis.Client, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:    rdb,
		origin: uuid.NewString(),
		logger: logger,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, cfg discord.Config) error {
	payload, err := json.Marshal(relayMessage{Origin: r.origin, Config: cfg})
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := r.rdb.Publish(ctx, StatusChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// Run feeds updates published by other instances into b until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, b *Broker) {
	sub := r.rdb.Subscribe(ctx, StatusChannel)
	defer sub.Close()

	ch := sub.Channel()
	r.logger.Info("discord status relay listening", "channel", StatusChannel)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.logger.Warn("dropping malformed status message", "error", err)
				continue
			}
			if m.Origin == r.origin {
				continue
			}
			b.Deliver(m.Config)
		}
	}
}
