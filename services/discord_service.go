package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/types/discord"
)

// StatusPublisher receives every stored Discord status.
type StatusPublisher interface {
	Publish(ctx context.Context, cfg discord.Config)
}

type DiscordService struct {
	db        *pgxpool.Pool
	publisher StatusPublisher
}

func NewDiscordService(db *pgxpool.Pool, publisher StatusPublisher) *DiscordService {
	return &DiscordService{db: db, publisher: publisher}
}

// Get returns the singleton row, or an offline banner when none exists yet.
func (s *DiscordService) Get(ctx context.Context) (*discord.Config, error) {
	cfg := &discord.Config{}
	err := s.db.QueryRow(ctx, `
		SELECT is_online, discord_link, updated_at
		FROM discord_config
		WHERE id = 1`).Scan(&cfg.IsOnline, &cfg.DiscordLink, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &discord.Config{}, nil
		}
		return nil, fmt.Errorf("failed to get discord config: %w", err)
	}
	return cfg, nil
}

func (s *DiscordService) Update(ctx context.Context, req *discord.UpdateRequest) (*discord.Config, error) {
	cfg := &discord.Config{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO discord_config (id, is_online, discord_link, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
			SET is_online = EXCLUDED.is_online,
				discord_link = EXCLUDED.discord_link,
				updated_at = EXCLUDED.updated_at
		RETURNING is_online, discord_link, updated_at`,
		*req.IsOnline, req.DiscordLink,
	).Scan(&cfg.IsOnline, &cfg.DiscordLink, &cfg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update discord config: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, *cfg)
	}
	return cfg, nil
}
