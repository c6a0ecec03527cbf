package discord

import "time"

// Config is the singleton community banner row.
type Config struct {
	IsOnline    bool      `json:"isOnline" db:"is_online"`
	DiscordLink string    `json:"discordLink" db:"discord_link"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type UpdateRequest struct {
	IsOnline    *bool  `json:"isOnline" validate:"required"`
	DiscordLink string `json:"discordLink" validate:"required,url"`
}
