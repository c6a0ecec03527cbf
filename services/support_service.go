package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/types/support"
)

var ErrMessageNotFound = errors.New("support message not found")

type SupportService struct {
	db *pgxpool.Pool
}

func NewSupportService(db *pgxpool.Pool) *SupportService {
	return &SupportService{db: db}
}

func (s *SupportService) Send(ctx context.Context, userID, text string) (*support.Message, error) {
	m := &support.Message{
		ID:      uuid.NewString(),
		UserID:  userID,
		Message: text,
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO support_messages (id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING read, created_at`, m.ID, m.UserID, m.Message).Scan(&m.Read, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to send support message: %w", err)
	}
	return m, nil
}

// Inbox lists every message, newest first, with the sender's contact.
func (s *SupportService) Inbox(ctx context.Context, limit int) (*support.InboxResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.user_id, u.email, COALESCE(u.name, ''), m.message, m.read, m.created_at
		FROM support_messages m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}
	defer rows.Close()

	resp := &support.InboxResponse{Messages: []*support.Message{}}
	for rows.Next() {
		m := &support.Message{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.UserEmail, &m.UserName, &m.Message, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan support message: %w", err)
		}
		resp.Messages = append(resp.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate support messages: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM support_messages WHERE NOT read`).Scan(&resp.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return resp, nil
}

func (s *SupportService) MarkRead(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrMessageNotFound
	}

	tag, err := s.db.Exec(ctx, `UPDATE support_messages SET read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}
