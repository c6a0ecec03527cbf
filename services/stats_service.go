package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/stats"
)

var ErrEntryNotFound = errors.New("delay profit entry not found")

type StatsService struct {
	db  *pgxpool.Pool
	loc *time.Location
}

func NewStatsService(db *pgxpool.Pool, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{db: db, loc: loc}
}

func (s *StatsService) GetSummary(ctx context.Context, userID string) (*stats.Summary, error) {
	activities, err := listActivities(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.listDelayProfit(ctx, userID)
	if err != nil {
		return nil, err
	}

	return stats.Compute(activities, entries, s.loc), nil
}

func (s *StatsService) listDelayProfit(ctx context.Context, userID string) ([]*stats.DelayProfitEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, amount, created_at
		FROM delay_profit_entries
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delay profit: %w", err)
	}
	defer rows.Close()

	entries := []*stats.DelayProfitEntry{}
	for rows.Next() {
		e := &stats.DelayProfitEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delay profit: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *StatsService) AddDelayProfit(ctx context.Context, userID string, amount float64) (*stats.DelayProfitEntry, error) {
	e := &stats.DelayProfitEntry{
		ID:     uuid.NewString(),
		UserID: userID,
		Amount: amount,
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO delay_profit_entries (id, user_id, amount)
		VALUES ($1, $2, $3)
		RETURNING created_at`, e.ID, e.UserID, e.Amount).Scan(&e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add delay profit: %w", err)
	}
	return e, nil
}

func (s *StatsService) RemoveDelayProfit(ctx context.Context, userID, entryID string) error {
	if _, err := uuid.Parse(entryID); err != nil {
		return ErrEntryNotFound
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM delay_profit_entries
		WHERE id = $1 AND user_id = $2`, entryID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove delay profit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}
