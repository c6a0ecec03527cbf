package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/types/activity"
)

var ErrActivityNotFound = errors.New("activity not found")

const activityColumns = `id, user_id, broadcast_id, title, description, image_url, video_url,
	potential_profit, completed, profit, completed_at, created_at`

// broadcastWorkers bounds the concurrent inserts of one fan-out.
const broadcastWorkers = 8

// BroadcastNotifier is told about every new broadcast after the fan-out.
type BroadcastNotifier interface {
	NotifyBroadcast(a *activity.Activity)
}

type ActivityService struct {
	db       *pgxpool.Pool
	notifier BroadcastNotifier
	logger   *slog.Logger
}

func NewActivityService(db *pgxpool.Pool, notifier BroadcastNotifier, logger *slog.Logger) *ActivityService {
	return &ActivityService{db: db, notifier: notifier, logger: logger}
}

func scanActivity(row pgx.Row) (*activity.Activity, error) {
	a := &activity.Activity{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.BroadcastID,
		&a.Title,
		&a.Description,
		&a.ImageURL,
		&a.VideoURL,
		&a.PotentialProfit,
		&a.Completed,
		&a.Profit,
		&a.CompletedAt,
		&a.CreatedAt,
	)
	return a, err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Broadcast copies the post into every user's feed. Each insert stands on
// its own: failures are counted and logged, never retried or rolled back.
func (s *ActivityService) Broadcast(ctx context.Context, req *activity.BroadcastRequest) (*activity.BroadcastResult, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	recipients, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read recipients: %w", err)
	}

	template := &activity.Activity{
		BroadcastID:     uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		ImageURL:        optional(req.ImageURL),
		VideoURL:        optional(req.VideoURL),
		PotentialProfit: req.PotentialProfit,
		CreatedAt:       time.Now().UTC(),
	}

	result := &activity.BroadcastResult{
		BroadcastID: template.BroadcastID,
		Recipients:  len(recipients),
	}

	var inserted, failed atomic.Int64
	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < min(broadcastWorkers, len(recipients)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range jobs {
				if err := s.insertCopy(ctx, template, userID); err != nil {
					failed.Add(1)
					s.logger.Error("broadcast insert failed",
						"broadcast_id", template.BroadcastID,
						"user_id", userID,
						"error", err,
					)
					continue
				}
				inserted.Add(1)
			}
		}()
	}

	for _, id := range recipients {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	result.Inserted = int(inserted.Load())
	result.Failed = int(failed.Load())

	s.logger.Info("activity broadcast",
		"broadcast_id", result.BroadcastID,
		"recipients", result.Recipients,
		"inserted", result.Inserted,
		"failed", result.Failed,
	)

	if result.Inserted > 0 && s.notifier != nil {
		s.notifier.NotifyBroadcast(template)
	}

	return result, nil
}

func (s *ActivityService) insertCopy(ctx context.Context, t *activity.Activity, userID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO activities (id, user_id, broadcast_id, title, description, image_url, video_url,
			potential_profit, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9)`,
		uuid.NewString(), userID, t.BroadcastID, t.Title, t.Description,
		t.ImageURL, t.VideoURL, t.PotentialProfit, t.CreatedAt,
	)
	return err
}

func (s *ActivityService) ListForUser(ctx context.Context, userID string) ([]*activity.Activity, error) {
	return listActivities(ctx, s.db, userID)
}

func listActivities(ctx context.Context, q querier, userID string) ([]*activity.Activity, error) {
	rows, err := q.Query(ctx, `SELECT `+activityColumns+`
		FROM activities
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []*activity.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}

// Complete records the outcome of an activity owned by userID. Completing
// again overwrites the previous outcome.
func (s *ActivityService) Complete(ctx context.Context, userID, activityID string, profit float64) (*activity.Activity, error) {
	if _, err := uuid.Parse(activityID); err != nil {
		return nil, ErrActivityNotFound
	}

	a, err := scanActivity(s.db.QueryRow(ctx, `
		UPDATE activities
		SET completed = true, profit = $3, completed_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+activityColumns, activityID, userID, profit))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to complete activity: %w", err)
	}
	return a, nil
}

func (s *ActivityService) Reopen(ctx context.Context, userID, activityID string) (*activity.Activity, error) {
	if _, err := uuid.Parse(activityID); err != nil {
		return nil, ErrActivityNotFound
	}

	a, err := scanActivity(s.db.QueryRow(ctx, `
		UPDATE activities
		SET completed = false, profit = NULL, completed_at = NULL
		WHERE id = $1 AND user_id = $2
		RETURNING `+activityColumns, activityID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to reopen activity: %w", err)
	}
	return a, nil
}
