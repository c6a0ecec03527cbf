package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/payment"
	"falcaoProAPI/internal/types/subscription"
	"falcaoProAPI/internal/types/user"
)

// PostgresSubscriptionStore backs the webhook pipeline with pgx.
type PostgresSubscriptionStore struct {
	db *pgxpool.Pool
}

func NewPostgresSubscriptionStore(db *pgxpool.Pool) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

func (s *PostgresSubscriptionStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return getUserByEmail(ctx, s.db, email)
}

// ApplyChange locks the user row, claims the transaction id in the ledger
// and writes the new end date in one transaction. A transaction id already
// present in the ledger, under any status, returns ErrDuplicatePayment.
func (s *PostgresSubscriptionStore) ApplyChange(ctx context.Context, change *subscription.Change) (time.Time, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current *time.Time
	err = tx.QueryRow(ctx, `
		SELECT subscription_end_date FROM users WHERE id = $1 FOR UPDATE`,
		change.UserID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, fmt.Errorf("failed to lock user: %w", err)
	}

	if rec := change.Record; rec != nil {
		tag, err := tx.Exec(ctx, `
			INSERT INTO payment_history (id, user_id, amount, status, monetize_transaction_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (monetize_transaction_id) WHERE monetize_transaction_id <> '' DO NOTHING`,
			rec.ID, rec.UserID, rec.Amount, string(rec.Status), rec.TransactionID, rec.CreatedAt,
		)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to insert payment record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return time.Time{}, ErrDuplicatePayment
		}
	}

	end := change.NextEndDate(current)
	_, err = tx.Exec(ctx, `
		UPDATE users
		SET payment_status = $2,
			subscription_end_date = $3,
			monetize_customer_id = COALESCE($4, monetize_customer_id),
			updated_at = NOW()
		WHERE id = $1`,
		change.UserID, string(change.PaymentStatus), end, change.CustomerID,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("failed to commit subscription change: %w", err)
	}
	return end, nil
}

func (s *PostgresSubscriptionStore) MarkRefunded(ctx context.Context, transactionID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE payment_history
		SET status = 'refunded'
		WHERE monetize_transaction_id = $1
		RETURNING user_id::text`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark refund: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read refunded rows: %w", err)
	}
	return ids, nil
}

// ExpireUser sets the expired tag. A nil endDate leaves the end date as is.
func (s *PostgresSubscriptionStore) ExpireUser(ctx context.Context, userID string, endDate *time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET payment_status = $2,
			subscription_end_date = COALESCE($3, subscription_end_date),
			updated_at = NOW()
		WHERE id = $1`, userID, string(payment.StateExpired), endDate)
	if err != nil {
		return fmt.Errorf("failed to expire user: %w", err)
	}
	return nil
}

func (s *PostgresSubscriptionStore) RecordWebhookEvent(ctx context.Context, rec *subscription.WebhookEventRecord) error {
	var errText *string
	if rec.Error != "" {
		errText = &rec.Error
	}
	payload := rec.Payload
	if len(payload) == 0 {
		payload = []byte("null")
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO webhook_events (id, event, transaction_id, customer_email, payload, outcome, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Event, rec.TransactionID, rec.CustomerEmail, string(payload), string(rec.Outcome), errText, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook event: %w", err)
	}
	return nil
}

// MarkLapsed moves the stored tag of active users whose grace period ended
// on or before cutoff to expired.
func (s *PostgresSubscriptionStore) MarkLapsed(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET payment_status = $1, updated_at = NOW()
		WHERE payment_status = $2
		  AND subscription_end_date <= $3`,
		string(payment.StateExpired), string(payment.StateActive), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark lapsed subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExpiringUserIDs lists non-admin users whose plan ends in (from, to].
func (s *PostgresSubscriptionStore) ExpiringUserIDs(ctx context.Context, from, to time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text
		FROM users
		WHERE NOT is_admin
		  AND subscription_end_date > $1
		  AND subscription_end_date <= $2`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring users: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read expiring users: %w", err)
	}
	return ids, nil
}
