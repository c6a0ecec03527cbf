package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/auth"
	"falcaoProAPI/internal/payment"
	"falcaoProAPI/internal/types/user"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, name, is_admin, subscription_end_date, payment_status,
	monetize_customer_id, created_at, updated_at`

type UserService struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewUserService(db *pgxpool.Pool, logger *slog.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	var name, customerID *string
	var status string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&name,
		&u.IsAdmin,
		&u.SubscriptionEndDate,
		&status,
		&customerID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.PaymentStatus = payment.State(status)
	if name != nil {
		u.Name = *name
	}
	if customerID != nil {
		u.MonetizeCustomerID = *customerID
	}
	return u, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return getUserByEmail(ctx, s.db, email)
}

func getUserByEmail(ctx context.Context, q querier, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(q.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// EnsureUser returns the row for the session's email, creating it on first
// login. Existing rows keep their id, admin flag and subscription.
func (s *UserService) EnsureUser(ctx context.Context, sess *auth.Session) (*user.User, error) {
	id := uuid.NewString()
	if _, err := uuid.Parse(sess.Subject); err == nil {
		id = sess.Subject
	}

	var name *string
	if sess.Name != "" {
		name = &sess.Name
	}

	query := `
	INSERT INTO users (id, email, name, payment_status)
	VALUES ($1, $2, $3, 'pending')
	ON CONFLICT (email) DO UPDATE
		SET name = COALESCE(users.name, EXCLUDED.name)
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, id, sess.Email, name))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return u, nil
}
