package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"falcaoProAPI/internal/payment"
	"falcaoProAPI/internal/types/admin"
)

type AdminService struct {
	db *pgxpool.Pool
}

func NewAdminService(db *pgxpool.Pool) *AdminService {
	return &AdminService{db: db}
}

// Overview gathers the dashboard counters. A user counts as active while the
// evaluator would still grant access, grace period included.
func (s *AdminService) Overview(ctx context.Context) (*admin.Overview, error) {
	o := &admin.Overview{}

	err := s.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE NOT is_admin),
			COUNT(*) FILTER (WHERE NOT is_admin
				AND subscription_end_date > NOW() - INTERVAL '%d days')
		FROM users`, payment.GraceDays+1),
	).Scan(&o.TotalUsers, &o.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT COUNT(DISTINCT broadcast_id) FROM activities`).Scan(&o.ActivitiesSent)
	if err != nil {
		return nil, fmt.Errorf("failed to count broadcasts: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::float8
		FROM payment_history
		WHERE status IN ('approved', 'renewed')
		  AND created_at >= date_trunc('month', NOW())`).Scan(&o.MonthlyRevenue)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT read)
		FROM support_messages`).Scan(&o.SupportMessages, &o.UnreadSupportMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to count support messages: %w", err)
	}

	return o, nil
}
