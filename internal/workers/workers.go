package workers

import (
	"context"
	"log/slog"
	"time"

	"falcaoProAPI/internal/payment"
)

// ReminderLead is how long before the end date a renewal reminder goes out.
const ReminderLead = 3 * 24 * time.Hour

type SweepStore interface {
	MarkLapsed(ctx context.Context, cutoff time.Time) (int64, error)
	ExpiringUserIDs(ctx context.Context, from, to time.Time) ([]string, error)
}

type Reminder interface {
	NotifyExpiring(userIDs []string, days int)
}

// SubscriptionSweeper keeps the stored payment_status tag in line with the
// end dates and sends renewal reminders. Access decisions never read the
// tag, so a missed sweep only delays bookkeeping.
type SubscriptionSweeper struct {
	store    SweepStore
	reminder Reminder
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewSubscriptionSweeper(store SweepStore, reminder Reminder, interval time.Duration, logger *slog.Logger) *SubscriptionSweeper {
	return &SubscriptionSweeper{
		store:    store,
		reminder: reminder,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *SubscriptionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SubscriptionSweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	now := s.now()

	// Evaluate reports expired once the end date is GraceDays+1 days behind.
	cutoff := now.Add(-time.Duration(payment.GraceDays+1) * 24 * time.Hour)
	n, err := s.store.MarkLapsed(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to mark lapsed subscriptions", "error", err)
	} else if n > 0 {
		s.logger.Info("marked lapsed subscriptions", "count", n)
	}

	if s.reminder == nil {
		return
	}

	// One window per tick so each user is reminded once.
	from := now.Add(ReminderLead)
	ids, err := s.store.ExpiringUserIDs(ctx, from, from.Add(s.interval))
	if err != nil {
		s.logger.Error("failed to list expiring subscriptions", "error", err)
		return
	}
	if len(ids) > 0 {
		s.reminder.NotifyExpiring(ids, int(ReminderLead/(24*time.Hour)))
		s.logger.Info("queued renewal reminders", "count", len(ids))
	}
}
