package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"falcaoProAPI/internal/logging"
	"falcaoProAPI/internal/payment"
	"falcaoProAPI/internal/types/subscription"
	"falcaoProAPI/internal/types/user"
)

// ErrDuplicatePayment reports a transaction id the ledger already holds.
var ErrDuplicatePayment = errors.New("payment already recorded")

// SubscriptionStore is the persistence the webhook pipeline needs.
type SubscriptionStore interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	// ApplyChange updates the user row and appends the ledger entry
	// atomically, returning the stored end date.
	ApplyChange(ctx context.Context, change *subscription.Change) (time.Time, error)
	// MarkRefunded flags every ledger row of the transaction and returns
	// the owning user ids.
	MarkRefunded(ctx context.Context, transactionID string) ([]string, error)
	ExpireUser(ctx context.Context, userID string, endDate *time.Time) error
	RecordWebhookEvent(ctx context.Context, rec *subscription.WebhookEventRecord) error
}

type PaymentService struct {
	store         SubscriptionStore
	refundRevokes bool
	now           func() time.Time
	logger        *slog.Logger
}

func NewPaymentService(store SubscriptionStore, refundRevokes bool, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:         store,
		refundRevokes: refundRevokes,
		now:           time.Now,
		logger:        logger,
	}
}

// ProcessEvent applies one webhook event. A customer email with no matching
// user is not an error: the outcome reports it and nothing changes.
func (s *PaymentService) ProcessEvent(ctx context.Context, ev payment.Event) (payment.Outcome, error) {
	log := s.logger.With("event", ev.Kind, "transaction_id", ev.TransactionID)

	switch ev.Kind {
	case payment.EventPaymentApproved:
		return s.activate(ctx, log, ev, subscription.RecordApproved)
	case payment.EventSubscriptionRenewed:
		return s.activate(ctx, log, ev, subscription.RecordRenewed)
	case payment.EventPaymentRefunded:
		return s.refund(ctx, log, ev)
	case payment.EventSubscriptionExpired:
		return s.expire(ctx, log, ev)
	}
	return payment.OutcomeIgnored, fmt.Errorf("%w: %q", payment.ErrUnknownEvent, ev.Kind)
}

func (s *PaymentService) activate(ctx context.Context, log *slog.Logger, ev payment.Event, status subscription.RecordStatus) (payment.Outcome, error) {
	u, outcome, err := s.customer(ctx, log, ev.CustomerEmail)
	if u == nil {
		return outcome, err
	}

	now := s.now()
	change := &subscription.Change{
		UserID:        u.ID,
		PaymentStatus: payment.StateActive,
		Record: &subscription.PaymentRecord{
			ID:            uuid.NewString(),
			UserID:        u.ID,
			Amount:        ev.Amount,
			Status:        status,
			TransactionID: ev.TransactionID,
			CreatedAt:     now,
		},
	}

	switch status {
	case subscription.RecordApproved:
		change.NextEndDate = func(*time.Time) time.Time {
			return now.Add(payment.PlanPeriod)
		}
		if ev.TransactionID != "" {
			txID := ev.TransactionID
			change.CustomerID = &txID
		}
	case subscription.RecordRenewed:
		change.NextEndDate = func(current *time.Time) time.Time {
			if current == nil {
				return now.Add(payment.PlanPeriod)
			}
			return current.Add(payment.PlanPeriod)
		}
	}

	end, err := s.store.ApplyChange(ctx, change)
	if err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			log.Info("duplicate webhook delivery ignored", "user_id", u.ID)
			return payment.OutcomeDuplicate, nil
		}
		if errors.Is(err, ErrUserNotFound) {
			return payment.OutcomeUserNotFound, nil
		}
		return payment.OutcomeFailed, err
	}

	log.Info("subscription activated",
		"user_id", u.ID,
		"subscription_end_date", end,
		"amount", ev.Amount,
	)
	return payment.OutcomeApplied, nil
}

// customer resolves the event's user. A nil user means the event stops with
// the returned outcome.
func (s *PaymentService) customer(ctx context.Context, log *slog.Logger, email string) (*user.User, payment.Outcome, error) {
	if email == "" {
		log.Warn("webhook without customer email")
		return nil, payment.OutcomeUserNotFound, nil
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Warn("webhook for unknown customer", "email", logging.MaskEmail(email))
			return nil, payment.OutcomeUserNotFound, nil
		}
		return nil, payment.OutcomeFailed, err
	}
	return u, "", nil
}

func (s *PaymentService) refund(ctx context.Context, log *slog.Logger, ev payment.Event) (payment.Outcome, error) {
	if ev.TransactionID == "" {
		log.Warn("refund without transaction id")
		return payment.OutcomeIgnored, nil
	}

	userIDs, err := s.store.MarkRefunded(ctx, ev.TransactionID)
	if err != nil {
		return payment.OutcomeFailed, err
	}
	if len(userIDs) == 0 {
		log.Warn("refund for unknown transaction")
		return payment.OutcomeIgnored, nil
	}

	if s.refundRevokes {
		now := s.now()
		seen := make(map[string]bool, len(userIDs))
		for _, id := range userIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := s.store.ExpireUser(ctx, id, &now); err != nil {
				return payment.OutcomeFailed, err
			}
			log.Info("access revoked after refund", "user_id", id)
		}
	}

	log.Info("payment refunded", "records", len(userIDs))
	return payment.OutcomeApplied, nil
}

func (s *PaymentService) expire(ctx context.Context, log *slog.Logger, ev payment.Event) (payment.Outcome, error) {
	u, outcome, err := s.customer(ctx, log, ev.CustomerEmail)
	if u == nil {
		return outcome, err
	}

	if err := s.store.ExpireUser(ctx, u.ID, nil); err != nil {
		return payment.OutcomeFailed, err
	}

	log.Info("subscription expired", "user_id", u.ID)
	return payment.OutcomeApplied, nil
}

// RecordDelivery appends the audit row. Failures are logged only.
func (s *PaymentService) RecordDelivery(ctx context.Context, rec *subscription.WebhookEventRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if err := s.store.RecordWebhookEvent(ctx, rec); err != nil {
		s.logger.Error("failed to record webhook event", "event", rec.Event, "error", err)
	}
}
