// Package payment derives subscription access from a subscription end date
// and decodes the payment provider's webhook events.
package payment

import (
	"fmt"
	"math"
	"time"
)

type State string

const (
	StateActive      State = "active"
	StateGracePeriod State = "grace_period"
	StateExpired     State = "expired"
	StatePending     State = "pending"
)

const (
	// GraceDays is how long access survives after the end date passes.
	GraceDays = 3
	// ReminderDays is how close to the end date an active plan starts
	// showing a renewal reminder.
	ReminderDays = 7
	// PlanPeriod is the length of one paid cycle.
	PlanPeriod = 30 * 24 * time.Hour
)

const day = 24 * time.Hour

type Status struct {
	Status              State      `json:"status"`
	IsActive            bool       `json:"isActive"`
	IsInGracePeriod     bool       `json:"isInGracePeriod"`
	DaysRemaining       int        `json:"daysRemaining"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate"`
}

// DiffDays is the number of whole days from now until end, rounded up.
// A date earlier today yields 0, yesterday -1.
func DiffDays(end, now time.Time) int {
	return int(math.Ceil(float64(end.Sub(now)) / float64(day)))
}

// Evaluate maps a subscription end date to an access status. It is the only
// place gating decisions come from; the stored payment_status tag is never
// consulted.
func Evaluate(endDate *time.Time, now time.Time) Status {
	if endDate == nil {
		return Status{Status: StatePending}
	}

	end := *endDate
	diff := DiffDays(end, now)

	switch {
	case diff > 0:
		return Status{
			Status:              StateActive,
			IsActive:            true,
			DaysRemaining:       diff,
			SubscriptionEndDate: &end,
		}
	case diff >= -GraceDays:
		return Status{
			Status:              StateGracePeriod,
			IsActive:            true,
			IsInGracePeriod:     true,
			DaysRemaining:       GraceDays + diff,
			SubscriptionEndDate: &end,
		}
	default:
		return Status{
			Status:              StateExpired,
			SubscriptionEndDate: &end,
		}
	}
}

// Message is the banner text shown above the feed, empty when there is
// nothing to warn about.
func Message(s Status) string {
	switch s.Status {
	case StateGracePeriod:
		return fmt.Sprintf("⚠️ Sua assinatura venceu! Você tem %d dia(s) para renovar antes de perder o acesso.", s.DaysRemaining)
	case StateExpired:
		return "🚫 Sua assinatura expirou. Renove agora para continuar acessando o conteúdo."
	case StateActive:
		if s.DaysRemaining <= ReminderDays {
			return fmt.Sprintf("⏰ Sua assinatura vence em %d dia(s). Renove para não perder o acesso!", s.DaysRemaining)
		}
	}
	return ""
}
