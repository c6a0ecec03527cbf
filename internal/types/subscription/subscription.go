package subscription

import (
	"encoding/json"
	"time"

	"falcaoProAPI/internal/payment"
)

type RecordStatus string

const (
	RecordApproved RecordStatus = "approved"
	RecordRenewed  RecordStatus = "renewed"
	RecordRefunded RecordStatus = "refunded"
)

// PaymentRecord is one row of the append-only payment_history ledger.
type PaymentRecord struct {
	ID            string       `json:"id" db:"id"`
	UserID        string       `json:"userId" db:"user_id"`
	Amount        float64      `json:"amount" db:"amount"`
	Status        RecordStatus `json:"status" db:"status"`
	TransactionID string       `json:"transactionId" db:"monetize_transaction_id"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
}

// Change is a subscription update applied together with its ledger entry.
// NextEndDate receives the end date read under the row lock, so
// concurrent renewals each extend the latest value.
type Change struct {
	UserID        string
	PaymentStatus payment.State
	NextEndDate   func(current *time.Time) time.Time
	CustomerID    *string
	Record        *PaymentRecord
}

// WebhookEventRecord is the audit row kept for every webhook delivery.
type WebhookEventRecord struct {
	ID            string          `json:"id" db:"id"`
	Event         string          `json:"event" db:"event"`
	TransactionID string          `json:"transactionId" db:"transaction_id"`
	CustomerEmail string          `json:"customerEmail" db:"customer_email"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	Outcome       payment.Outcome `json:"outcome" db:"outcome"`
	Error         string          `json:"error,omitempty" db:"error"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}
