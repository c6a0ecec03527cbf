package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EventKind is the closed set of Monetize webhook events the service acts on.
type EventKind string

const (
	EventPaymentApproved     EventKind = "payment.approved"
	EventPaymentRefunded     EventKind = "payment.refunded"
	EventSubscriptionRenewed EventKind = "subscription.renewed"
	EventSubscriptionExpired EventKind = "subscription.expired"
)

var (
	ErrUnknownEvent   = errors.New("unknown webhook event")
	ErrMalformedEvent = errors.New("malformed webhook event")
)

func ParseEventKind(name string) (EventKind, error) {
	switch k := EventKind(strings.TrimSpace(name)); k {
	case EventPaymentApproved, EventPaymentRefunded, EventSubscriptionRenewed, EventSubscriptionExpired:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// Outcome describes what processing an event did to the store.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUserNotFound Outcome = "user_not_found"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeFailed       Outcome = "failed"
)

type Event struct {
	Kind          EventKind
	CustomerEmail string
	Amount        float64
	TransactionID string
}

type webhookPayload struct {
	Event string       `json:"event"`
	Data  *webhookData `json:"data"`
}

type webhookData struct {
	CustomerEmail string `json:"customer_email"`
	Amount        Amount `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

// Amount accepts both a JSON number and a numeric string; the provider has
// sent both shapes.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", s)
		}
		*a = Amount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

// RawEvent is the event name and identifiers as sent, available even when
// the event is unknown or incomplete, for audit records.
type RawEvent struct {
	Name          string
	CustomerEmail string
	TransactionID string
}

// DecodeEvent parses a webhook body. An absent or unknown event name
// returns the raw fields with an error wrapping ErrUnknownEvent. Bad JSON,
// a bad amount or a known event without a data object wrap
// ErrMalformedEvent. Missing data fields are not an error: the event then
// matches no user or transaction.
func DecodeEvent(body []byte) (Event, RawEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, RawEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	raw := RawEvent{Name: p.Event}
	if p.Data != nil {
		raw.CustomerEmail = strings.TrimSpace(p.Data.CustomerEmail)
		raw.TransactionID = strings.TrimSpace(p.Data.TransactionID)
	}

	kind, err := ParseEventKind(raw.Name)
	if err != nil {
		return Event{}, raw, err
	}
	if p.Data == nil {
		return Event{}, raw, fmt.Errorf("%w: %s without data", ErrMalformedEvent, kind)
	}

	return Event{
		Kind:          kind,
		CustomerEmail: strings.ToLower(raw.CustomerEmail),
		Amount:        float64(p.Data.Amount),
		TransactionID: raw.TransactionID,
	}, raw, nil
}
