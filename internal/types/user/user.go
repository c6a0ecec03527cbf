package user

import (
	"strings"
	"time"

	"falcaoProAPI/internal/payment"
)

type User struct {
	ID                  string        `json:"id"`
	Email               string        `json:"email"`
	Name                string        `json:"name,omitempty"`
	IsAdmin             bool          `json:"isAdmin"`
	SubscriptionEndDate *time.Time    `json:"subscriptionEndDate"`
	PaymentStatus       payment.State `json:"paymentStatus"`
	MonetizeCustomerID  string        `json:"-"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// DisplayName falls back to the local part of the email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}

type ProfileResponse struct {
	User    *User          `json:"user"`
	Payment payment.Status `json:"payment"`
	Message string         `json:"message,omitempty"`
}
