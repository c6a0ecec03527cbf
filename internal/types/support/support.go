package support

import "time"

type Message struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	UserEmail string    `json:"userEmail,omitempty" db:"email"`
	UserName  string    `json:"userName,omitempty" db:"name"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type SendRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type InboxResponse struct {
	Messages    []*Message `json:"messages"`
	UnreadCount int        `json:"unreadCount"`
}
