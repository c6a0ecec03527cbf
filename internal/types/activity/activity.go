package activity

import (
	"math"
	"time"
)

type Activity struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"userId" db:"user_id"`
	BroadcastID     string     `json:"broadcastId" db:"broadcast_id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	ImageURL        *string    `json:"imageUrl,omitempty" db:"image_url"`
	VideoURL        *string    `json:"videoUrl,omitempty" db:"video_url"`
	PotentialProfit float64    `json:"potentialProfit" db:"potential_profit"`
	Completed       bool       `json:"completed" db:"completed"`
	Profit          *float64   `json:"profit,omitempty" db:"profit"`
	CompletedAt     *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

type BroadcastRequest struct {
	Title           string  `json:"title" validate:"required,max=200"`
	Description     string  `json:"description" validate:"required,max=5000"`
	ImageURL        string  `json:"imageUrl,omitempty" validate:"omitempty,url"`
	VideoURL        string  `json:"videoUrl,omitempty" validate:"omitempty,url"`
	PotentialProfit float64 `json:"potentialProfit" validate:"gte=0"`
}

// BroadcastResult reports a fan-out. Rows are inserted independently, so a
// partial failure leaves Inserted < Recipients with nothing rolled back.
type BroadcastResult struct {
	BroadcastID string `json:"broadcastId"`
	Recipients  int    `json:"recipients"`
	Inserted    int    `json:"inserted"`
	Failed      int    `json:"failed"`
}

const (
	ResultProfit = "profit"
	ResultLoss   = "loss"
)

type CompleteRequest struct {
	Result string  `json:"result" validate:"required,oneof=profit loss"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

// Profit is the signed outcome: a loss is never positive and a profit never
// negative, whatever sign the client sent.
func (r CompleteRequest) Profit() float64 {
	v := math.Abs(r.Amount)
	if r.Result == ResultLoss {
		return -v
	}
	return v
}
