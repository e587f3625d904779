package models

import (
	"time"
)

// Order is the legacy audit table. Inserts are best-effort: an audit
// failure never fails fulfillment.
type Order struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          uint      `json:"user_id" gorm:"not null"`
	Email           string    `json:"email"`
	StripeSessionID string    `json:"stripe_session_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	ItemCount       int       `json:"item_count"`
	CreatedAt       time.Time `json:"created_at"`
}
