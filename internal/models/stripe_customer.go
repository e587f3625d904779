package models

import (
	"time"
)

// StripeCustomer maps a Stripe customer id to a local user. Fulfillment
// cannot grant anything for events whose customer has no row here.
type StripeCustomer struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"unique;not null"`
	CustomerID string    `json:"customer_id" gorm:"unique;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
