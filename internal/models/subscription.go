package models

import (
	"time"
)

// SubscriptionStatusNotStarted is the sentinel mirrored for customers
// without any subscription.
const SubscriptionStatusNotStarted = "not_started"

// Subscription mirrors provider subscription state per customer. Not
// exercised by the current purchase flows; kept in sync by the webhook
// processor's secondary path.
type Subscription struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	CustomerID         string     `json:"customer_id" gorm:"unique;not null"`
	SubscriptionID     string     `json:"subscription_id"`
	PriceID            string     `json:"price_id"`
	Status             string     `json:"status" gorm:"not null"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	PaymentMethodBrand string     `json:"payment_method_brand"`
	PaymentMethodLast4 string     `json:"payment_method_last4"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
