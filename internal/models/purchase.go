package models

import (
	"time"
)

const (
	PurchaseStatusPaid = "paid"
)

const (
	PurchaseItemTypePhoto     = "photo"
	PurchaseItemTypePhotopass = "photopass"
	PurchaseItemTypeTicket    = "ticket"
)

// Purchase is the anchor row of a fulfilled checkout session. The unique
// index on StripeCheckoutSessionID is what makes duplicate webhook
// deliveries safe; the application-level existence check only narrows the
// window.
type Purchase struct {
	ID                      uint      `json:"id" gorm:"primaryKey"`
	UserID                  uint      `json:"user_id" gorm:"not null;index"`
	PhotoID                 *uint     `json:"photo_id"`
	ParkID                  uint      `json:"park_id" gorm:"not null"`
	StripeCheckoutSessionID string    `json:"stripe_checkout_session_id" gorm:"unique;not null"`
	StripePaymentIntentID   string    `json:"stripe_payment_intent_id"`
	AmountCents             int64     `json:"amount_cents" gorm:"not null"`
	Currency                string    `json:"currency" gorm:"not null"`
	PaidAt                  time.Time `json:"paid_at"`
	Status                  string    `json:"status" gorm:"not null"`
	TotalAmountCents        int64     `json:"total_amount_cents" gorm:"not null"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// PurchaseHistoryEntry is a purchase with its line items, as served to the
// account history view.
type PurchaseHistoryEntry struct {
	Purchase
	Items []PurchaseItem `json:"items"`
}

type PurchaseItem struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	PurchaseID      uint      `json:"purchase_id" gorm:"not null;index"`
	ItemType        string    `json:"item_type" gorm:"not null"`
	PhotoID         *uint     `json:"photo_id"`
	ProductCode     *string   `json:"product_code"`
	UnitAmountCents int64     `json:"unit_amount_cents" gorm:"not null"`
	Quantity        int       `json:"quantity" gorm:"not null;default:1"`
	CreatedAt       time.Time `json:"created_at"`
}
