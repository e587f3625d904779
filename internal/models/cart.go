package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	CartItemTypePhoto  = "photo"
	CartItemTypePass   = "pass"
	CartItemTypeTicket = "ticket"
)

// CartItem is a durable cart row. The webhook processor never reads this
// table during fulfillment (the session metadata snapshot is the source of
// truth); it only clears it once payment went through.
type CartItem struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	PhotoID      *uint     `json:"photo_id"`
	ItemType     string    `json:"item_type" gorm:"not null"`
	Quantity     int       `json:"quantity" gorm:"not null;default:1"`
	Price        float64   `json:"price" gorm:"not null"`
	SelectedDate *string   `json:"selected_date"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AddCartItemRequest struct {
	PhotoID      *uint   `json:"photo_id"`
	ItemType     string  `json:"item_type" validate:"required,oneof=photo pass ticket"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price" validate:"required,gt=0"`
	SelectedDate *string `json:"selected_date"`
	Title        string  `json:"title"`
}

// CartItemSnapshot is the wire format of one cart entry inside checkout
// session metadata (key "cart_items"). Written by the checkout initiator,
// read back by the webhook processor.
type CartItemSnapshot struct {
	PhotoID      string  `json:"photoId,omitempty"`
	Quantity     int     `json:"quantity,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Type         string  `json:"type"`
	SelectedDate string  `json:"selectedDate,omitempty"`
	Title        string  `json:"title,omitempty"`
}

// ParseCartItems decodes the metadata blob into the closed set of known
// item types. Entries with an unrecognized type are dropped, not guessed at.
func ParseCartItems(raw string) ([]CartItemSnapshot, error) {
	if raw == "" {
		return nil, nil
	}

	var items []CartItemSnapshot
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("invalid cart_items metadata: %w", err)
	}

	known := items[:0]
	for _, item := range items {
		switch item.Type {
		case CartItemTypePhoto, CartItemTypePass, CartItemTypeTicket:
			known = append(known, item)
		}
	}
	return known, nil
}
