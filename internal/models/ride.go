package models

import (
	"time"
)

// Ride is a visitor-logged ride window. Photos captured in the window at
// the same park make up the ride gallery.
type Ride struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	ParkID    uint      `json:"park_id" gorm:"not null"`
	StartedAt time.Time `json:"started_at" gorm:"not null"`
	EndedAt   time.Time `json:"ended_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LogRideRequest struct {
	ParkID    uint      `json:"park_id" validate:"required"`
	StartedAt time.Time `json:"started_at" validate:"required"`
	EndedAt   time.Time `json:"ended_at" validate:"required"`
}
