package models

import (
	"time"
)

// UnlockedPhoto grants a user permanent access to one photo. Granting is
// idempotent: inserts ignore conflicts on (user_id, photo_id).
type UnlockedPhoto struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_unlocked_user_photo"`
	PhotoID    uint      `json:"photo_id" gorm:"not null;uniqueIndex:idx_unlocked_user_photo"`
	ParkID     uint      `json:"park_id" gorm:"not null"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
