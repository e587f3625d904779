package models

import (
	"time"
)

// LeaderboardEntry ranks same-day riders by speed. Unlike UnlockedPhoto,
// conflicts on (user_id, photo_id) overwrite: a later correction wins.
type LeaderboardEntry struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	UserID   uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_leaderboard_user_photo"`
	PhotoID  uint      `json:"photo_id" gorm:"not null;uniqueIndex:idx_leaderboard_user_photo"`
	SpeedKmh float64   `json:"speed_kmh" gorm:"not null"`
	RideDate time.Time `json:"ride_date" gorm:"not null;index"`
	ParkID   uint      `json:"park_id" gorm:"not null;index"`
}

type LeaderboardRow struct {
	UserID   uint    `json:"user_id"`
	FullName string  `json:"full_name"`
	PhotoID  uint    `json:"photo_id"`
	SpeedKmh float64 `json:"speed_kmh"`
}
