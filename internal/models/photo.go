package models

import (
	"time"
)

// Photo is a ride photo captured automatically at a capture point.
// SpeedKmh is the value reported by the capture system; it may be missing,
// in which case the speed is derived from the file name (see utils.SpeedFromPath).
type Photo struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ParkID       uint      `json:"park_id" gorm:"not null;index"`
	CapturePoint string    `json:"capture_point"`
	FileName     string    `json:"file_name" gorm:"not null"`
	R2Key        string    `json:"r2_key" gorm:"not null"`
	SpeedKmh     *float64  `json:"speed_kmh"`
	CapturedAt   time.Time `json:"captured_at" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PhotoResponse struct {
	ID           uint      `json:"id"`
	ParkID       uint      `json:"park_id"`
	CapturePoint string    `json:"capture_point"`
	SpeedKmh     float64   `json:"speed_kmh"`
	CapturedAt   time.Time `json:"captured_at"`
	Unlocked     bool      `json:"unlocked"`
	PreviewURL   string    `json:"preview_url"`
}

type IngestPhotoRequest struct {
	ParkID       uint   `json:"park_id" validate:"required"`
	CapturePoint string `json:"capture_point"`
	CapturedAt   string `json:"captured_at" validate:"required"`
	SpeedKmh     *float64
}
