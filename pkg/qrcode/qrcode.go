package qrcode

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRService renders gallery links as QR codes so visitors at the exit
// terminal can jump straight to their ride's photos.
type QRService struct {
	baseURL string
}

func NewQRService(baseURL string) *QRService {
	return &QRService{
		baseURL: baseURL,
	}
}

// GenerateRideQR returns a PNG QR code pointing at the ride gallery.
func (s *QRService) GenerateRideQR(rideID uint, size int) ([]byte, error) {
	fullURL := fmt.Sprintf("%s/rides/%d", s.baseURL, rideID)

	png, err := qrcode.Encode(fullURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}
	return png, nil
}
