package service

import (
	"errors"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
	"github.com/coasterpix/coasterpix-backend/pkg/qrcode"
)

type RideService struct {
	rideRepo     *repository.RideRepository
	parkRepo     *repository.ParkRepository
	photoService *PhotoService
	qrService    *qrcode.QRService
}

func NewRideService(
	rideRepo *repository.RideRepository,
	parkRepo *repository.ParkRepository,
	photoService *PhotoService,
	qrService *qrcode.QRService,
) *RideService {
	return &RideService{
		rideRepo:     rideRepo,
		parkRepo:     parkRepo,
		photoService: photoService,
		qrService:    qrService,
	}
}

func (s *RideService) LogRide(userID uint, req models.LogRideRequest) (*models.Ride, error) {
	if !req.EndedAt.After(req.StartedAt) {
		return nil, errors.New("ride must end after it starts")
	}

	if _, err := s.parkRepo.GetByID(req.ParkID); err != nil {
		return nil, errors.New("park not found")
	}

	ride := &models.Ride{
		UserID:    userID,
		ParkID:    req.ParkID,
		StartedAt: req.StartedAt.UTC(),
		EndedAt:   req.EndedAt.UTC(),
	}
	if err := s.rideRepo.Create(ride); err != nil {
		return nil, err
	}
	return ride, nil
}

func (s *RideService) GetUserRides(userID uint) ([]models.Ride, error) {
	return s.rideRepo.GetByUserID(userID)
}

// GetRidePhotos returns the photos captured at the ride's park during the
// ride window.
func (s *RideService) GetRidePhotos(userID, rideID uint) ([]models.PhotoResponse, error) {
	ride, err := s.rideRepo.GetByID(rideID)
	if err != nil {
		return nil, err
	}
	if ride.UserID != userID {
		return nil, errors.New("unauthorized")
	}

	return s.photoService.BrowseWindow(userID, ride.ParkID, ride.StartedAt, ride.EndedAt)
}

func (s *RideService) GetRideQR(userID, rideID uint, size int) ([]byte, error) {
	ride, err := s.rideRepo.GetByID(rideID)
	if err != nil {
		return nil, err
	}
	if ride.UserID != userID {
		return nil, errors.New("unauthorized")
	}

	if size <= 0 {
		size = 256
	}
	return s.qrService.GenerateRideQR(ride.ID, size)
}
