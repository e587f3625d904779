package repository

import (
	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
)

type RideRepository struct {
	db *gorm.DB
}

func NewRideRepository(db *gorm.DB) *RideRepository {
	return &RideRepository{db: db}
}

func (r *RideRepository) Create(ride *models.Ride) error {
	return r.db.Create(ride).Error
}

func (r *RideRepository) GetByID(id uint) (*models.Ride, error) {
	var ride models.Ride
	err := r.db.First(&ride, id).Error
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *RideRepository) GetByUserID(userID uint) ([]models.Ride, error) {
	var rides []models.Ride
	err := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&rides).Error
	return rides, err
}
