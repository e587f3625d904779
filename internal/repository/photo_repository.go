package repository

import (
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
)

type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) Create(photo *models.Photo) error {
	return r.db.Create(photo).Error
}

func (r *PhotoRepository) GetByID(id uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.First(&photo, id).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// GetByParkAndCaptureWindow returns photos captured in [from, to) at a park,
// oldest first.
func (r *PhotoRepository) GetByParkAndCaptureWindow(parkID uint, from, to time.Time) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.
		Where("park_id = ? AND captured_at >= ? AND captured_at < ?", parkID, from, to).
		Order("captured_at ASC").
		Find(&photos).Error
	return photos, err
}

func (r *PhotoRepository) GetFirstByParkAndWindow(parkID uint, from, to time.Time) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.
		Where("park_id = ? AND captured_at >= ? AND captured_at < ?", parkID, from, to).
		Order("captured_at ASC").
		First(&photo).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}
