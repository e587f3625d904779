package repository

import (
	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
)

type ParkRepository struct {
	db *gorm.DB
}

func NewParkRepository(db *gorm.DB) *ParkRepository {
	return &ParkRepository{db: db}
}

func (r *ParkRepository) GetByID(id uint) (*models.Park, error) {
	var park models.Park
	err := r.db.First(&park, id).Error
	if err != nil {
		return nil, err
	}
	return &park, nil
}

func (r *ParkRepository) GetAll() ([]models.Park, error) {
	var parks []models.Park
	err := r.db.Order("name").Find(&parks).Error
	return parks, err
}
