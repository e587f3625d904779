package repository

import (
	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnlockedPhotoRepository struct {
	db *gorm.DB
}

func NewUnlockedPhotoRepository(db *gorm.DB) *UnlockedPhotoRepository {
	return &UnlockedPhotoRepository{db: db}
}

// Upsert grants access idempotently: a conflict on (user_id, photo_id) is
// a no-op, never an error.
func (r *UnlockedPhotoRepository) Upsert(unlock *models.UnlockedPhoto) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "photo_id"}},
		DoNothing: true,
	}).Create(unlock).Error
}

func (r *UnlockedPhotoRepository) UpsertBatch(unlocks []models.UnlockedPhoto) error {
	if len(unlocks) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "photo_id"}},
		DoNothing: true,
	}).Create(&unlocks).Error
}

func (r *UnlockedPhotoRepository) IsUnlocked(userID, photoID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UnlockedPhoto{}).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Count(&count).Error
	return count > 0, err
}

func (r *UnlockedPhotoRepository) GetByUserID(userID uint) ([]models.UnlockedPhoto, error) {
	var unlocks []models.UnlockedPhoto
	err := r.db.Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&unlocks).Error
	return unlocks, err
}
