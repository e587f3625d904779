package repository

import (
	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create inserts the purchase anchor row. A gorm.ErrDuplicatedKey here
// means a concurrent delivery of the same session won the race.
func (r *PurchaseRepository) Create(purchase *models.Purchase) error {
	return r.db.Create(purchase).Error
}

func (r *PurchaseRepository) GetBySessionID(sessionID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.Where("stripe_checkout_session_id = ?", sessionID).First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *PurchaseRepository) GetUserPurchaseHistory(userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}

func (r *PurchaseRepository) CreateItem(item *models.PurchaseItem) error {
	return r.db.Create(item).Error
}

func (r *PurchaseRepository) GetItems(purchaseID uint) ([]models.PurchaseItem, error) {
	var items []models.PurchaseItem
	err := r.db.Where("purchase_id = ?", purchaseID).Find(&items).Error
	return items, err
}
