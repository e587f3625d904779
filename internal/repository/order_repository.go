package repository

import (
	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
)

// OrderRepository writes the legacy orders audit table. Informational only.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}
