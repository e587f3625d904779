package repository

import (
	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
)

type StripeCustomerRepository struct {
	db *gorm.DB
}

func NewStripeCustomerRepository(db *gorm.DB) *StripeCustomerRepository {
	return &StripeCustomerRepository{db: db}
}

func (r *StripeCustomerRepository) Create(mapping *models.StripeCustomer) error {
	return r.db.Create(mapping).Error
}

func (r *StripeCustomerRepository) GetByCustomerID(customerID string) (*models.StripeCustomer, error) {
	var mapping models.StripeCustomer
	err := r.db.Where("customer_id = ?", customerID).First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *StripeCustomerRepository) GetByUserID(userID uint) (*models.StripeCustomer, error) {
	var mapping models.StripeCustomer
	err := r.db.Where("user_id = ?", userID).First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
