package service

import (
	"errors"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
)

type CartService struct {
	cartRepo  *repository.CartRepository
	photoRepo *repository.PhotoRepository
}

func NewCartService(cartRepo *repository.CartRepository, photoRepo *repository.PhotoRepository) *CartService {
	return &CartService{
		cartRepo:  cartRepo,
		photoRepo: photoRepo,
	}
}

func (s *CartService) AddItem(userID uint, req models.AddCartItemRequest) (*models.CartItem, error) {
	if req.ItemType == models.CartItemTypePhoto {
		if req.PhotoID == nil {
			return nil, errors.New("photo items need a photo id")
		}
		if _, err := s.photoRepo.GetByID(*req.PhotoID); err != nil {
			return nil, errors.New("photo not found")
		}
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	item := &models.CartItem{
		UserID:       userID,
		PhotoID:      req.PhotoID,
		ItemType:     req.ItemType,
		Quantity:     quantity,
		Price:        req.Price,
		SelectedDate: req.SelectedDate,
		Title:        req.Title,
	}
	if err := s.cartRepo.Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) GetCart(userID uint) ([]models.CartItem, error) {
	return s.cartRepo.GetByUserID(userID)
}

func (s *CartService) RemoveItem(userID, itemID uint) error {
	return s.cartRepo.Delete(itemID, userID)
}

func (s *CartService) ClearCart(userID uint) error {
	return s.cartRepo.ClearByUserID(userID)
}
