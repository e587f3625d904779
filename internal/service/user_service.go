package service

import (
	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepository
	parkRepo *repository.ParkRepository
}

func NewUserService(userRepo *repository.UserRepository, parkRepo *repository.ParkRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		parkRepo: parkRepo,
	}
}

func (s *UserService) GetProfile(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

func (s *UserService) UpdateProfile(userID uint, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.HomeParkID != nil {
		// Home park must exist; it becomes the fulfillment park.
		if _, err := s.parkRepo.GetByID(*req.HomeParkID); err != nil {
			return nil, err
		}
		user.HomeParkID = req.HomeParkID
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetParks() ([]models.Park, error) {
	return s.parkRepo.GetAll()
}
