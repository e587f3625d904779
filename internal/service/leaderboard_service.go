package service

import (
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
)

const leaderboardLimit = 50

type LeaderboardService struct {
	leaderboardRepo *repository.LeaderboardRepository
}

func NewLeaderboardService(leaderboardRepo *repository.LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{
		leaderboardRepo: leaderboardRepo,
	}
}

// TopForDay returns the fastest riders of one UTC calendar day at a park.
func (s *LeaderboardService) TopForDay(parkID uint, day time.Time) ([]models.LeaderboardRow, error) {
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.leaderboardRepo.TopByParkAndDate(parkID, date, leaderboardLimit)
}
