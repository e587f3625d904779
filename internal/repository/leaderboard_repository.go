package repository

import (
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Upsert overwrites speed, date and park on conflict: a later correction
// should win, unlike unlock grants which ignore duplicates.
func (r *LeaderboardRepository) Upsert(entry *models.LeaderboardEntry) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "photo_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"speed_kmh", "ride_date", "park_id"}),
	}).Create(entry).Error
}

func (r *LeaderboardRepository) UpsertBatch(entries []models.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "photo_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"speed_kmh", "ride_date", "park_id"}),
	}).Create(&entries).Error
}

func (r *LeaderboardRepository) TopByParkAndDate(parkID uint, date time.Time, limit int) ([]models.LeaderboardRow, error) {
	var rows []models.LeaderboardRow
	err := r.db.Model(&models.LeaderboardEntry{}).
		Select("leaderboard_entries.user_id, users.full_name, leaderboard_entries.photo_id, leaderboard_entries.speed_kmh").
		Joins("JOIN users ON users.id = leaderboard_entries.user_id").
		Where("leaderboard_entries.park_id = ? AND leaderboard_entries.ride_date = ?", parkID, date).
		Order("leaderboard_entries.speed_kmh DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
