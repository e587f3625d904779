package database

import (
	"log"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDatabase(databaseURL string) *gorm.DB {
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// TranslateError makes unique-constraint losses observable as
	// gorm.ErrDuplicatedKey, which the fulfillment pipeline relies on.
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := RunMigrations(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Park{},
		&models.Photo{},
		&models.Ride{},
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.UnlockedPhoto{},
		&models.LeaderboardEntry{},
		&models.CartItem{},
		&models.StripeCustomer{},
		&models.Subscription{},
		&models.Order{},
	)
	if err != nil {
		return err
	}

	return seedParks(db)
}

// seedParks guarantees the legacy default park exists so the fallback park
// id always resolves.
func seedParks(db *gorm.DB) error {
	parks := []models.Park{
		{ID: 1, Name: "Rasender Falke", Slug: "rasender-falke"},
	}

	for _, park := range parks {
		var count int64
		db.Model(&models.Park{}).Where("id = ?", park.ID).Count(&count)
		if count == 0 {
			if err := db.Create(&park).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
