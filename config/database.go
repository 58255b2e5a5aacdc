package config

import (
	"fmt"
	"time"

	"annadan-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pendingRequestIndex keeps at most one pending request per (donation, requester).
const pendingRequestIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_pickup_requests_one_pending
ON pickup_requests (donation_id, requester_id) WHERE status = 'pending'`

// OpenDB connects to the configured database and migrates all models
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Donation{},
		&models.PickupRequest{},
		&models.StatusChange{},
		&models.Recipe{},
		&models.Feedback{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := db.Exec(pendingRequestIndex).Error; err != nil {
		return fmt.Errorf("create pending request index: %w", err)
	}
	return nil
}
