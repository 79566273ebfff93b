package pkg

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/library-service/internal/config"
	"github.com/SAP-F-2025/library-service/internal/models"
)

// InitDatabase opens the postgres connection, configures the pool and runs migrations
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if cfg.Database.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate creates or updates every table and the indexes gorm tags cannot express
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Book{},
		&models.File{},
		&models.Rating{},
		&models.Reservation{},
		&models.ReservationEvent{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// At most one active reservation per (user, book)
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_active_user_book
		ON reservations (user_id, book_id)
		WHERE status IN ('pending', 'approved')`).Error; err != nil {
		return fmt.Errorf("failed to create reservation index: %w", err)
	}

	return nil
}
