package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// GetDB returns the global database instance
func GetDB() *gorm.DB {
	return DB
}

// Connect establishes a database connection. Postgres DSNs (postgres:// or
// postgresql://) use the postgres driver; anything else is treated as a
// SQLite path.
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		DB, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		DB, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations against the global instance
func AutoMigrate() error {
	log.Println("Running database migrations...")
	if err := AutoMigrateDB(DB); err != nil {
		return err
	}
	log.Println("Database migrations completed successfully")
	return nil
}

// AutoMigrateDB runs migrations against an explicit database handle
func AutoMigrateDB(db *gorm.DB) error {
	err := db.AutoMigrate(
		&DistrictStats{},
		&Notification{},
		&Review{},
		&BatchRun{},
		&BatchRunDistrict{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
