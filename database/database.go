package database

import (
	"fmt"
	"log"
	"strings"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/users"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Open connects to DB_URL. A "sqlite://" URL opens a local SQLite file
// (":memory:" works too); anything else is handed to the postgres driver.
func Open(dsn string, quiet bool) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database: DB_URL not set")
	}

	cfg := &gorm.Config{}
	if quiet {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, sqlitePrefix) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&users.User{},
		&users.VerificationToken{},

		&billing.Customer{},
		&billing.Subscription{},
		&billing.CheckoutAttempt{},
		&billing.WebhookEvent{},
		&billing.SyncAttempt{},
	); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

// Init opens and migrates in one step, for process startup.
func Init(dsn string) (*gorm.DB, error) {
	db, err := Open(dsn, false)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("✅ Connected and migrated successfully")
	return db, nil
}
