package database

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/sk-sanagustin/yep-id/internal/config"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Writers take the database lock up front so that concurrent check-then-act
// transactions queue behind each other instead of failing on upgrade.
const fileOptions = "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

func Connect(cfg *config.Config) *gorm.DB {
	db, err := OpenFile(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if cfg.LegacyDataDir != "" {
		report, err := ImportLegacyJSON(db, cfg.LegacyDataDir)
		if err != nil {
			log.Printf("Legacy import failed: %v", err)
		} else if report.Participants+report.Events+report.Attendances > 0 {
			log.Printf("Imported legacy data: %d participants, %d events, %d attendance records, %d skipped",
				report.Participants, report.Events, report.Attendances, report.Skipped)
		}
	}

	return db
}

// Open opens the sqlite database behind dsn and brings the schema up to date.
// Schema changes are additive: AutoMigrate only adds tables, columns and
// indexes.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func OpenFile(path string) (*gorm.DB, error) {
	return Open(fmt.Sprintf("file:%s?%s", path, fileOptions))
}

// OpenMemory opens a private in-memory database, mostly for tests.
func OpenMemory() (*gorm.DB, error) {
	return Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Participant{},
		&models.DisplayIDChange{},
		&models.Event{},
		&models.Attendance{},
		&models.APIKey{},
		&models.StaffUser{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Emails are unique regardless of case.
	err = db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_email_lower ON participants(LOWER(email))").Error
	if err != nil {
		log.Printf("Could not create case-insensitive email index (duplicate legacy emails?): %v", err)
	}

	return nil
}
