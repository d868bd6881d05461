package db

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heomed/docgen/internal/models"
)

// ConnectAndMigrate opens the database named by dsn and applies schema
// migrations. Postgres is used for postgres:// style DSNs, sqlite otherwise
// (file paths and file: URIs).
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgres(dsn) {
		for i := 0; i < 10; i++ {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			fmt.Println("Retrying DB connection...", err)
			time.Sleep(2 * time.Second)
		}
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	for _, m := range []interface{}{&models.Document{}, &models.LineItem{}} {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		kvPairRegex.MatchString(dsn)
}

var kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizeDSN trims quotes and whitespace; lib/pq style key=value lists get
// a default sslmode when missing. Sqlite paths pass through unchanged.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if !kvPairRegex.MatchString(s) {
		return s
	}
	fields := strings.Fields(s)
	cleaned := strings.Join(fields, " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}
