package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	// FontDir holds the embeddable font files, named <family>-<style>.ttf
	// (latin-regular.ttf, arabic-bold.ttf, ...).
	FontDir string

	// ArtifactDir is where rendered PDFs are written by the service layer.
	ArtifactDir string

	// RetentionDays is how long a document may stay Pending before the
	// sweep cancels it.
	RetentionDays int
	SweepInterval time.Duration

	// Company identity printed in the document header band.
	CompanyName  string
	CompanyLines []string
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by caller) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "file:docgen.db?cache=shared")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.FontDir = getEnv("FONT_DIR", "assets/fonts")
	cfg.ArtifactDir = getEnv("ARTIFACT_DIR", "artifacts")
	cfg.RetentionDays = ParseInt("RETENTION_DAYS", 15)
	cfg.SweepInterval = ParseDuration("SWEEP_INTERVAL", 24*time.Hour)
	cfg.CompanyName = getEnv("COMPANY_NAME", "HEO")
	cfg.CompanyLines = splitLines(getEnv("COMPANY_LINES",
		"ADDRESS: 41 Al-Mawardi Street, Al-Qasr Al-Aini, Cairo, Egypt|"+
			"Tel: +201026531004 / +201147304880|"+
			"Fax: +2027932115|"+
			"Email: info@heomed.com|"+
			"Web Site: www.heomed.com"))
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseInt reads an env var as int with default.
func ParseInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}

// ParseDuration reads an env var as time.Duration with default.
func ParseDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %s", key, v)
			return def
		}
		return d
	}
	return def
}

func splitLines(v string) []string {
	parts := strings.Split(v, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
