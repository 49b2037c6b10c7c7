package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment configuration values for the application.
// These values are loaded from a .env file at startup.
type Config struct {
	// ServerPort is the port the HTTP server listens on
	ServerPort string

	// Env is "development" or "production"
	Env string

	// DatabaseDriver selects the store of record: postgres, sqlite3 or mysql
	DatabaseDriver string

	// DatabaseURL is the connection string for DatabaseDriver.
	// For sqlite3 it is a file path, for mysql a go-sql-driver DSN.
	DatabaseURL string

	// RedisURL enables the history page cache when set
	RedisURL string

	// ProbeInterval is the liveness supervisor tick
	ProbeInterval time.Duration

	// StoreTimeout bounds every store operation
	StoreTimeout time.Duration

	// HistoryMaxLimit is the upper bound for a history page
	HistoryMaxLimit int

	// UploadDir is where uploaded media is written
	UploadDir string

	// MaxUploadBytes limits a single upload
	MaxUploadBytes int64

	// CORSOrigins lists allowed browser origins
	CORSOrigins []string

	// Warnings collects non-fatal configuration problems for the caller to log
	Warnings []string
}

// Load reads environment variables and returns a populated Config struct.
// It will load from a .env file if present, then read from environment variables.
// Falls back to sensible defaults if values are not set.
func Load() *Config {
	var warnings []string

	// Attempt to load .env file - not an error if it doesn't exist
	// as we may be running in production with real environment variables
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "no .env file found, using environment variables")
	}

	cfg := &Config{
		ServerPort:      getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseDriver:  strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite3")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ProbeInterval:   getDuration("PROBE_INTERVAL", 30*time.Second, &warnings),
		StoreTimeout:    getDuration("STORE_TIMEOUT", 5*time.Second, &warnings),
		HistoryMaxLimit: getInt("HISTORY_MAX_LIMIT", 100, &warnings),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:  int64(getInt("MAX_UPLOAD_BYTES", 5*1024*1024, &warnings)),
		CORSOrigins:     getList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
	}

	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			panic("DATABASE_URL is required in production")
		}
		if cfg.DatabaseDriver == "sqlite3" || cfg.DatabaseDriver == "sqlite" {
			cfg.DatabaseURL = "./data/bytechat.db"
		} else {
			warnings = append(warnings, "DATABASE_URL is not set")
		}
	}

	cfg.Warnings = warnings
	return cfg
}

// IsProduction returns true when ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, warnings *[]string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*warnings = append(*warnings, key+" is not a positive duration, using default")
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int, warnings *[]string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		*warnings = append(*warnings, key+" is not a positive integer, using default")
		return defaultValue
	}
	return n
}

// getList splits a comma-separated variable and trims whitespace
func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
