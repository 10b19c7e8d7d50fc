package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Square API hosts per environment
const (
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
	productionBaseURL = "https://connect.squareup.com"
)

// SquareConfig holds the Square API settings and the sync tuning constants.
// It is built once at startup and passed by reference; fields are never
// mutated after Load.
type SquareConfig struct {
	Environment  string
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// PageSize bounds each SearchOrders page
	PageSize int
	// MaxPages caps the number of pages fetched per location per sync
	MaxPages int
	// MaxResults caps total fetched orders per sync unless a full sync is forced
	MaxResults int
	// IncrementalBuffer is subtracted from the local max order date when
	// computing the incremental watermark, to absorb clock skew and
	// late-arriving orders
	IncrementalBuffer time.Duration
	// DefaultSyncDays is the bootstrap window when no local orders exist
	DefaultSyncDays int
}

// Config is the immutable application configuration assembled from the
// environment at startup
type Config struct {
	Port          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SyncCron      string
	Square        SquareConfig
}

// Load reads configuration from the environment. Callers load .env (via
// godotenv) before calling this.
func Load() (*Config, error) {
	env := getenv("SQUARE_ENV", "sandbox")
	baseURL := sandboxBaseURL
	if env == "production" {
		baseURL = productionBaseURL
	}

	clientID := os.Getenv("SQUARE_CLIENT_ID")
	clientSecret := os.Getenv("SQUARE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("SQUARE_CLIENT_ID and SQUARE_CLIENT_SECRET are required")
	}

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   getenv("DATABASE_URL", "postgres://localhost:5432/square_sync?sslmode=disable"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getint("REDIS_DB", 0),
		SyncCron:      os.Getenv("SYNC_CRON"),
		Square: SquareConfig{
			Environment:       env,
			BaseURL:           baseURL,
			ClientID:          clientID,
			ClientSecret:      clientSecret,
			RedirectURI:       os.Getenv("SQUARE_REDIRECT_URI"),
			PageSize:          getint("SQUARE_SYNC_PAGE_SIZE", 100),
			MaxPages:          getint("SQUARE_SYNC_MAX_PAGES", 50),
			MaxResults:        getint("SQUARE_SYNC_MAX_RESULTS", 10000),
			IncrementalBuffer: getduration("SQUARE_SYNC_BUFFER", time.Hour),
			DefaultSyncDays:   getint("SQUARE_SYNC_DAYS", 90),
		},
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
