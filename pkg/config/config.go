// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// Store platform
	ProductIDs        []string
	ConsumableIDs     []string
	CatalogTimeout    time.Duration
	RestoreTimeout    time.Duration
	DedupWindowSize   int
	StoreEnvironment  string
	HistoryAPIEnabled bool

	// Identity. UserID identifies the device owner subscriptions are
	// written for; a non-positive value means no authenticated user.
	UserID int64

	// Worker
	WorkerHealthAddr string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		ProductIDs:        getListEnv("PLUME_PRODUCT_IDS", defaultProductIDs),
		ConsumableIDs:     getListEnv("PLUME_CONSUMABLE_IDS", defaultConsumableIDs),
		CatalogTimeout:    getDurationEnv("PLUME_CATALOG_TIMEOUT", 10*time.Second),
		RestoreTimeout:    getDurationEnv("PLUME_RESTORE_TIMEOUT", 10*time.Second),
		DedupWindowSize:   getIntEnv("PLUME_DEDUP_WINDOW", 10),
		StoreEnvironment:  getEnv("PLUME_STORE_ENV", "sandbox"),
		HistoryAPIEnabled: getBoolEnv("PLUME_STORE_HISTORY_API", true),

		UserID: int64(getIntEnv("PLUME_USER_ID", 0)),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
	}

	return cfg, nil
}

var defaultProductIDs = []string{
	"sub.monthly",
	"sub.quarterly",
	"sub.halfyearly",
	"sub.yearly",
}

var defaultConsumableIDs = []string{
	"credits.import.10",
	"credits.import.50",
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := []string{}
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}
