package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// API configuration
	APIBaseURL     string
	RequestTimeout time.Duration

	// Local state storage
	StoragePath          string
	StorageEncryptionKey string

	// Backup configuration
	BackupDir           string
	BackupEncryptionKey string
	BackupRetentionDays int

	// Activity log configuration
	ActivityLogPath   string
	ActivityAsyncMode bool

	// Rate limiting for outbound API calls
	RateLimitRPS   int
	RateLimitBurst int

	// Application settings
	Environment string
	LogLevel    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (not required in production)
	godotenv.Load()

	config := &Config{
		APIBaseURL:           getEnv("NOTEDECK_API_URL", ""),
		RequestTimeout:       time.Duration(getEnvAsInt("NOTEDECK_REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		StoragePath:          getEnv("NOTEDECK_STORAGE_PATH", "./data/notedeck.db"),
		StorageEncryptionKey: getEnv("NOTEDECK_STORAGE_KEY", ""),
		BackupDir:            getEnv("NOTEDECK_BACKUP_DIR", "./backups"),
		BackupEncryptionKey:  getEnv("NOTEDECK_BACKUP_KEY", ""),
		BackupRetentionDays:  getEnvAsInt("NOTEDECK_BACKUP_RETENTION_DAYS", 30),
		ActivityLogPath:      getEnv("NOTEDECK_ACTIVITY_LOG_PATH", "./logs/activity.log"),
		ActivityAsyncMode:    getEnvAsBool("NOTEDECK_ACTIVITY_ASYNC_MODE", true),
		RateLimitRPS:         getEnvAsInt("NOTEDECK_RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		RateLimitBurst:       getEnvAsInt("NOTEDECK_RATE_LIMIT_BURST", 20),
		Environment:          getEnv("NOTEDECK_ENV", "development"),
		LogLevel:             getEnv("NOTEDECK_LOG_LEVEL", "info"),
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate ensures the configuration is usable. An empty storage key
// is allowed; the app then falls back to non-durable in-memory state.
func (c *Config) Validate() error {
	if c.StorageEncryptionKey != "" && len(c.StorageEncryptionKey) < 16 {
		return fmt.Errorf("NOTEDECK_STORAGE_KEY must be at least 16 characters")
	}

	if c.BackupEncryptionKey == "" {
		c.BackupEncryptionKey = c.StorageEncryptionKey
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("NOTEDECK_REQUEST_TIMEOUT_SECONDS must be positive")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
