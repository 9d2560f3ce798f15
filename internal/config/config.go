package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Reddit API
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	RedditUsername     string
	RedditPassword     string

	// Storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// Collection defaults
	PostLimit    int
	CommentLimit int
	BatchSize    int

	// Outreach pacing
	MinDelaySec   int
	MaxDelaySec   int
	DailyCap      int
	SendBatchSize int
	BatchRestMin  int
	NaturalPacing bool

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "community-overlap/1.0"),
		RedditUsername:     getEnv("REDDIT_USERNAME", ""),
		RedditPassword:     getEnv("REDDIT_PASSWORD", ""),
		StorageType:        getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:         getEnv("SQLITE_PATH", "./overlap.db"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		PostLimit:          getEnvInt("POST_LIMIT", 100),
		CommentLimit:       getEnvInt("COMMENT_LIMIT", 50),
		BatchSize:          getEnvInt("BATCH_SIZE", 1000),
		MinDelaySec:        getEnvInt("MIN_DELAY_SEC", 30),
		MaxDelaySec:        getEnvInt("MAX_DELAY_SEC", 90),
		DailyCap:           getEnvInt("DAILY_CAP", 50),
		SendBatchSize:      getEnvInt("SEND_BATCH_SIZE", 10),
		BatchRestMin:       getEnvInt("BATCH_REST_MIN", 30),
		NaturalPacing:      getEnvBool("NATURAL_PACING", true),
		APIPort:            getEnv("API_PORT", "8080"),
		APIHost:            getEnv("API_HOST", "localhost"),
		APIEndpoint:        getEnv("API_ENDPOINT", "http://localhost:8080"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.RedditClientID == "" {
		return &ConfigError{Field: "REDDIT_CLIENT_ID", Message: "Reddit client ID is required"}
	}
	if c.RedditClientSecret == "" {
		return &ConfigError{Field: "REDDIT_CLIENT_SECRET", Message: "Reddit client secret is required"}
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.MinDelaySec > c.MaxDelaySec {
		return &ConfigError{Field: "MIN_DELAY_SEC", Message: "must not exceed MAX_DELAY_SEC"}
	}
	return nil
}

// ValidateForMessaging checks the extra credentials direct messaging needs.
func (c *Config) ValidateForMessaging() error {
	if c.RedditUsername == "" || c.RedditPassword == "" {
		return &ConfigError{Field: "REDDIT_USERNAME", Message: "username and password are required for sending messages"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
