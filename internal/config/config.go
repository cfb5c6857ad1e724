package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Instrument to classify ("ES" or "NQ").
	Instrument string

	// Schwab API credentials and endpoints.
	SchwabAppKey     string
	SchwabAppSecret  string
	SchwabAPIBaseURL string
	SchwabTokenURL   string
	CredentialsDir   string

	// Market data fetch parameters.
	DaysBack       int
	RequestTimeout int // seconds

	// Candle retention window; snapshots are kept three times longer.
	DataRetentionDays int

	// PostgreSQL connection.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Optional calibration override file (YAML).
	CalibrationFile string

	// Optional Telegram announcement of the verdict.
	TelegramBotToken string
	TelegramChatID   int64

	LogLevel string
}

// Load initializes configuration from environment variables.
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		Instrument:        getEnvWithDefault("INSTRUMENT", "ES"),
		SchwabAppKey:      os.Getenv("SCHWAB_APP_KEY"),
		SchwabAppSecret:   os.Getenv("SCHWAB_APP_SECRET"),
		SchwabAPIBaseURL:  getEnvWithDefault("SCHWAB_API_BASE_URL", "https://api.schwabapi.com"),
		SchwabTokenURL:    getEnvWithDefault("SCHWAB_TOKEN_URL", "https://api.schwabapi.com/v1/oauth/token"),
		CredentialsDir:    getEnvWithDefault("CREDENTIALS_DIR", "data/.credentials"),
		DaysBack:          getEnvIntWithDefault("DAYS_BACK", 10),
		RequestTimeout:    getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		DataRetentionDays: getEnvIntWithDefault("DATA_RETENTION_DAYS", 30),
		DBHost:            getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:            getEnvWithDefault("DB_PORT", "5432"),
		DBUser:            getEnvWithDefault("DB_USER", "postgres"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnvWithDefault("DB_NAME", "weathervane"),
		DBSSLMode:         getEnvWithDefault("DB_SSLMODE", "disable"),
		CalibrationFile:   os.Getenv("CALIBRATION_FILE"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if cfg.SchwabAppKey == "" || cfg.SchwabAppSecret == "" {
		return nil, fmt.Errorf("missing required environment variables SCHWAB_APP_KEY and SCHWAB_APP_SECRET")
	}

	return cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
