package app

import (
	"os"
	"strconv"
	"time"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
)

type Config struct {
	JWTSecret string // Required: HS256 secret for verifying access tokens

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./account.db)
	OTPExpiryWindow     time.Duration // Optional: code acceptance window after delivery (default: 5m)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	SMTPHost     string // Required for delivery: SMTP server host
	SMTPPort     int    // Optional: SMTP server port (default: 587)
	SMTPUsername string // Optional: SMTP auth username
	SMTPPassword string // Optional: SMTP auth password
	SMTPFrom     string // Required for delivery: sender address
}

func LoadConfig() Config {
	return Config{
		JWTSecret:           os.Getenv("AUTH_JWT_SECRET"),
		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "account.db"),
		OTPExpiryWindow:     getEnvDurationOrDefault("OTP_EXPIRY_WINDOW", domain.DefaultExpiryWindow),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:        os.Getenv("SMTP_USERNAME"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:            os.Getenv("SMTP_FROM"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
