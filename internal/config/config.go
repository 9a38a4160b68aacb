package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Session Configuration
	Session SessionConfig

	// External service endpoints
	Services ServicesConfig

	// Logging Configuration
	Logging LoggingConfig

	// Risk band thresholds file (YAML)
	RiskThresholdsPath string

	// Directory where uploaded chatbot documents are spooled before ingestion
	UploadDir string

	// Allowed frontend origin for CORS (credentials enabled)
	FrontendOrigin string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName   string
	TTL          time.Duration
	CookieSecure bool
}

// ServicesConfig holds the endpoints of external collaborators
type ServicesConfig struct {
	InferenceURL string // diabetes risk model service
	RAGURL       string // chatbot retrieval service
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return &Config{
		Database: DatabaseConfig{
			URL: envOr("DATABASE_URL", "diatrack.sqlite"),
		},
		Redis: RedisConfig{
			Address: envOr("REDIS_ADDRESS", "localhost:6379"),
		},
		Session: SessionConfig{
			CookieName:   envOr("SESSION_COOKIE_NAME", "diatrack_session"),
			TTL:          envDurationOr("SESSION_TTL", 24*time.Hour),
			CookieSecure: envBoolOr("SESSION_COOKIE_SECURE", false),
		},
		Services: ServicesConfig{
			InferenceURL: envOr("INFERENCE_URL", "http://localhost:9000"),
			RAGURL:       envOr("RAG_URL", "http://localhost:9100"),
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		RiskThresholdsPath: envOr("RISK_THRESHOLDS_PATH", "risk_thresholds.yaml"),
		UploadDir:          envOr("UPLOAD_DIR", "uploads"),
		FrontendOrigin:     envOr("FRONTEND_ORIGIN", "http://localhost:5173"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
