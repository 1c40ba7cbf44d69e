package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig

	// Store API Configuration
	StoreAPI StoreAPIConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Session Configuration
	Session SessionConfig

	// Metrics Configuration
	Metrics MetricsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// HTTPConfig holds the admin panel listener configuration
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

// StoreAPIConfig holds the remote store API configuration
type StoreAPIConfig struct {
	URL      string
	Timeout  time.Duration
	Email    string // service account used by the worker
	Password string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// SessionConfig holds browser session configuration
type SessionConfig struct {
	Secret       string
	CookieName   string
	CookieSecure bool
	CheckTimeout time.Duration // bound on the identity check
	IdleTTL      time.Duration // browser sessions unused for longer are pruned
	GateWait     time.Duration // how long the route gate waits for the identity check
}

// MetricsConfig holds dashboard metric capture configuration
type MetricsConfig struct {
	Schedule  string        // 5-field cron expression
	Retention time.Duration // snapshots older than this are deleted after each capture
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

	checkTimeout, err := durationEnv("SESSION_CHECK_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	idleTTL, err := durationEnv("SESSION_IDLE_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	gateWait, err := durationEnv("GATE_WAIT", 2*time.Second)
	if err != nil {
		return nil, err
	}

	apiTimeout, err := durationEnv("STORE_API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	retention, err := durationEnv("METRICS_RETENTION", 90*24*time.Hour)
	if err != nil {
		return nil, err
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	var origins []string
	for _, origin := range strings.Split(stringEnv("CORS_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return &Config{
		HTTP: HTTPConfig{
			Addr:        stringEnv("HTTP_ADDR", ":8080"),
			CORSOrigins: origins,
		},
		StoreAPI: StoreAPIConfig{
			URL:      strings.TrimRight(stringEnv("STORE_API_URL", "http://localhost:8081"), "/"),
			Timeout:  apiTimeout,
			Email:    os.Getenv("STORE_API_EMAIL"),
			Password: os.Getenv("STORE_API_PASSWORD"),
		},
		Database: DatabaseConfig{
			URL: stringEnv("DATABASE_URL", "storeadmin.sqlite"),
		},
		Redis: RedisConfig{
			Address: stringEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Session: SessionConfig{
			Secret:       secret,
			CookieName:   stringEnv("SESSION_COOKIE_NAME", "storeadmin_session"),
			CookieSecure: os.Getenv("SESSION_COOKIE_SECURE") == "true",
			CheckTimeout: checkTimeout,
			IdleTTL:      idleTTL,
			GateWait:     gateWait,
		},
		Metrics: MetricsConfig{
			Schedule:  stringEnv("METRICS_SCHEDULE", "0 * * * *"),
			Retention: retention,
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
