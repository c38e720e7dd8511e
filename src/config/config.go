package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingRequired is returned when a required variable is unset or empty.
var ErrMissingRequired = errors.New("required environment variable not set")

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port            string
	LogLevel        string
	FrontendBaseURL string

	// Storage
	StoreBackend  string
	DatabasePath  string
	MongoURI      string
	MongoDatabase string

	// Security
	JWTSecret string

	// Sandbox accrual
	SandboxEnabled        bool
	SandboxCronSchedule   string
	SandboxRunOnStart     bool
	SandboxBackfillCount  int
	SandboxIncrementCount int
	SandboxCardTimeout    time.Duration
	SandboxSeed           uint64

	// Read side
	CacheExpiration time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration into Cfg and terminates the process when it is invalid.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	Cfg = cfg

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, Store=%s, SandboxSchedule=%q",
		Cfg.Port, Cfg.LogLevel, Cfg.StoreBackend, Cfg.SandboxCronSchedule)
}

// Load reads the configuration from the process environment.
func Load() (*AppConfig, error) {
	jwtSecret, err := getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Port:            getEnv("PORT", "5000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:5173"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreSQLite)),
		DatabasePath:  getEnv("DATABASE_PATH", "./nuerofin.db"),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "nuerofin"),

		JWTSecret: jwtSecret,

		SandboxEnabled:        getEnvAsBool("SANDBOX_ENABLED", true),
		SandboxCronSchedule:   getEnv("SANDBOX_CRON_SCHEDULE", "*/30 * * * *"),
		SandboxRunOnStart:     getEnvAsBool("SANDBOX_RUN_ON_START", true),
		SandboxBackfillCount:  getEnvAsInt("SANDBOX_BACKFILL_COUNT", 200),
		SandboxIncrementCount: getEnvAsInt("SANDBOX_INCREMENT_COUNT", 10),
		SandboxCardTimeout:    getEnvAsDuration("SANDBOX_CARD_TIMEOUT", 2*time.Minute),
		SandboxSeed:           getEnvAsUint64("SANDBOX_SEED", 0),

		CacheExpiration: getEnvAsDuration("CACHE_EXPIRATION", 15*time.Minute),
		RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 30),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.StoreBackend {
	case StoreSQLite:
	case StoreMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("%w: MONGODB_URI (STORE_BACKEND=mongo)", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", c.StoreBackend, StoreSQLite, StoreMongo)
	}
	if c.SandboxBackfillCount < 0 || c.SandboxIncrementCount < 0 {
		return fmt.Errorf("sandbox batch sizes must not be negative (backfill=%d, increment=%d)",
			c.SandboxBackfillCount, c.SandboxIncrementCount)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getRequiredEnv retrieves an environment variable that must be set and non-empty.
func getRequiredEnv(key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequired, key)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsUint64(key string, fallback uint64) uint64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseUint(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid unsigned integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid number value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
