package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Log      LogConfig
	Clock    ClockConfig
	Cron     CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	Version        string
	AllowedOrigins []string
	MetricsEnabled bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string
	File       string // empty = stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ClockConfig holds the time clock policy knobs that are not stored per business.
type ClockConfig struct {
	// DefaultRadiusMeters applies when neither the job nor the business sets a radius.
	DefaultRadiusMeters float64
	// LocationMaxAge is the oldest fix accepted for validation.
	LocationMaxAge time.Duration
	// OverrideWindow is how long after the blocked fix an override may be submitted.
	OverrideWindow time.Duration
	// MaxExpansionWindow caps how far in the future a radius expansion may run.
	MaxExpansionWindow time.Duration
}

// CronConfig holds background job configuration
type CronConfig struct {
	Enabled            bool
	StaleEntryAfter    time.Duration
	StaleEntryInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "geoclock"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", "http://localhost:3000"),
		MetricsEnabled: metricsEnabled,
	}

	// Logging configuration
	logMaxSize, err := strconv.Atoi(getEnv("LOG_MAX_SIZE_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}
	logMaxBackups, err := strconv.Atoi(getEnv("LOG_MAX_BACKUPS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_BACKUPS: %w", err)
	}
	logMaxAge, err := strconv.Atoi(getEnv("LOG_MAX_AGE_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_AGE_DAYS: %w", err)
	}

	config.Log = LogConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  logMaxSize,
		MaxBackups: logMaxBackups,
		MaxAgeDays: logMaxAge,
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Time clock configuration
	defaultRadius, err := strconv.ParseFloat(getEnv("CLOCK_DEFAULT_RADIUS_METERS", "150"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_DEFAULT_RADIUS_METERS: %w", err)
	}
	locationMaxAge, err := time.ParseDuration(getEnv("CLOCK_LOCATION_MAX_AGE", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_LOCATION_MAX_AGE: %w", err)
	}
	overrideWindow, err := time.ParseDuration(getEnv("CLOCK_OVERRIDE_WINDOW", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_OVERRIDE_WINDOW: %w", err)
	}
	maxExpansion, err := time.ParseDuration(getEnv("CLOCK_MAX_EXPANSION_WINDOW", "72h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_MAX_EXPANSION_WINDOW: %w", err)
	}

	config.Clock = ClockConfig{
		DefaultRadiusMeters: defaultRadius,
		LocationMaxAge:      locationMaxAge,
		OverrideWindow:      overrideWindow,
		MaxExpansionWindow:  maxExpansion,
	}

	// Cron configuration
	cronEnabled, err := strconv.ParseBool(getEnv("CRON_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_ENABLED: %w", err)
	}
	staleAfter, err := time.ParseDuration(getEnv("CRON_STALE_ENTRY_AFTER", "16h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_STALE_ENTRY_AFTER: %w", err)
	}
	staleInterval, err := time.ParseDuration(getEnv("CRON_STALE_ENTRY_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_STALE_ENTRY_INTERVAL: %w", err)
	}

	config.Cron = CronConfig{
		Enabled:            cronEnabled,
		StaleEntryAfter:    staleAfter,
		StaleEntryInterval: staleInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Clock.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("CLOCK_DEFAULT_RADIUS_METERS must be positive")
	}
	if c.Clock.LocationMaxAge <= 0 {
		return fmt.Errorf("CLOCK_LOCATION_MAX_AGE must be positive")
	}
	if c.Clock.OverrideWindow <= 0 {
		return fmt.Errorf("CLOCK_OVERRIDE_WINDOW must be positive")
	}
	if c.Clock.MaxExpansionWindow <= 0 {
		return fmt.Errorf("CLOCK_MAX_EXPANSION_WINDOW must be positive")
	}
	if c.Cron.Enabled && c.Cron.StaleEntryInterval <= 0 {
		return fmt.Errorf("CRON_STALE_ENTRY_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
