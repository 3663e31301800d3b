package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Tank01 API (RapidAPI)
	Tank01APIKey   string        `envconfig:"TANK01_API_KEY"`
	MLBBaseURL     string        `envconfig:"MLB_BASE_URL" default:"https://tank01-mlb-live-in-game-real-time-statistics.p.rapidapi.com"`
	MLBAPIHost     string        `envconfig:"MLB_API_HOST" default:"tank01-mlb-live-in-game-real-time-statistics.p.rapidapi.com"`
	NBABaseURL     string        `envconfig:"NBA_BASE_URL" default:"https://tank01-fantasy-stats.p.rapidapi.com"`
	NBAAPIHost     string        `envconfig:"NBA_API_HOST" default:"tank01-fantasy-stats.p.rapidapi.com"`
	APITimeout     time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	APIMaxAttempts int           `envconfig:"API_MAX_ATTEMPTS" default:"3"`
	APIRetryDelay  time.Duration `envconfig:"API_RETRY_DELAY" default:"1s"`

	// Calendar days are resolved in this zone ("Local" or an IANA name)
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Local"`

	// Mock data
	MockScheduleData bool `envconfig:"MOCK_SCHEDULE_DATA" default:"false"`
	MockMLBData      bool `envconfig:"MOCK_MLB_DATA" default:"false"`

	// Database
	DatabaseEnabled  bool   `envconfig:"DATABASE_ENABLED" default:"true"`
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"hitrivals"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"hitrivals"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP API
	HTTPPort    int      `envconfig:"HTTP_PORT" default:"8080"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	LogoDir     string   `envconfig:"LOGO_DIR" default:"assets/TeamLogos"`

	// Scheduler
	EnableScheduler  bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	ScheduleSyncCron string        `envconfig:"SCHEDULE_SYNC_CRON" default:"0 6 * * *"`
	LivePollInterval time.Duration `envconfig:"LIVE_POLL_INTERVAL" default:"60s"`

	// Caching TTL
	CacheTTLSchedule time.Duration `envconfig:"CACHE_TTL_SCHEDULE" default:"10m"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tank01APIKey == "" && !c.UseMockData() {
		return fmt.Errorf("TANK01_API_KEY is required unless MOCK_SCHEDULE_DATA is set")
	}

	if c.APIMaxAttempts < 1 {
		return fmt.Errorf("API_MAX_ATTEMPTS must be at least 1, got %d", c.APIMaxAttempts)
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}

	if _, err := c.loadLocation(); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}

	if c.EnableScheduler && c.LivePollInterval <= 0 {
		return fmt.Errorf("LIVE_POLL_INTERVAL must be positive")
	}

	if c.DatabaseEnabled && c.DatabasePassword == "" && c.IsProduction() {
		return fmt.Errorf("DATABASE_PASSWORD is required in production")
	}

	return nil
}

// UseMockData returns true if either mock flag is set
func (c *Config) UseMockData() bool {
	return c.MockScheduleData || c.MockMLBData
}

// Location returns the configured time zone, or time.Local if it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := c.loadLocation()
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) loadLocation() (*time.Location, error) {
	tz := strings.TrimSpace(c.AppTimezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
