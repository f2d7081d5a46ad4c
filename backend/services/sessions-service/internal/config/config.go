package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkwise/backend/libs/config"
)

// Config defines sessions service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Spaces   SpacesConfig   `yaml:"spaces"`
	Sync     SyncConfig     `yaml:"sync"`
	Billing  BillingConfig  `yaml:"billing"`
	Auth     AuthConfig     `yaml:"auth"`
}

type HTTPConfig struct {
	Port string `yaml:"port" env:"SESSIONS_HTTP_PORT"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"SESSIONS_POSTGRES_DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"SESSIONS_REDIS_ADDR"`
	Password string `yaml:"password" env:"SESSIONS_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"SESSIONS_REDIS_DB"`
	TTL      int    `yaml:"ttlSeconds" env:"SESSIONS_REDIS_TTL"`
}

// SpacesConfig locates the parking-space inventory service.
type SpacesConfig struct {
	BaseURL string        `yaml:"baseUrl" env:"SPACES_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"SPACES_TIMEOUT"`
}

// SyncConfig tunes the space-status outbox worker.
type SyncConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts" env:"SYNC_MAX_ATTEMPTS"`
	CallTimeout  time.Duration `yaml:"callTimeout" env:"SYNC_CALL_TIMEOUT"`
	RetryDelay   time.Duration `yaml:"retryDelay" env:"SYNC_RETRY_DELAY"`
	PollInterval time.Duration `yaml:"pollInterval" env:"SYNC_POLL_INTERVAL"`
}

type BillingConfig struct {
	HourlyRate float64 `yaml:"hourlyRate" env:"BILLING_HOURLY_RATE"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
}

// Load reads configuration via the shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:  HTTPConfig{Port: "8085"},
		Redis: RedisConfig{Addr: "localhost:6379", TTL: 86400},
		Spaces: SpacesConfig{
			Timeout: 5 * time.Second,
		},
		Sync: SyncConfig{
			MaxAttempts:  5,
			CallTimeout:  5 * time.Second,
			RetryDelay:   2 * time.Second,
			PollInterval: 500 * time.Millisecond,
		},
		Billing: BillingConfig{HourlyRate: 5.00},
	}

	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Spaces.BaseURL) == "" {
		return nil, errors.New("config: spaces base url required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8085"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// ActiveSessionTTL returns the cache ttl as duration.
func (c *Config) ActiveSessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}
