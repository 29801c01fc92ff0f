package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/rounding"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Currency is the sales channel default currency code.
	Currency string
	// ItemDecimals and TotalDecimals control rounding precision per line
	// item and for the cart total.
	ItemDecimals  int32
	TotalDecimals int32
	// TotalInterval is the cash rounding step for the cart total, e.g. 0.05
	// for Swiss-style rounding. Empty keeps minor-unit rounding.
	TotalInterval decimal.Decimal

	CartTTL time.Duration
	LockTTL time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	interval, err := parseDecimal(k.String("TOTAL_ROUNDING_INTERVAL"), "0.01")
	if err != nil {
		return nil, fmt.Errorf("TOTAL_ROUNDING_INTERVAL: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Currency:           valueOrDefault(k.String("CURRENCY"), "EUR"),
		ItemDecimals:       parseInt32(k.String("ITEM_ROUNDING_DECIMALS"), 2),
		TotalDecimals:      parseInt32(k.String("TOTAL_ROUNDING_DECIMALS"), 2),
		TotalInterval:      interval,
		CartTTL:            parseDuration(k.String("CART_TTL"), "168h"),
		LockTTL:            parseDuration(k.String("CART_LOCK_TTL"), "30s"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	// A bad rounding setup must stop the process here, not surface as wrong
	// prices at calculation time.
	if err := cfg.ItemRounding().Validate(); err != nil {
		return nil, fmt.Errorf("ITEM_ROUNDING_DECIMALS: %w", err)
	}
	if err := cfg.TotalRounding().Validate(); err != nil {
		return nil, fmt.Errorf("TOTAL_ROUNDING_INTERVAL: %w", err)
	}

	return cfg, nil
}

// ItemRounding returns the per-line-item rounding configuration.
func (c *Config) ItemRounding() rounding.Config {
	return rounding.Config{
		Decimals:       c.ItemDecimals,
		Interval:       decimal.New(1, -c.ItemDecimals),
		RoundLineItems: true,
	}
}

// TotalRounding returns the cart-total rounding configuration.
func (c *Config) TotalRounding() rounding.Config {
	return rounding.Config{Decimals: c.TotalDecimals, Interval: c.TotalInterval}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt32(value string, fallback int32) int32 {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	var n int32
	if _, err := fmt.Sscanf(base, "%d", &n); err != nil {
		return fallback
	}
	return n
}

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return decimal.NewFromString(base)
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
