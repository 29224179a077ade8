package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Defaults applied when a variable is unset.
const (
	DefaultAddr               = ":8080"
	DefaultDBPath             = "makerspace.db"
	DefaultAdminEmail         = "admin@makerspace.local"
	DefaultTokenTTL           = 12 * time.Hour
	DefaultRateLimitPerSecond = 10
	DefaultSlowQueryMs        = 50
	DefaultSlowRequestMs      = 200
	DefaultLocation           = "America/New_York"
)

var (
	ErrMissingCSRFKey   = errors.New("MAKERSPACE_CSRF_KEY is required in production")
	ErrMissingJWTSecret = errors.New("MAKERSPACE_JWT_SECRET is required in production")
	ErrInvalidCSRFKey   = errors.New("MAKERSPACE_CSRF_KEY must be 64 hex characters (32 bytes)")
)

// Config holds process configuration read from MAKERSPACE_* variables.
type Config struct {
	Env                string
	Addr               string
	DBPath             string
	AdminEmail         string
	AdminPassword      string
	CSRFKey            []byte // nil means generate per process
	JWTSecret          []byte // nil means generate per process
	TokenTTL           time.Duration
	RateLimitPerSecond int
	RedisAddr          string
	AMQPURL            string
	SlowQueryMs        int
	SlowRequestMs      int
	Location           *time.Location
}

// IsProduction reports whether the service runs with production guards.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads an optional .env file, then the process environment.
// PRE: none
// POST: Returns a Config with defaults applied, or the first invalid value as an error
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config_event", "event", "dotenv_skipped", "reason", err.Error())
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:           get("MAKERSPACE_ENV", EnvDevelopment),
		Addr:          get("MAKERSPACE_ADDR", DefaultAddr),
		DBPath:        get("MAKERSPACE_DB_PATH", DefaultDBPath),
		AdminEmail:    get("MAKERSPACE_ADMIN_EMAIL", DefaultAdminEmail),
		AdminPassword: get("MAKERSPACE_ADMIN_PASSWORD", ""),
		RedisAddr:     get("MAKERSPACE_REDIS_ADDR", ""),
		AMQPURL:       get("MAKERSPACE_AMQP_URL", ""),
	}

	var err error
	if cfg.TokenTTL, err = parseDuration(get("MAKERSPACE_TOKEN_TTL", ""), DefaultTokenTTL); err != nil {
		return Config{}, fmt.Errorf("MAKERSPACE_TOKEN_TTL: %w", err)
	}
	if cfg.RateLimitPerSecond, err = parsePositive(get("MAKERSPACE_RATE_LIMIT", ""), DefaultRateLimitPerSecond); err != nil {
		return Config{}, fmt.Errorf("MAKERSPACE_RATE_LIMIT: %w", err)
	}
	if cfg.SlowQueryMs, err = parsePositive(get("MAKERSPACE_SLOW_QUERY_MS", ""), DefaultSlowQueryMs); err != nil {
		return Config{}, fmt.Errorf("MAKERSPACE_SLOW_QUERY_MS: %w", err)
	}
	if cfg.SlowRequestMs, err = parsePositive(get("MAKERSPACE_SLOW_REQUEST_MS", ""), DefaultSlowRequestMs); err != nil {
		return Config{}, fmt.Errorf("MAKERSPACE_SLOW_REQUEST_MS: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(get("MAKERSPACE_TZ", DefaultLocation)); err != nil {
		return Config{}, fmt.Errorf("MAKERSPACE_TZ: %w", err)
	}

	if keyHex := get("MAKERSPACE_CSRF_KEY", ""); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return Config{}, ErrInvalidCSRFKey
		}
		cfg.CSRFKey = key
	} else if cfg.IsProduction() {
		return Config{}, ErrMissingCSRFKey
	}

	if secret := get("MAKERSPACE_JWT_SECRET", ""); secret != "" {
		cfg.JWTSecret = []byte(secret)
	} else if cfg.IsProduction() {
		return Config{}, ErrMissingJWTSecret
	}

	return cfg, nil
}

func parsePositive(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
