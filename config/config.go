package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/coachpro/go-auth"
	"github.com/joho/godotenv"
)

// Config is everything the coachpro binary reads from the environment
type Config struct {
	Auth auth.DefaultConfig

	Addr          string
	Debug         bool
	LogLevel      string
	Store         StoreConfig
	PhoneRegion   string
	SealingSecret string
}

// StoreConfig selects the persistent scope backend
type StoreConfig struct {
	// Driver is "sqlite" or "redis"
	Driver      string
	SQLiteDSN   string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	RedisPrefix string
	PurgeEvery  time.Duration
}

// Load reads an optional .env file and then the COACHPRO_* variables.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from getenv
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Auth: auth.DefaultConfig{
			AuthBaseURL:        e.str("COACHPRO_AUTH_BASE_URL", "http://localhost:3000/api"),
			RequestTimeout:     e.duration("COACHPRO_REQUEST_TIMEOUT", 0),
			RefreshCookieName:  e.str("COACHPRO_REFRESH_COOKIE", "refresh_token"),
			VisitorCookieName:  e.str("COACHPRO_VISITOR_COOKIE", "coachpro_vid"),
			CookieSecure:       e.boolean("COACHPRO_COOKIE_SECURE", false),
			RememberMeDuration: e.duration("COACHPRO_REMEMBER_ME", 30*24*time.Hour),
			SessionScopeTTL:    e.duration("COACHPRO_SESSION_TTL", 12*time.Hour),
			IdleTimeout:        e.duration("COACHPRO_IDLE_TIMEOUT", auth.DefaultIdleTimeout),
			IdleCheckInterval:  e.duration("COACHPRO_IDLE_CHECK_INTERVAL", auth.DefaultIdleCheckInterval),
			LockoutThreshold:   e.integer("COACHPRO_LOCKOUT_THRESHOLD", auth.DefaultLockoutThreshold),
			LockoutDuration:    e.duration("COACHPRO_LOCKOUT_DURATION", auth.DefaultLockoutDuration),
			LoginPath:          e.str("COACHPRO_LOGIN_PATH", "/login"),
			DefaultRedirect:    e.str("COACHPRO_DEFAULT_REDIRECT", "/dashboard"),
			CSRFEnabled:        e.boolean("COACHPRO_CSRF", true),
		},
		Addr:          e.str("COACHPRO_ADDR", ":8080"),
		Debug:         e.boolean("COACHPRO_DEBUG", false),
		LogLevel:      e.str("COACHPRO_LOG_LEVEL", "info"),
		PhoneRegion:   e.str("COACHPRO_PHONE_REGION", auth.DefaultPhoneRegion),
		SealingSecret: e.get("COACHPRO_SEALING_SECRET"),
		Store: StoreConfig{
			Driver:      e.str("COACHPRO_STORE", "sqlite"),
			SQLiteDSN:   e.str("COACHPRO_SQLITE_DSN", "file:coachpro.db?cache=shared"),
			RedisAddr:   e.str("COACHPRO_REDIS_ADDR", "localhost:6379"),
			RedisDB:     e.integer("COACHPRO_REDIS_DB", 0),
			RedisPass:   e.get("COACHPRO_REDIS_PASSWORD"),
			RedisPrefix: e.str("COACHPRO_REDIS_PREFIX", ""),
			PurgeEvery:  e.duration("COACHPRO_PURGE_INTERVAL", time.Hour),
		},
	}

	if raw, ok := e.lookup("COACHPRO_SIMULATED_FAILURE_PASSWORD"); ok {
		cfg.Auth.SimulatedFailurePassword = &raw
	}

	if len(e.errs) > 0 {
		return cfg, errors.Join(e.errs...)
	}

	switch cfg.Store.Driver {
	case "sqlite", "redis":
	default:
		return cfg, fmt.Errorf("COACHPRO_STORE: unknown driver %q", cfg.Store.Driver)
	}

	return cfg, nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	out := c
	if out.SealingSecret != "" {
		out.SealingSecret = "***"
	}
	if out.Store.RedisPass != "" {
		out.Store.RedisPass = "***"
	}
	return out
}

type env struct {
	get  func(string) string
	errs []error
}

// lookup treats a variable set to "-" as explicitly empty
func (e *env) lookup(key string) (string, bool) {
	val := e.get(key)
	if val == "" {
		return "", false
	}
	if val == "-" {
		return "", true
	}
	return val, true
}

func (e *env) str(key, fallback string) string {
	if val := e.get(key); val != "" {
		return val
	}
	return fallback
}

func (e *env) boolean(key string, fallback bool) bool {
	val := e.get(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (e *env) integer(key string, fallback int) int {
	val := e.get(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	val := e.get(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
