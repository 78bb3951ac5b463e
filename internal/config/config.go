// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings of the matchmaking service.
type Config struct {
	BindAddr         string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	JWTSecret        string
	TokenTTL         time.Duration
	LocalesDir       string
	MetricsNamespace string

	Matchmaking Matchmaking
}

// Load reads .env (if present) and environment variables, applying defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	return FromEnv()
}

// FromEnv builds the config from the current process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		DatabaseURL:      envOrDefault("DATABASE_URL", "host=localhost user=user password=password dbname=randomcalldb port=5432 sslmode=disable"),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:         72 * time.Hour,
		LocalesDir:       os.Getenv("LOCALES_DIR"), // порожньо = вбудовані переклади
		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "randomcall"),
		Matchmaking:      DefaultMatchmaking(),
	}

	var err error
	if cfg.RedisDB, err = intFromEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = durationFromEnv("JWT_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}

	mm := &cfg.Matchmaking
	if mm.PollInterval, err = durationFromEnv("MATCH_POLL_INTERVAL", mm.PollInterval); err != nil {
		return Config{}, err
	}
	if mm.WaitTimeout, err = durationFromEnv("MATCH_WAIT_TIMEOUT", mm.WaitTimeout); err != nil {
		return Config{}, err
	}
	if mm.CallDurationLimit, err = durationFromEnv("CALL_DURATION_LIMIT", mm.CallDurationLimit); err != nil {
		return Config{}, err
	}
	if mm.StaleWaitingAge, err = durationFromEnv("WAITING_STALE_AGE", mm.StaleWaitingAge); err != nil {
		return Config{}, err
	}
	if mm.SweepInterval, err = durationFromEnv("SWEEP_INTERVAL", mm.SweepInterval); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if mm.PollInterval <= 0 || mm.PollInterval >= mm.WaitTimeout {
		return Config{}, fmt.Errorf("MATCH_POLL_INTERVAL must be positive and shorter than MATCH_WAIT_TIMEOUT")
	}
	if mm.CallDurationLimit <= 0 {
		return Config{}, fmt.Errorf("CALL_DURATION_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
