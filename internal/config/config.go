package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabasePath is the SQLite database file.
	DatabasePath string

	// JWTSecret signs bearer tokens.
	JWTSecret string

	// TokenTTL is how long issued tokens stay valid.
	TokenTTL time.Duration

	// SweepInterval is how often the orphan comment sweep runs.
	SweepInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := 3000
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "devblog.db"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	tokenTTL := time.Hour
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		var err error
		tokenTTL, err = time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
	}

	sweepInterval := 10 * time.Minute
	if iv := os.Getenv("SWEEP_INTERVAL"); iv != "" {
		var err error
		sweepInterval, err = time.ParseDuration(iv)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
		}
	}

	return &Config{
		Port:          port,
		DatabasePath:  dbPath,
		JWTSecret:     secret,
		TokenTTL:      tokenTTL,
		SweepInterval: sweepInterval,
	}, nil
}
