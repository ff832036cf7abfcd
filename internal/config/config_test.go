package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PORT", "")
		t.Setenv("DATABASE_PATH", "")
		t.Setenv("TOKEN_TTL", "")
		t.Setenv("SWEEP_INTERVAL", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "devblog.db", cfg.DatabasePath)
		assert.Equal(t, time.Hour, cfg.TokenTTL)
		assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PORT", "8080")
		t.Setenv("DATABASE_PATH", "/tmp/test.db")
		t.Setenv("TOKEN_TTL", "30m")
		t.Setenv("SWEEP_INTERVAL", "1m")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
		assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
		assert.Equal(t, time.Minute, cfg.SweepInterval)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PORT", "not-a-port")
		_, err := Load()
		assert.Error(t, err)
	})
}
