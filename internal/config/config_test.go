package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
	assert.Equal(t, ":9090", cfg.Server.GRPC.Address)
	assert.Equal(t, 15*time.Second, cfg.Game.ResponseTimeout)
	assert.Equal(t, 8, cfg.Game.MaxSeats)
	assert.Equal(t, 4, cfg.Game.StartingHealth)
	assert.Equal(t, 2, cfg.Game.DrawPerTurn)
	assert.Equal(t, int64(64*1024), cfg.Server.WebSocket.MaxMessageSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http:
    address: ":7000"
game:
  max_seats: 5
  response_timeout: 3s
logging:
  level: debug
`), 0o600))
	t.Setenv("DUELHALL_GAME_HAND_SIZE", "6")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.HTTP.Address)
	assert.Equal(t, 5, cfg.Game.MaxSeats)
	assert.Equal(t, 3*time.Second, cfg.Game.ResponseTimeout)
	assert.Equal(t, 6, cfg.Game.HandSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DUELHALL_GAME_MAX_SEATS", "1")
	_, err := Load("")
	assert.ErrorContains(t, err, "max_seats")
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no http address", func(c *Config) { c.Server.HTTP.Address = "" }},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }},
		{"zero burst", func(c *Config) { c.Server.RateBurst = 0 }},
		{"zero health", func(c *Config) { c.Game.StartingHealth = 0 }},
		{"negative timeout", func(c *Config) { c.Game.ResponseTimeout = -time.Second }},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
