// Package config loads server configuration from an optional YAML file,
// DUELHALL_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds listener and transport settings.
type ServerConfig struct {
	HTTP            HTTPConfig      `mapstructure:"http"`
	GRPC            GRPCConfig      `mapstructure:"grpc"`
	WebSocket       WebSocketConfig `mapstructure:"websocket"`
	RateLimit       float64         `mapstructure:"rate_limit"`
	RateBurst       int             `mapstructure:"rate_burst"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// GRPCConfig configures the health/reflection listener. An empty address
// disables it.
type GRPCConfig struct {
	Address string `mapstructure:"address"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// GameConfig tunes rooms and rules.
type GameConfig struct {
	MaxSeats        int           `mapstructure:"max_seats"`
	StartingHealth  int           `mapstructure:"starting_health"`
	HandSize        int           `mapstructure:"hand_size"`
	DrawPerTurn     int           `mapstructure:"draw_per_turn"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	DeckFile        string        `mapstructure:"deck_file"`
	IdleRoomTTL     time.Duration `mapstructure:"idle_room_ttl"`
	ReapInterval    time.Duration `mapstructure:"reap_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.websocket.read_buffer_size", 1024)
	v.SetDefault("server.websocket.write_buffer_size", 1024)
	v.SetDefault("server.websocket.send_buffer", 256)
	v.SetDefault("server.websocket.max_message_size", 64*1024)
	v.SetDefault("server.websocket.ping_interval", "30s")
	v.SetDefault("server.websocket.write_timeout", "10s")
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("game.max_seats", 8)
	v.SetDefault("game.starting_health", 4)
	v.SetDefault("game.hand_size", 4)
	v.SetDefault("game.draw_per_turn", 2)
	v.SetDefault("game.response_timeout", "15s")
	v.SetDefault("game.deck_file", "")
	v.SetDefault("game.idle_room_ttl", "30m")
	v.SetDefault("game.reap_interval", "1m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration. Priority is environment, then file, then
// defaults. A missing file at path is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DUELHALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.HTTP.Address == "" {
		return errors.New("server.http.address is required")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be at least 1, got %d", c.Server.RateBurst)
	}
	if c.Server.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("server.websocket.max_message_size must be positive, got %d", c.Server.WebSocket.MaxMessageSize)
	}
	if c.Server.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("server.websocket.write_timeout must be positive, got %s", c.Server.WebSocket.WriteTimeout)
	}
	if c.Game.MaxSeats < 2 {
		return fmt.Errorf("game.max_seats must be at least 2, got %d", c.Game.MaxSeats)
	}
	if c.Game.StartingHealth < 1 {
		return fmt.Errorf("game.starting_health must be at least 1, got %d", c.Game.StartingHealth)
	}
	if c.Game.HandSize < 0 || c.Game.DrawPerTurn < 0 {
		return errors.New("game.hand_size and game.draw_per_turn must not be negative")
	}
	if c.Game.ResponseTimeout < 0 {
		return fmt.Errorf("game.response_timeout must not be negative, got %s", c.Game.ResponseTimeout)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
