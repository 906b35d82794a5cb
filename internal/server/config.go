// Package server provides configuration helpers that define runtime defaults,
// environment loading, and validation for the chat service.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Config holds the server configuration settings.
type Config struct {
	Port            string        `env:"SERVER_PORT,default=:6142" validate:"required"`
	Origins         string        `env:"ALLOWED_ORIGINS,default=*"`
	AllowedOrigins  []string      `validate:"dive,required"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=4096" validate:"gt=0"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	PingInterval    time.Duration `env:"PING_INTERVAL,default=15s" validate:"gt=0"`
	PongWait        time.Duration `env:"PONG_WAIT,default=60s" validate:"gtfield=PingInterval"`
	WriteWait       time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s" validate:"gt=0"`
	LogLevel        string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error dpanic panic fatal"`
	DefaultRoom     string        `env:"DEFAULT_ROOM,default=main" validate:"required"`
	NamePrefix      string        `env:"NAME_PREFIX,default=User"`
	NameMin         int           `env:"NAME_MIN,default=1000" validate:"gte=0"`
	NameMax         int           `env:"NAME_MAX,default=9999" validate:"gtefield=NameMin"`
}

var validate = validator.New()

func defaultConfig() Config {
	return Config{
		Port:            ":6142",
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		PingInterval:    15 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogLevel:        "info",
		DefaultRoom:     "main",
		NamePrefix:      "User",
		NameMin:         1000,
		NameMax:         9999,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig reads the configuration from the environment, falling back to
// defaults for unset variables, and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.AllowedOrigins = parseOrigins(cfg.Origins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ChatOptions derives the dispatcher settings from the config.
func (c *Config) ChatOptions() chat.Options {
	opts := chat.DefaultOptions()
	opts.DefaultRoom = c.DefaultRoom
	opts.Names = chat.NameOptions{Prefix: c.NamePrefix, Min: c.NameMin, Max: c.NameMax}
	return opts
}

// sanitize fills zero values left by configs built in code.
func sanitize(cfg Config) Config {
	def := defaultConfig()
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = def.SendBufferSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = 4 * cfg.PingInterval
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.DefaultRoom == "" {
		cfg.DefaultRoom = def.DefaultRoom
	}
	if cfg.NamePrefix == "" && cfg.NameMin == 0 && cfg.NameMax == 0 {
		cfg.NamePrefix, cfg.NameMin, cfg.NameMax = def.NamePrefix, def.NameMin, def.NameMax
	}
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
