package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds bridge configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// DatabasePath selects the SQLite store. Empty keeps mappings in memory.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	StorageKey   string `mapstructure:"storage_key" yaml:"storage_key" validate:"required"`

	// JWTSecret enables bearer auth on /api when set.
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"omitempty,min=16"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	MessageTemplate      string        `mapstructure:"message_template" yaml:"message_template" validate:"required"`
	ReactorInterval      time.Duration `mapstructure:"reactor_interval" yaml:"reactor_interval" validate:"gt=0"`
	CommandBuffer        int           `mapstructure:"command_buffer" yaml:"command_buffer" validate:"gte=0"`
	EventBuffer          int           `mapstructure:"event_buffer" yaml:"event_buffer" validate:"gt=0"`
	DefaultNick          string        `mapstructure:"default_nick" yaml:"default_nick" validate:"required"`
	DefaultPort          int           `mapstructure:"default_port" yaml:"default_port" validate:"gt=0,lte=65535"`
	CommandPrefix        string        `mapstructure:"command_prefix" yaml:"command_prefix" validate:"required"`
	IRCTimeout           time.Duration `mapstructure:"irc_timeout" yaml:"irc_timeout" validate:"gt=0"`
	OverwriteOnReconnect bool          `mapstructure:"overwrite_on_reconnect" yaml:"overwrite_on_reconnect"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		LogLevel:             "info",
		StorageKey:           "irc_config",
		JWTIssuer:            "ircbridge",
		JWTAudience:          "ircbridge-api",
		MessageTemplate:      "[{sender}] {body}",
		ReactorInterval:      200 * time.Millisecond,
		CommandBuffer:        64,
		EventBuffer:          256,
		DefaultNick:          "hipchat",
		DefaultPort:          6667,
		CommandPrefix:        "!",
		IRCTimeout:           30 * time.Second,
		OverwriteOnReconnect: true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Boolean fields are left alone since false cannot be told from unset.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.StorageKey != "" {
		c.StorageKey = other.StorageKey
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.MessageTemplate != "" {
		c.MessageTemplate = other.MessageTemplate
	}
	if other.ReactorInterval != 0 {
		c.ReactorInterval = other.ReactorInterval
	}
	if other.CommandBuffer != 0 {
		c.CommandBuffer = other.CommandBuffer
	}
	if other.EventBuffer != 0 {
		c.EventBuffer = other.EventBuffer
	}
	if other.DefaultNick != "" {
		c.DefaultNick = other.DefaultNick
	}
	if other.DefaultPort != 0 {
		c.DefaultPort = other.DefaultPort
	}
	if other.CommandPrefix != "" {
		c.CommandPrefix = other.CommandPrefix
	}
	if other.IRCTimeout != 0 {
		c.IRCTimeout = other.IRCTimeout
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
