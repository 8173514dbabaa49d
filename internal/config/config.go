// Package config loads HostPulse settings from an optional YAML file,
// HOSTPULSE_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a read-only view over a viper instance. A nil viper behaves as
// an empty configuration.
type Config struct {
	v *viper.Viper
}

// New wraps v.
func New(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
	}
	return &Config{v: v}
}

func (c *Config) GetString(key string) string          { return c.v.GetString(key) }
func (c *Config) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *Config) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *Config) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *Config) Sub(key string) *Config {
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole configuration into target using mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

// Viper exposes the underlying instance for flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// Configuration keys.
const (
	KeyInterval       = "interval"
	KeyDiskMount      = "disk.mount"
	KeyConsoleEnabled = "console.enabled"
	KeyServerEnabled  = "server.enabled"
	KeyServerAddr     = "server.addr"
	KeyServerRate     = "server.rate_limit"
	KeyLogLevel       = "log.level"
)

// Defaults.
const (
	DefaultInterval   = 2 * time.Second
	DefaultServerAddr = "127.0.0.1:9273"
	DefaultServerRate = 20.0
	DefaultLogLevel   = "info"
)

// EnvPrefix prefixes environment overrides, e.g. HOSTPULSE_SERVER_ADDR.
const EnvPrefix = "HOSTPULSE"

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyInterval, DefaultInterval)
	v.SetDefault(KeyDiskMount, "")
	v.SetDefault(KeyConsoleEnabled, true)
	v.SetDefault(KeyServerEnabled, false)
	v.SetDefault(KeyServerAddr, DefaultServerAddr)
	v.SetDefault(KeyServerRate, DefaultServerRate)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
}

// Load reads configuration from path (if non-empty) layered over environment
// variables and defaults. Without a path, hostpulse.yaml is looked up in the
// working directory and $HOME/.config/hostpulse; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hostpulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/hostpulse")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return New(v), nil
}

// Settings is the typed form of the configuration.
type Settings struct {
	Interval time.Duration `mapstructure:"interval"`
	Disk     struct {
		Mount string `mapstructure:"mount"`
	} `mapstructure:"disk"`
	Console struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"console"`
	Server struct {
		Enabled   bool    `mapstructure:"enabled"`
		Addr      string  `mapstructure:"addr"`
		RateLimit float64 `mapstructure:"rate_limit"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Settings decodes and validates the configuration.
func (c *Config) Settings() (Settings, error) {
	var s Settings
	if err := c.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that values are within acceptable ranges.
func (s Settings) Validate() error {
	if s.Interval <= 0 {
		return errors.New("config: interval must be positive")
	}
	if s.Server.Enabled && s.Server.Addr == "" {
		return errors.New("config: server.addr is required when the server is enabled")
	}
	if s.Server.RateLimit < 0 {
		return errors.New("config: server.rate_limit must not be negative")
	}
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", s.Log.Level)
	}
	return nil
}
