// Package config holds the application configuration and its loader.
//
// Values come from built-in defaults, an optional YAML file and PEERCHAT_*
// environment variables, in increasing order of precedence. CLI flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/1ureka/peerchat/internal/protocol"
)

// Role represents the user's chosen role (host or client).
type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

// Config stores every tunable of a chat session.
type Config struct {
	Role      Role          `mapstructure:"role"`       // empty: ask in the menu
	Nickname  string        `mapstructure:"nickname"`   // empty: ask in the name prompt
	Driver    string        `mapstructure:"driver"`     // registered transport driver
	Address   string        `mapstructure:"address"`    // Client: host to join
	Port      int           `mapstructure:"port"`       // session port, both roles
	MaxPeers  int           `mapstructure:"max_peers"`  // Host: simultaneous clients
	QuitDelay time.Duration `mapstructure:"quit_delay"` // Client: pause after losing the host
	Log       Log           `mapstructure:"log"`
}

// Log configures diagnostics output.
type Log struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty: stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Driver:    "quic",
		Address:   "127.0.0.1",
		Port:      protocol.DefaultPort,
		MaxPeers:  protocol.DefaultMaxPeers,
		QuitDelay: 3 * time.Second,
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("PEERCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("peerchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults seeds every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("role", string(d.Role))
	v.SetDefault("nickname", d.Nickname)
	v.SetDefault("driver", d.Driver)
	v.SetDefault("address", d.Address)
	v.SetDefault("port", d.Port)
	v.SetDefault("max_peers", d.MaxPeers)
	v.SetDefault("quit_delay", d.QuitDelay)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch c.Role {
	case "", RoleHost, RoleClient:
	default:
		return fmt.Errorf("invalid role %q: must be %q or %q", c.Role, RoleHost, RoleClient)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1~65535", c.Port)
	}
	if c.MaxPeers < 1 || c.MaxPeers > 65535 {
		return fmt.Errorf("invalid max_peers %d: must be 1~65535", c.MaxPeers)
	}
	if c.Driver == "" {
		return errors.New("driver must not be empty")
	}
	if c.Address == "" {
		return errors.New("address must not be empty")
	}
	if c.QuitDelay < 0 {
		return fmt.Errorf("invalid quit_delay %s", c.QuitDelay)
	}
	return nil
}
