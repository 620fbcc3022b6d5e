// Package config loads adbus client defaults (bus address, handshake
// timeouts, cookie directory, reconnect policy) the way the library this
// module is adapted from layers its own configuration: a YAML file, then
// ADBUS_*-prefixed environment variables, decoded with mapstructure on
// top of github.com/spf13/viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is adbus's client-side configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (ADBUS_*)
//  2. Configuration file
//  3. Default values
//
// An environment variable overrides only a key that the configuration
// file sets; when no file is found, Load returns DefaultConfig and the
// environment is not consulted.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls the internal/logger package.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ConnectionConfig controls default dial/handshake behavior.
type ConnectionConfig struct {
	// Address is the D-Bus server address string used when an
	// application doesn't supply one explicitly, e.g.
	// "unix:path=/var/run/dbus/system_bus_socket".
	Address string `mapstructure:"address" yaml:"address"`

	// HandshakeTimeout bounds the SASL auth exchange plus the Hello
	// call.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`

	// ReconnectPolicy controls whether and how a lost connection is
	// retried by higher-level helpers built on Conn.
	ReconnectPolicy ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`
}

// ReconnectConfig configures exponential backoff for connection retry
// helpers.
type ReconnectConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	InitialWait time.Duration `mapstructure:"initial_wait" yaml:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// AuthConfig controls SASL mechanism selection and the cookie keyring
// location.
type AuthConfig struct {
	Mechanisms []string `mapstructure:"mechanisms" yaml:"mechanisms"`
	CookieDir  string   `mapstructure:"cookie_dir" yaml:"cookie_dir"`
}

// MetricsConfig controls whether the optional Prometheus metrics
// registry is initialized.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load reads configuration from configPath (or the default search path
// if empty), lets environment variables override the keys it sets, and
// fills the remaining fields from the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := DefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %q: %w", path, err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ADBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if strings.Contains(err.Error(), "no such file") {
			return false, nil
		}
		return false, fmt.Errorf("config: reading config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "adbus")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".adbus"
	}
	return filepath.Join(home, ".config", "adbus")
}
