package config

import (
	"fmt"
	"os"
	"time"
)

const (
	defaultSessionAddressEnv = "DBUS_SESSION_BUS_ADDRESS"
	defaultSystemAddress     = "unix:path=/var/run/dbus/system_bus_socket"
)

// DefaultConfig returns the configuration used when no file is found and
// no environment variables override it.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields of cfg with adbus's defaults,
// mirroring the fill-missing-then-validate shape the teacher's config
// loader applies after unmarshalling.
func ApplyDefaults(cfg *Config) {
	if cfg.Connection.Address == "" {
		cfg.Connection.Address = defaultSystemAddress
	}
	if cfg.Connection.HandshakeTimeout == 0 {
		cfg.Connection.HandshakeTimeout = 5 * time.Second
	}
	if cfg.Connection.ReconnectPolicy.InitialWait == 0 {
		cfg.Connection.ReconnectPolicy.InitialWait = 500 * time.Millisecond
	}
	if cfg.Connection.ReconnectPolicy.MaxWait == 0 {
		cfg.Connection.ReconnectPolicy.MaxWait = 30 * time.Second
	}
	if cfg.Connection.ReconnectPolicy.MaxAttempts == 0 {
		cfg.Connection.ReconnectPolicy.MaxAttempts = 10
	}
	if len(cfg.Auth.Mechanisms) == 0 {
		cfg.Auth.Mechanisms = []string{"EXTERNAL", "DBUS_COOKIE_SHA1"}
	}
	if cfg.Auth.CookieDir == "" {
		cfg.Auth.CookieDir = "~/.dbus-keyrings"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

// Validate checks cfg for values that ApplyDefaults can't fix on its own,
// the way the teacher's loader rejects a config it was able to parse but
// not act on.
func Validate(cfg *Config) error {
	if cfg.Connection.Address == "" {
		return fmt.Errorf("config: connection.address must not be empty")
	}
	if cfg.Connection.HandshakeTimeout <= 0 {
		return fmt.Errorf("config: connection.handshake_timeout must be positive")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging.format %q is not one of text, json", cfg.Logging.Format)
	}
	for _, m := range cfg.Auth.Mechanisms {
		switch m {
		case "EXTERNAL", "ANONYMOUS", "DBUS_COOKIE_SHA1":
		default:
			return fmt.Errorf("config: auth.mechanisms contains unknown mechanism %q", m)
		}
	}
	return nil
}

// MustLoad calls Load and panics on error, for use in program
// initialization paths where a misconfigured environment should fail
// fast.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// SessionAddress returns the session bus address from the standard
// environment variable, falling back to cfg's configured default.
func (c *Config) SessionAddress() string {
	if addr := os.Getenv(defaultSessionAddressEnv); addr != "" {
		return addr
	}
	return c.Connection.Address
}
