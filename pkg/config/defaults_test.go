package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Connection.Address != defaultSystemAddress {
		t.Errorf("Address = %q, want %q", cfg.Connection.Address, defaultSystemAddress)
	}
	if cfg.Connection.HandshakeTimeout != 5*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 5s", cfg.Connection.HandshakeTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" || cfg.Logging.Output != "stderr" {
		t.Errorf("Logging = %+v, want {info text stderr}", cfg.Logging)
	}
	if len(cfg.Auth.Mechanisms) != 2 {
		t.Errorf("Mechanisms = %v, want 2 defaults", cfg.Auth.Mechanisms)
	}
}

func TestApplyDefaultsPreservesSetValues(t *testing.T) {
	cfg := &Config{}
	cfg.Connection.Address = "tcp:host=1.2.3.4,port=1234"
	cfg.Logging.Level = "debug"

	ApplyDefaults(cfg)

	if cfg.Connection.Address != "tcp:host=1.2.3.4,port=1234" {
		t.Errorf("ApplyDefaults overwrote an explicit address: %q", cfg.Connection.Address)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("ApplyDefaults overwrote an explicit log level: %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("ApplyDefaults did not fill an unset log format: %q", cfg.Logging.Format)
	}
}

func TestApplyDefaultsReconnectPolicy(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Connection.ReconnectPolicy.InitialWait != 500*time.Millisecond {
		t.Errorf("InitialWait = %v, want 500ms", cfg.Connection.ReconnectPolicy.InitialWait)
	}
	if cfg.Connection.ReconnectPolicy.MaxWait != 30*time.Second {
		t.Errorf("MaxWait = %v, want 30s", cfg.Connection.ReconnectPolicy.MaxWait)
	}
	if cfg.Connection.ReconnectPolicy.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", cfg.Connection.ReconnectPolicy.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty address", func(c *Config) { c.Connection.Address = "" }, true},
		{"zero timeout", func(c *Config) { c.Connection.HandshakeTimeout = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"unknown mechanism", func(c *Config) { c.Auth.Mechanisms = []string{"PLAIN"} }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMustLoadPanicsOnMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := os.WriteFile(path, []byte("logging: [this, is, not, a, map]\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("MustLoad with malformed config file: want panic, got none")
		}
	}()
	MustLoad(path)
}

func TestSessionAddressFallsBackToConfig(t *testing.T) {
	t.Setenv(defaultSessionAddressEnv, "")
	cfg := &Config{Connection: ConnectionConfig{Address: "unix:path=/tmp/sock"}}
	if got := cfg.SessionAddress(); got != "unix:path=/tmp/sock" {
		t.Errorf("SessionAddress() = %q, want configured address", got)
	}
}

func TestSessionAddressPrefersEnv(t *testing.T) {
	t.Setenv(defaultSessionAddressEnv, "unix:path=/tmp/env-sock")
	cfg := &Config{Connection: ConnectionConfig{Address: "unix:path=/tmp/cfg-sock"}}
	if got := cfg.SessionAddress(); got != "unix:path=/tmp/env-sock" {
		t.Errorf("SessionAddress() = %q, want env-sourced address", got)
	}
}
