// Package cmdutil provides shared utilities for adbusctl commands.
package cmdutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ohporter/adbus"
	"github.com/ohporter/adbus/auth"
	"github.com/ohporter/adbus/internal/logger"
	"github.com/ohporter/adbus/pkg/config"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values parsed by the root command.
type GlobalFlags struct {
	Address    string
	System     bool
	Session    bool
	Timeout    time.Duration
	ConfigFile string
	Verbose    bool
}

// LoadConfig loads the effective configuration, honoring --config.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if Flags.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// InitLogger configures the package logger from cfg, called once by each
// command before doing any connection work.
func InitLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ResolveAddress picks the bus address to dial, applying --address,
// --system, --session and falling back to the configured default in that
// order.
func ResolveAddress(cfg *config.Config) string {
	switch {
	case Flags.Address != "":
		return Flags.Address
	case Flags.System:
		return "unix:path=/var/run/dbus/system_bus_socket"
	case Flags.Session:
		return cfg.SessionAddress()
	default:
		if addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS"); addr != "" {
			return addr
		}
		return cfg.Connection.Address
	}
}

// Connect dials and authenticates a connection using the resolved
// address and configured auth mechanisms, the client-construction
// counterpart of GetAuthenticatedClient in server-management CLIs.
//
// The handshake itself (SASL exchange plus Hello) has no native
// cancellation, so Connect races it against ctx by closing the
// underlying transport if the deadline fires first, which unblocks
// whatever read is in flight.
func Connect(ctx context.Context) (*adbus.Conn, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	address := ResolveAddress(cfg)
	mechanisms, err := buildMechanisms(cfg.Auth.Mechanisms)
	if err != nil {
		return nil, err
	}

	addrs, err := adbus.ParseAddresses(address)
	if err != nil {
		return nil, err
	}
	transport, err := adbus.DialAddress(addrs)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", address, err)
	}

	timeout := Flags.Timeout
	if timeout <= 0 {
		timeout = cfg.Connection.HandshakeTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		conn *adbus.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c := adbus.NewConn(transport)
		if err := c.Authenticate(mechanisms...); err != nil {
			transport.Close()
			done <- result{err: err}
			return
		}
		if _, err := c.Hello(); err != nil {
			c.Close()
			done <- result{err: err}
			return
		}
		done <- result{conn: c}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	case <-dialCtx.Done():
		transport.Close()
		return nil, fmt.Errorf("connecting to %s: %w", address, dialCtx.Err())
	}
}

func buildMechanisms(names []string) ([]auth.Mechanism, error) {
	if len(names) == 0 {
		return []auth.Mechanism{auth.NewExternal()}, nil
	}
	out := make([]auth.Mechanism, 0, len(names))
	for _, name := range names {
		switch name {
		case "EXTERNAL":
			out = append(out, auth.NewExternal())
		case "ANONYMOUS":
			out = append(out, auth.NewAnonymous("adbusctl"))
		case "DBUS_COOKIE_SHA1":
			out = append(out, auth.NewCookieSHA1())
		default:
			return nil, fmt.Errorf("unknown auth mechanism %q", name)
		}
	}
	return out, nil
}
