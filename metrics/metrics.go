// Package metrics defines the optional instrumentation surface for a
// Conn. Metrics is nil-safe by construction: every method has a nil
// receiver guard, so passing a nil Metrics to adbus.WithMetrics disables
// instrumentation with zero runtime overhead beyond the nil check,
// exactly the pattern this package's pkg/metrics counterpart uses to
// keep its storage and cache layers metrics-optional.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry turns on metrics collection, creating a fresh
// prometheus.Registry. Call before constructing any Metrics
// implementation; NewPrometheus returns nil if this was never called.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// Metrics is the instrumentation surface a Conn reports through. All
// methods must tolerate a nil receiver.
type Metrics interface {
	MessageSent(msgType string, bodyBytes int)
	MessageReceived(msgType string, bodyBytes int)
	CallCompleted(member string, d time.Duration, isError bool)
	DispatchQueueDepth(n int)
	AuthMechanismResult(mechanism string, ok bool)
}
