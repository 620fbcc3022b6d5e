package metrics

import "testing"

func TestIsEnabledBeforeInit(t *testing.T) {
	// InitRegistry is process-global and other tests in this package may
	// have already called it; skip in that case, and otherwise assert that
	// no registry exists yet.
	if IsEnabled() {
		t.Skip("registry already initialized by another test in this package")
	}
	if GetRegistry() != nil {
		t.Fatal("GetRegistry() before InitRegistry: want nil")
	}
}

func TestInitRegistryEnables(t *testing.T) {
	reg := InitRegistry()
	if reg == nil {
		t.Fatal("InitRegistry() returned nil")
	}
	if !IsEnabled() {
		t.Fatal("IsEnabled() after InitRegistry: want true")
	}
	if GetRegistry() != reg {
		t.Fatal("GetRegistry() does not match the registry InitRegistry returned")
	}
}

func TestNilMetricsMethodsDoNotPanic(t *testing.T) {
	var m *prometheusMetrics
	m.MessageSent("method_call", 10)
	m.MessageReceived("signal", 0)
	m.CallCompleted("Ping", 0, false)
	m.DispatchQueueDepth(3)
	m.AuthMechanismResult("EXTERNAL", true)
}
