// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"
	"time"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(Options{Development: true})
	if err != nil {
		t.Fatalf("New(development) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(Options{})
	if err != nil {
		t.Fatalf("New(production) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
}

func TestNewWithBusForwardsEntries(t *testing.T) {
	t.Parallel()

	bus := &captureBus{}
	logger, err := New(Options{Bus: bus})
	if err != nil {
		t.Fatalf("New(bus) error = %v", err)
	}

	logger.Info("side-mission finished")
	logger.Debug("below the bus level")

	deadline := time.After(2 * time.Second)
	for bus.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("log entry never reached the bus")
		case <-time.After(5 * time.Millisecond):
		}
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 1 {
		t.Fatalf("expected 1 forwarded entry, got %d", len(bus.events))
	}
	if bus.events[0].Message != "side-mission finished" {
		t.Fatalf("unexpected event: %+v", bus.events[0])
	}
}
