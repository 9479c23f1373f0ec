package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Development(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(true)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestComponent_Named(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	Component(zap.New(core), "fetch").Info("refreshed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "fetch" {
		t.Errorf("expected logger name fetch, got %q", entries[0].LoggerName)
	}
}

func TestComponent_NilParent(t *testing.T) {
	log := Component(nil, "dashboard")
	if log == nil {
		t.Fatal("expected no-op logger")
	}
	log.Info("dropped")
}
