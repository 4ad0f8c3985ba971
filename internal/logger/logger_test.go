package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		l, err := NewLogger(env, Options{})
		if err != nil {
			t.Fatalf("env %q: unexpected error: %v", env, err)
		}
		_ = l.Sync()
	}

	if _, err := NewLogger("staging", Options{}); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", Options{Level: "warn"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn must be enabled")
	}

	if _, err := NewLogger("prod", Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewLogger_Format(t *testing.T) {
	for _, format := range []string{"", FormatJSON, FormatConsole} {
		if _, err := NewLogger("local", Options{Format: format}); err != nil {
			t.Errorf("format %q: unexpected error: %v", format, err)
		}
	}
	if _, err := NewLogger("local", Options{Format: "logfmt"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	FromContext(context.Background()).Info("outside a request")

	if logs.Len() != 1 {
		t.Fatalf("expected the global logger to receive 1 entry, got %d", logs.Len())
	}
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	ctx = WithFields(ctx, zap.String("request_id", "req-7"))
	FromContext(ctx).Info("cone search")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-7" {
		t.Errorf("expected request_id req-7, got %v", got)
	}
}
