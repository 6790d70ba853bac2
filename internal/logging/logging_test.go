package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestFieldHelpers(t *testing.T) {
	if f := String("node", "client-1"); f.Key != "node" || f.Value != "client-1" {
		t.Fatalf("unexpected string field %+v", f)
	}
	if f := Int("hops", 3); f.Value != 3 {
		t.Fatalf("unexpected int field %+v", f)
	}
	if f := Float("dt", 0.033); f.Value != 0.033 {
		t.Fatalf("unexpected float field %+v", f)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got.Level() != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got.Level(), want)
		}
	}
}

func TestNoopLoggerDiscards(t *testing.T) {
	logger := Noop()
	ctx := context.Background()
	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped")
	logger.Warn(ctx, "dropped")
	logger.Error(ctx, "dropped")
	if withLogger := logger.With(String("k", "v")); withLogger == nil {
		t.Fatalf("expected With to return a usable logger")
	}
}

func TestNewReturnsWorkingLogger(t *testing.T) {
	logger := New(Config{Level: "debug", Format: "json"})
	if logger == nil {
		t.Fatalf("expected a logger")
	}
	// Must not panic with fields attached.
	logger.With(String("component", "test")).Info(context.Background(), "hello", Int("n", 1))
}
