package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewZapLoggerLevel(t *testing.T) {
	l, err := NewZapLogger("warn", false)
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("warn should be enabled at warn level")
	}
}

func TestInitSlogRoutesIntoZap(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	core, logs := observer.New(zapcore.DebugLevel)
	InitSlog(zap.New(core), "info")

	Debug("hidden")
	Info("report generated", "wallet", "0xabc")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Message != "report generated" {
		t.Fatalf("message = %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["wallet"]; got != "0xabc" {
		t.Fatalf("wallet field = %v", got)
	}
}

func TestInitZapSlogUsesCoreLevel(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	core, logs := observer.New(zapcore.WarnLevel)
	InitZapSlog(zap.New(core))

	Info("dropped")
	Warn("kept", "kind", "no_positions")

	if logs.Len() != 1 {
		t.Fatalf("got %d entries, want 1", logs.Len())
	}
	if logs.All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("level = %v", logs.All()[0].Level)
	}
}

func TestNamedAdapterAddsComponent(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	var buf bytes.Buffer
	SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l := NewNamed("ReportService")
	l.Info("started")
	l.Debug("detail", "n", 2)

	out := buf.String()
	if strings.Count(out, "component=ReportService") != 2 {
		t.Fatalf("component missing from output:\n%s", out)
	}

	buf.Reset()
	NewSlogAdapter().Error("boom")
	if !strings.Contains(buf.String(), "msg=boom") {
		t.Fatalf("default adapter did not write to the global logger:\n%s", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Info("x")
	l.Warn("y")
	l.Error("z")
	l.Debug("w")
}
