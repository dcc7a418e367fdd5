package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected nop logger when no level is configured")
	}
}

func TestLogTruncation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogTruncation("route", 64, 12)

	entries := logs.FilterMessage("Truncated to capacity").All()
	if len(entries) != 1 {
		t.Fatalf("got %d truncation entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["field"] != "route" {
		t.Errorf("field = %v, want route", fields["field"])
	}
	if fields["dropped_bytes"] != int64(12) {
		t.Errorf("dropped_bytes = %v, want 12", fields["dropped_bytes"])
	}
}

func TestASCIIDump(t *testing.T) {
	got := asciiDump([]byte("GET /\r\n"))
	if got != "GET /.." {
		t.Errorf("asciiDump() = %q, want %q", got, "GET /..")
	}
}
