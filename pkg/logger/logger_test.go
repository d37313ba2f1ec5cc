package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestWithSession(t *testing.T) {
	tests := []struct {
		name          string
		correlationID string
		wantFields    int
	}{
		{"with correlation", "corr-1", 2},
		{"without correlation", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			log := &Logger{Logger: zap.New(core)}

			log.WithSession("abc", tt.correlationID).Info("hello")

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if len(fields) != tt.wantFields {
				t.Errorf("expected %d fields, got %v", tt.wantFields, fields)
			}
			if fields["session_id"] != "abc" {
				t.Errorf("expected session_id abc, got %v", fields["session_id"])
			}
			if tt.correlationID != "" && fields["correlation_id"] != tt.correlationID {
				t.Errorf("expected correlation_id %s, got %v", tt.correlationID, fields["correlation_id"])
			}
		})
	}
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("expected empty correlation id, got %q", got)
	}
	ctx := ContextWithCorrelationID(context.Background(), "corr-9")
	if got := CorrelationID(ctx); got != "corr-9" {
		t.Errorf("expected corr-9, got %q", got)
	}
}
