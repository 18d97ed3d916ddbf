package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		enabled    zapcore.Level
		disabled   zapcore.Level
		wantErr    bool
	}{
		{env: "prod", enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{env: "local", enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{env: "prod", level: "warn", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{env: "dev", level: "error", enabled: zapcore.ErrorLevel, disabled: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if l.Core().Enabled(tt.disabled) {
				t.Errorf("level %s should be disabled", tt.disabled)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core).With(zap.String("from", "fallback"))

	FromContextOr(context.Background(), fallback).Info("a")
	if logs.Len() != 1 || logs.All()[0].ContextMap()["from"] != "fallback" {
		t.Fatalf("expected fallback logger, got %v", logs.All())
	}

	reqCore, reqLogs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(reqCore))
	FromContextOr(ctx, fallback).Info("b")
	FromContext(ctx).Info("c")
	if reqLogs.Len() != 2 {
		t.Errorf("expected 2 request log entries, got %d", reqLogs.Len())
	}

	// Nop logger never panics and drops everything.
	FromContext(context.Background()).Error("dropped")
}
