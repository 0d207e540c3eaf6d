package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelInfo, cfg.Level)
	assert.False(t, cfg.JSON)
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.True(t, cfg.JSON)
	assert.True(t, cfg.AddSource)
}

func TestInit(t *testing.T) {
	t.Run("text_config", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: slog.LevelInfo, Output: &buf})

		Info("reminder due", KeyReminderID, "abc")
		assert.Contains(t, buf.String(), "reminder due")
		assert.Contains(t, buf.String(), "reminder_id=abc")
		assert.False(t, Debug)
	})

	t.Run("json_config", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: slog.LevelDebug, JSON: true, Output: &buf})

		DebugLog("planning", KeyMode, "daily")
		assert.Contains(t, buf.String(), `"mode":"daily"`)
		assert.True(t, Debug)
	})

	t.Run("nil_output_uses_stderr", func(t *testing.T) {
		Init(Config{Level: slog.LevelInfo, Output: nil})
		assert.NotNil(t, Logger())
	})

	t.Cleanup(func() { Init(DefaultConfig()) })
}

func TestLevelsFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelWarn, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info("hidden")
	Warn("shown")
	Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "also shown")
}

func TestSessionContext(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := WithSession(context.Background(), "sess-1")
	assert.Equal(t, "sess-1", SessionFromContext(ctx))
	assert.Equal(t, "", SessionFromContext(context.Background()))

	InfoContext(ctx, "connected")
	assert.Contains(t, buf.String(), "session=sess-1")
}

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestMaskArgs(t *testing.T) {
	args := []any{"token", "s3cr3t-value", KeyReminderID, "abc", "authorization", 42}
	masked := MaskArgs(args)

	assert.Equal(t, "********", masked[1])
	assert.Equal(t, "abc", masked[3])
	assert.Equal(t, "********", masked[5])
	// Input is left untouched.
	assert.Equal(t, "s3cr3t-value", args[1])
}

func TestMaskArgsNoSensitiveFields(t *testing.T) {
	args := []any{KeyCity, "Lahore"}
	assert.Equal(t, args, MaskArgs(args))
}

func TestIsSensitiveField(t *testing.T) {
	tests := []struct {
		field    string
		expected bool
	}{
		{"token", true},
		{"session_token", true},
		{"Authorization", true},
		{"city", false},
		{"reminder_id", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSensitiveField(tt.field))
		})
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Component("presenter").Info("state change")
	assert.Contains(t, buf.String(), "component=presenter")
}
