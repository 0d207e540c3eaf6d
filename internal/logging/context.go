package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
)

// contextKey is a type for context keys used by this package.
type contextKey int

const (
	sessionKey contextKey = iota
)

// NewSessionID creates a random 16 character hex identifier.
func NewSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// WithSession returns a new context carrying a session identity.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext extracts the session identity from the context.
// Returns empty string if none is set.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(sessionKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns a logger with the session from context.
// If no session is in the context, returns the default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := Logger()
	if session := SessionFromContext(ctx); session != "" {
		logger = logger.With(KeySession, session)
	}
	return logger
}
