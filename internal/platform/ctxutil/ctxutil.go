// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/corvid-labs/boorusync/internal/platform/ctxkey"
)

// # Job Correlation

// WithJobID returns a new context with the provided job correlation id attached.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyJobID, id)
}

// GetJobID retrieves the job correlation id from the context.
// Returns an empty string if not found.
func GetJobID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyJobID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}
