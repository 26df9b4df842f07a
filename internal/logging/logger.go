// Package logging is the structured logger every devauth component takes.
// Components never reach for log/slog directly; they get a Logger scoped
// with With("module", ...) from the App.
package logging

import "context"

// Logger writes leveled records with alternating key/value attributes:
//
//	log.Warn(ctx, "refresh token eviction failed", "principal_id", id, "error", err)
//
// Secrets (passwords, refresh token strings, signing keys) must never be
// passed as attributes.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}

var _ Logger = (*SlogLogger)(nil)
