// Package logging defines the structured, context-aware logger used across
// the server and the CLI.
package logging

import "context"

// Logger takes key–value pairs after the message:
//
//	log.Info(ctx, "role changed", "uid", uid, "role", role)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
