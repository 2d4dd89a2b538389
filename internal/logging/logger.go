// Package logging is the structured-logging seam of the docbox server. The
// lifecycle services and the HTTP layer log through the Logger interface;
// production wiring backs it with slog (see SlogLogger), tests plug in
// no-op implementations.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// alternating key-value pairs:
//
//	log.Info(ctx, "container deleted", "container_id", id, "subtree_size", n)
type Logger interface {
	// Info logs normal lifecycle events.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but survivable conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures. Storage causes are logged here and never leave
	// the process through API responses.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given key-value
	// pairs. Each service tags itself with With("module", ...) at
	// construction.
	With(args ...any) Logger
}
