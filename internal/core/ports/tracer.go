package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=tracer.go -destination=mocks/mock_tracer.go -package=mocks

// Tracer is the entry point for creating spans around pipeline work.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string) (context.Context, Span)
	// Close flushes any pending telemetry.
	Close() error
}

// Span represents one unit of pipeline work. Writes stream progress output.
type Span interface {
	io.Writer
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
	// RecordError records a failure for the span.
	RecordError(err error)
	// End completes the span.
	End()
}
