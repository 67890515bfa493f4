package progrock

import (
	"fmt"

	"github.com/vito/progrock"
	"go.trai.ch/remap/internal/core/ports"
)

// Span implements ports.Span wrapping *progrock.VertexRecorder.
type Span struct {
	vertex *progrock.VertexRecorder
	err    error
}

var _ ports.Span = (*Span)(nil)

// Write streams progress output to the vertex.
func (s *Span) Write(p []byte) (n int, err error) {
	return s.vertex.Stdout().Write(p)
}

// SetAttribute records a key-value pair in the vertex output.
func (s *Span) SetAttribute(key string, value any) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}

// RecordError marks the span as failed. The first recorded error surfaces
// when the span ends.
func (s *Span) RecordError(err error) {
	if s.err == nil {
		s.err = err
	}
	_, _ = fmt.Fprintln(s.vertex.Stderr(), err.Error())
}

// End completes the vertex, carrying any recorded error.
func (s *Span) End() {
	s.vertex.Done(s.err)
}
