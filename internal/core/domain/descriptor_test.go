package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/remap/internal/core/domain"
)

func renameWidget(name string) string {
	if name == "com/example/Widget" {
		return "a/a"
	}
	return name
}

func TestRemapTypeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"com/example/Widget", "a/a"},
		{"com/example/Other", "com/example/Other"},
		{"[Lcom/example/Widget;", "[La/a;"},
		{"[[Lcom/example/Widget;", "[[La/a;"},
		{"[I", "[I"},
		{"[[J", "[[J"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.RemapTypeName(tt.in, renameWidget), "input %q", tt.in)
	}
}

func TestRemapDescriptor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(Lcom/example/Widget;I)V", "(La/a;I)V"},
		{"(ILcom/example/Widget;)Lcom/example/Widget;", "(ILa/a;)La/a;"},
		{"([[Lcom/example/Widget;)V", "([[La/a;)V"},
		{"(IJ)Z", "(IJ)Z"},
		{"Lcom/example/Widget;", "La/a;"},
		{"I", "I"},
		// Malformed input passes through rather than erroring.
		{"(Lcom/example/Widget", "(Lcom/example/Widget"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.RemapDescriptor(tt.in, renameWidget), "input %q", tt.in)
	}
}
