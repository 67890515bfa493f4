// Package manifest implements a codec for jar-style manifest resources:
// ordered main-section attributes with 72-byte line wrapping and continuation
// lines. Sections after the main one are preserved verbatim.
package manifest

import (
	"bytes"
	"strings"

	"go.trai.ch/zerr"
)

// ErrMalformed is returned for attribute lines without a colon separator.
var ErrMalformed = zerr.New("malformed manifest line")

const maxLineBytes = 72

// Manifest holds the main-section attributes in declaration order plus the
// raw remainder of the resource.
type Manifest struct {
	keys   []string
	values map[string]string
	tail   []byte
}

// New creates an empty manifest.
func New() *Manifest {
	return &Manifest{values: map[string]string{}}
}

// Parse decodes the main section of a manifest resource. The first blank line
// ends the main section; everything after it is kept untouched.
func Parse(data []byte) (*Manifest, error) {
	m := New()

	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))

	lines := strings.Split(string(normalized), "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			i++
			break
		}
		for i+1 < len(lines) && strings.HasPrefix(lines[i+1], " ") {
			line += lines[i+1][1:]
			i++
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, zerr.With(zerr.Wrap(ErrMalformed, "missing colon separator"), "line", line)
		}
		m.Set(strings.TrimSpace(key), strings.TrimPrefix(value, " "))
	}

	if i < len(lines) {
		rest := strings.Join(lines[i:], "\n")
		if rest != "" {
			m.tail = []byte(rest)
		}
	}
	return m, nil
}

// Get returns an attribute value, or "" when absent.
func (m *Manifest) Get(key string) string { return m.values[key] }

// Has reports whether an attribute is present.
func (m *Manifest) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set writes an attribute, preserving the position of existing keys.
func (m *Manifest) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Bytes serializes the manifest with CRLF line endings and 72-byte wrapping.
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer
	for _, key := range m.keys {
		writeWrapped(&buf, key+": "+m.values[key])
	}
	buf.WriteString("\r\n")
	if len(m.tail) > 0 {
		buf.Write(m.tail)
	}
	return buf.Bytes()
}

func writeWrapped(buf *bytes.Buffer, line string) {
	// The 72-byte limit counts the CRLF terminator.
	limit := maxLineBytes - len("\r\n")
	for len(line) > limit {
		buf.WriteString(line[:limit])
		buf.WriteString("\r\n")
		line = " " + line[limit:]
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}
