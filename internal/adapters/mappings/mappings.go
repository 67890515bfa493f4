// Package mappings loads rename tables from tab-separated mapping files.
//
// The format carries one record per line:
//
//	mappings	v1	<source-namespace>	<target-namespace>
//	class	<from>	<to>
//	field	<owner>	<name>	<descriptor>	<to>
//	method	<owner>	<name>	<descriptor>	<to>
//
// A "-" descriptor is a wildcard matching every overload of the member name.
// Blank lines and lines starting with # are ignored.
package mappings

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/core/ports"
	"go.trai.ch/zerr"
)

const headerKeyword = "mappings"

// Source implements ports.MappingSource for tab-separated mapping files.
type Source struct {
	log ports.Logger
}

var _ ports.MappingSource = (*Source)(nil)

// NewSource creates a mapping file loader.
func NewSource(log ports.Logger) *Source {
	return &Source{log: log}
}

// Load parses the mapping file at path into a rename table for the requested
// namespace pair. The file's declared namespaces must match.
func (s *Source) Load(ctx context.Context, path, source, target string) (*domain.RenameTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the loaded config
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open mappings file"), "path", path)
	}
	defer func() { _ = f.Close() }()

	builder := domain.NewRenameTableBuilder(source, target)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sawHeader := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")

		if !sawHeader {
			if err := checkHeader(fields, source, target); err != nil {
				return nil, zerr.With(err, "path", path)
			}
			sawHeader = true
			continue
		}

		if err := addRecord(builder, fields); err != nil {
			return nil, zerr.With(zerr.With(err, "line", lineNo), "path", path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read mappings file"), "path", path)
	}
	if !sawHeader {
		return nil, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "missing header"), "path", path)
	}

	table := builder.Build()
	s.log.Info(fmt.Sprintf("loaded mappings %s -> %s from %s", source, target, path))
	return table, nil
}

func checkHeader(fields []string, source, target string) error {
	if len(fields) != 4 || fields[0] != headerKeyword {
		return zerr.Wrap(domain.ErrMalformedDocument, "bad header")
	}
	if fields[1] != "v1" {
		return zerr.With(zerr.Wrap(domain.ErrUnknownDocumentVersion, "unsupported dialect"), "version", fields[1])
	}
	if fields[2] != source || fields[3] != target {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrNamespaceMismatch, "mapping namespaces"), "document", fields[2]+" -> "+fields[3]), "expected", source+" -> "+target)
	}
	return nil
}

func addRecord(builder *domain.RenameTableBuilder, fields []string) error {
	switch fields[0] {
	case "class":
		if len(fields) != 3 {
			return zerr.Wrap(domain.ErrMalformedDocument, "class record needs 3 fields")
		}
		return builder.PutClass(fields[1], fields[2])
	case "field", "method":
		if len(fields) != 5 {
			return zerr.Wrap(domain.ErrMalformedDocument, fields[0]+" record needs 5 fields")
		}
		descriptor := fields[3]
		if descriptor == "-" {
			descriptor = ""
		}
		ref := domain.MemberRef{Owner: fields[1], Name: fields[2], Descriptor: descriptor}
		if fields[0] == "field" {
			return builder.PutField(ref, fields[4])
		}
		return builder.PutMethod(ref, fields[4])
	default:
		return zerr.Wrap(domain.ErrMalformedDocument, "unknown record kind "+fields[0])
	}
}
