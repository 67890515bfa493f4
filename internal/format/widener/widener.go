// Package widener implements the access widener document format: a versioned,
// human-authored description of members whose visibility or mutability is
// broadened at load time.
//
// The syntax is line-based. The header names the format, a dialect version and
// the namespace the symbol names are written in:
//
//	accessWidener v2 named
//	accessible class com/example/Widget
//	extendable method com/example/Widget resize (II)V
//	mutable field com/example/Widget count I
//
// Version 2 additionally allows rules prefixed with "transitive-", which apply
// across module boundaries.
package widener

import (
	"strings"

	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/zerr"
)

const headerKeyword = "accessWidener"

const transitivePrefix = "transitive-"

// Parse decodes a document, validating the version header before anything else.
func Parse(data []byte) (*domain.WidenerDocument, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return nil, zerr.Wrap(domain.ErrMalformedDocument, "empty document")
	}

	doc, err := parseHeader(lines[0])
	if err != nil {
		return nil, err
	}

	for i, line := range lines[1:] {
		rule, ok, err := parseRule(line, doc.Version)
		if err != nil {
			return nil, zerr.With(err, "line", i+2)
		}
		if ok {
			doc.Rules = append(doc.Rules, rule)
		}
	}
	return doc, nil
}

func parseHeader(line string) (*domain.WidenerDocument, error) {
	fields := strings.Fields(stripComment(line))
	if len(fields) != 3 || fields[0] != headerKeyword {
		return nil, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "bad header"), "header", line)
	}
	version, ok := parseVersion(fields[1])
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownDocumentVersion, "unsupported dialect"), "version", fields[1])
	}
	return &domain.WidenerDocument{Version: version, Namespace: fields[2]}, nil
}

func parseVersion(s string) (int, bool) {
	switch s {
	case "v1":
		return 1, true
	case "v2":
		return 2, true
	default:
		return 0, false
	}
}

func parseRule(line string, version int) (domain.WidenerRule, bool, error) {
	fields := strings.Fields(stripComment(line))
	if len(fields) == 0 {
		return domain.WidenerRule{}, false, nil
	}

	rule := domain.WidenerRule{}

	accessWord := fields[0]
	if strings.HasPrefix(accessWord, transitivePrefix) {
		if version < 2 {
			return domain.WidenerRule{}, false, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "transitive rules need v2"), "rule", line)
		}
		rule.Transitive = true
		accessWord = strings.TrimPrefix(accessWord, transitivePrefix)
	}

	access, err := parseAccess(accessWord)
	if err != nil {
		return domain.WidenerRule{}, false, err
	}
	rule.Access = access

	if len(fields) < 3 {
		return domain.WidenerRule{}, false, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "wrong field count"), "rule", line)
	}

	switch fields[1] {
	case "class":
		if len(fields) != 3 {
			return domain.WidenerRule{}, false, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "wrong field count"), "rule", line)
		}
		rule.Kind = domain.TargetClass
		rule.Owner = fields[2]
	case "field", "method":
		if len(fields) != 5 {
			return domain.WidenerRule{}, false, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "wrong field count"), "rule", line)
		}
		rule.Kind = domain.TargetField
		if fields[1] == "method" {
			rule.Kind = domain.TargetMethod
		}
		rule.Owner = fields[2]
		rule.Name = fields[3]
		rule.Descriptor = fields[4]
	default:
		return domain.WidenerRule{}, false, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "unknown target kind"), "target", fields[1])
	}

	if !rule.Access.AppliesTo(rule.Kind) {
		return domain.WidenerRule{}, false, zerr.With(
			zerr.Wrap(domain.ErrMalformedDocument, "access kind not applicable"),
			"rule", rule.Access.String()+" "+rule.Kind.String(),
		)
	}
	return rule, true, nil
}

func parseAccess(word string) (domain.AccessKind, error) {
	switch word {
	case "accessible":
		return domain.AccessAccessible, nil
	case "extendable":
		return domain.AccessExtendable, nil
	case "mutable":
		return domain.AccessMutable, nil
	default:
		return 0, zerr.With(zerr.Wrap(domain.ErrMalformedDocument, "unknown access kind"), "access", word)
	}
}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// Write serializes a document with tab separators and LF endings, the
// canonical formatting.
func Write(doc *domain.WidenerDocument) []byte {
	var sb strings.Builder
	sb.WriteString(headerKeyword)
	sb.WriteByte('\t')
	sb.WriteString("v")
	sb.WriteString(versionString(doc.Version))
	sb.WriteByte('\t')
	sb.WriteString(doc.Namespace)
	sb.WriteByte('\n')

	for _, rule := range doc.Rules {
		if rule.Transitive {
			sb.WriteString(transitivePrefix)
		}
		sb.WriteString(rule.Access.String())
		sb.WriteByte('\t')
		sb.WriteString(rule.Kind.String())
		sb.WriteByte('\t')
		sb.WriteString(rule.Owner)
		if rule.Kind != domain.TargetClass {
			sb.WriteByte('\t')
			sb.WriteString(rule.Name)
			sb.WriteByte('\t')
			sb.WriteString(rule.Descriptor)
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func versionString(v int) string {
	if v <= 1 {
		return "1"
	}
	return "2"
}

// Remap parses a document written in the source namespace, rewrites every
// owner, member and descriptor through the resolver, and serializes it under
// the target namespace. Rule order and access kinds are preserved.
func Remap(data []byte, r domain.SymbolResolver, source, target string) ([]byte, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if doc.Namespace != source {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrNamespaceMismatch, "document namespace"), "document", doc.Namespace), "expected", source)
	}

	out := &domain.WidenerDocument{Version: doc.Version, Namespace: target}
	out.Rules = make([]domain.WidenerRule, 0, len(doc.Rules))
	for _, rule := range doc.Rules {
		mapped := rule
		mapped.Owner = r.Class(rule.Owner)
		switch rule.Kind {
		case domain.TargetField:
			mapped.Name = r.Field(rule.Owner, rule.Name, rule.Descriptor)
			mapped.Descriptor = domain.RemapDescriptor(rule.Descriptor, r.Class)
		case domain.TargetMethod:
			mapped.Name = r.Method(rule.Owner, rule.Name, rule.Descriptor)
			mapped.Descriptor = domain.RemapDescriptor(rule.Descriptor, r.Class)
		case domain.TargetClass:
			// owner only
		}
		out.Rules = append(out.Rules, mapped)
	}
	return Write(out), nil
}
