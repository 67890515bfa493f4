// Package domain contains the core domain model for the archive remap pipeline:
// rename tables, archive specs, access widener documents and access transform sets.
package domain

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// MemberRef identifies a field or method declared on a class. Names use JVM
// internal form (slash-separated owners, e.g. "com/example/Widget").
// An empty Descriptor matches any overload.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
}

// SymbolResolver maps symbols from a source namespace to a target namespace.
// Implementations return the input unchanged for symbols they do not know,
// so lookups are total.
type SymbolResolver interface {
	// Class maps a plain class internal name.
	Class(name string) string
	// Field maps a field declared on (or inherited into) owner.
	Field(owner, name, descriptor string) string
	// Method maps a method declared on (or inherited into) owner.
	Method(owner, name, descriptor string) string
}

// RenameTable is an immutable mapping from symbols in a source namespace to
// symbols in a target namespace. Absent symbols map to themselves. A table is
// safe for concurrent use once built.
type RenameTable struct {
	source  string
	target  string
	classes map[string]string
	fields  map[MemberRef]string
	methods map[MemberRef]string
}

var _ SymbolResolver = (*RenameTable)(nil)

// IdentityTable returns a table whose source and target namespace are the same
// and which maps every symbol to itself.
func IdentityTable(namespace string) *RenameTable {
	return &RenameTable{
		source:  namespace,
		target:  namespace,
		classes: map[string]string{},
		fields:  map[MemberRef]string{},
		methods: map[MemberRef]string{},
	}
}

// SourceNamespace returns the namespace the table maps from.
func (t *RenameTable) SourceNamespace() string { return t.source }

// TargetNamespace returns the namespace the table maps to.
func (t *RenameTable) TargetNamespace() string { return t.target }

// IsIdentity reports whether the table maps a namespace onto itself.
func (t *RenameTable) IsIdentity() bool { return t.source == t.target }

// Class returns the target name for a class, or the input when no entry exists.
func (t *RenameTable) Class(name string) string {
	if mapped, ok := t.classes[name]; ok {
		return mapped
	}
	return name
}

// Field returns the target name for a field declared on owner, or the input
// name when no entry exists. The lookup is descriptor-aware: an exact
// descriptor entry wins over a wildcard entry.
func (t *RenameTable) Field(owner, name, descriptor string) string {
	if mapped, ok := t.FieldEntry(owner, name, descriptor); ok {
		return mapped
	}
	return name
}

// Method is the method counterpart of Field.
func (t *RenameTable) Method(owner, name, descriptor string) string {
	if mapped, ok := t.MethodEntry(owner, name, descriptor); ok {
		return mapped
	}
	return name
}

// FieldEntry reports whether the table has an entry for the exact declared
// field, trying the exact descriptor first and falling back to a wildcard.
func (t *RenameTable) FieldEntry(owner, name, descriptor string) (string, bool) {
	return lookupMember(t.fields, owner, name, descriptor)
}

// MethodEntry is the method counterpart of FieldEntry.
func (t *RenameTable) MethodEntry(owner, name, descriptor string) (string, bool) {
	return lookupMember(t.methods, owner, name, descriptor)
}

func lookupMember(m map[MemberRef]string, owner, name, descriptor string) (string, bool) {
	if mapped, ok := m[MemberRef{Owner: owner, Name: name, Descriptor: descriptor}]; ok {
		return mapped, true
	}
	if descriptor == "" {
		return "", false
	}
	mapped, ok := m[MemberRef{Owner: owner, Name: name}]
	return mapped, ok
}

// Hash returns a stable fingerprint of the table contents, independent of
// insertion order.
func (t *RenameTable) Hash() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(t.source)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(t.target)
	_, _ = h.Write([]byte{0})

	lines := make([]string, 0, len(t.classes)+len(t.fields)+len(t.methods))
	for from, to := range t.classes {
		lines = append(lines, "c\x00"+from+"\x00"+to)
	}
	for ref, to := range t.fields {
		lines = append(lines, "f\x00"+ref.Owner+"\x00"+ref.Name+"\x00"+ref.Descriptor+"\x00"+to)
	}
	for ref, to := range t.methods {
		lines = append(lines, "m\x00"+ref.Owner+"\x00"+ref.Name+"\x00"+ref.Descriptor+"\x00"+to)
	}
	sort.Strings(lines)

	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// RenameTableBuilder accumulates rename entries and rejects conflicts.
type RenameTableBuilder struct {
	table *RenameTable
}

// NewRenameTableBuilder creates a builder for a table mapping source to target.
func NewRenameTableBuilder(source, target string) *RenameTableBuilder {
	return &RenameTableBuilder{table: &RenameTable{
		source:  source,
		target:  target,
		classes: map[string]string{},
		fields:  map[MemberRef]string{},
		methods: map[MemberRef]string{},
	}}
}

// PutClass records a class rename. Re-adding the same pair is a no-op;
// a different target for an existing source is rejected.
func (b *RenameTableBuilder) PutClass(from, to string) error {
	if existing, ok := b.table.classes[from]; ok && existing != to {
		return zerr.With(zerr.Wrap(ErrAmbiguousRename, "conflicting class targets"), "class", from)
	}
	b.table.classes[from] = to
	return nil
}

// PutField records a field rename. An empty descriptor acts as a wildcard
// matching every overload of the name.
func (b *RenameTableBuilder) PutField(ref MemberRef, to string) error {
	if existing, ok := b.table.fields[ref]; ok && existing != to {
		return zerr.With(zerr.With(zerr.Wrap(ErrAmbiguousRename, "conflicting field targets"), "owner", ref.Owner), "field", ref.Name)
	}
	b.table.fields[ref] = to
	return nil
}

// PutMethod records a method rename, with the same wildcard semantics as PutField.
func (b *RenameTableBuilder) PutMethod(ref MemberRef, to string) error {
	if existing, ok := b.table.methods[ref]; ok && existing != to {
		return zerr.With(zerr.With(zerr.Wrap(ErrAmbiguousRename, "conflicting method targets"), "owner", ref.Owner), "method", ref.Name)
	}
	b.table.methods[ref] = to
	return nil
}

// Build finalizes the table. The builder must not be used afterwards.
func (b *RenameTableBuilder) Build() *RenameTable {
	t := b.table
	b.table = nil
	return t
}
