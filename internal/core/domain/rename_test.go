package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/remap/internal/core/domain"
)

func buildTable(t *testing.T) *domain.RenameTable {
	t.Helper()
	b := domain.NewRenameTableBuilder("named", "runtime")
	require.NoError(t, b.PutClass("com/example/Widget", "a/a"))
	require.NoError(t, b.PutField(domain.MemberRef{Owner: "com/example/Widget", Name: "count", Descriptor: "I"}, "c"))
	require.NoError(t, b.PutMethod(domain.MemberRef{Owner: "com/example/Widget", Name: "render", Descriptor: "(F)V"}, "r"))
	require.NoError(t, b.PutMethod(domain.MemberRef{Owner: "com/example/Widget", Name: "reset"}, "x"))
	return b.Build()
}

func TestRenameTable_Lookups(t *testing.T) {
	table := buildTable(t)

	assert.Equal(t, "named", table.SourceNamespace())
	assert.Equal(t, "runtime", table.TargetNamespace())
	assert.False(t, table.IsIdentity())

	assert.Equal(t, "a/a", table.Class("com/example/Widget"))
	assert.Equal(t, "c", table.Field("com/example/Widget", "count", "I"))
	assert.Equal(t, "r", table.Method("com/example/Widget", "render", "(F)V"))

	// Wildcard entries match any descriptor; exact entries win over wildcards.
	assert.Equal(t, "x", table.Method("com/example/Widget", "reset", "()V"))
	assert.Equal(t, "x", table.Method("com/example/Widget", "reset", "(I)V"))
}

func TestRenameTable_IdentityFallback(t *testing.T) {
	table := buildTable(t)

	assert.Equal(t, "com/example/Unknown", table.Class("com/example/Unknown"))
	assert.Equal(t, "missing", table.Field("com/example/Widget", "missing", "I"))
	assert.Equal(t, "render", table.Method("com/example/Other", "render", "(F)V"))
}

func TestIdentityTable(t *testing.T) {
	table := domain.IdentityTable("named")

	assert.True(t, table.IsIdentity())
	assert.Equal(t, "com/example/Widget", table.Class("com/example/Widget"))
	assert.Equal(t, "count", table.Field("com/example/Widget", "count", "I"))
}

func TestRenameTableBuilder_RejectsConflicts(t *testing.T) {
	b := domain.NewRenameTableBuilder("named", "runtime")
	require.NoError(t, b.PutClass("com/example/Widget", "a/a"))

	// Re-adding the identical pair is fine.
	require.NoError(t, b.PutClass("com/example/Widget", "a/a"))

	err := b.PutClass("com/example/Widget", "b/b")
	assert.ErrorIs(t, err, domain.ErrAmbiguousRename)

	ref := domain.MemberRef{Owner: "com/example/Widget", Name: "count", Descriptor: "I"}
	require.NoError(t, b.PutField(ref, "c"))
	assert.ErrorIs(t, b.PutField(ref, "d"), domain.ErrAmbiguousRename)

	mref := domain.MemberRef{Owner: "com/example/Widget", Name: "render", Descriptor: "(F)V"}
	require.NoError(t, b.PutMethod(mref, "r"))
	assert.ErrorIs(t, b.PutMethod(mref, "s"), domain.ErrAmbiguousRename)
}

func TestRenameTable_Hash(t *testing.T) {
	a := buildTable(t)
	b := buildTable(t)
	assert.Equal(t, a.Hash(), b.Hash(), "equal tables must fingerprint equally")

	builder := domain.NewRenameTableBuilder("named", "runtime")
	require.NoError(t, builder.PutClass("com/example/Widget", "a/a"))
	c := builder.Build()
	assert.NotEqual(t, a.Hash(), c.Hash())

	// Namespaces are part of the fingerprint.
	d := domain.NewRenameTableBuilder("named", "other").Build()
	e := domain.NewRenameTableBuilder("named", "runtime").Build()
	assert.NotEqual(t, d.Hash(), e.Hash())
}
