package pipeline_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/remap/internal/adapters/archive"
	"go.trai.ch/remap/internal/adapters/logger"
	"go.trai.ch/remap/internal/adapters/telemetry"
	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/engine/classfile"
	"go.trai.ch/remap/internal/engine/pipeline"
	"go.trai.ch/remap/internal/engine/registry"
	"go.trai.ch/remap/internal/engine/remapper"
)

const testManifest = "Manifest-Version: 1.0\r\n\r\n"

type fixture struct {
	pipeline *pipeline.Pipeline
	registry *registry.Registry
	handle   *registry.Handle
}

// newFixture builds a pipeline backed by a real registry and a freshly
// acquired engine for the given table.
func newFixture(t *testing.T, table *domain.RenameTable) *fixture {
	t.Helper()

	log := logger.New()
	log.SetOutput(io.Discard)

	reg := registry.New()
	handle, err := reg.Acquire(context.Background(), remapper.Config{Table: table})
	require.NoError(t, err)
	t.Cleanup(handle.Release)

	return &fixture{
		pipeline: pipeline.New(reg, log, telemetry.NewNoOpTracer()),
		registry: reg,
		handle:   handle,
	}
}

func identityTable(t *testing.T) *domain.RenameTable {
	t.Helper()
	return domain.NewRenameTableBuilder("named", "named").Build()
}

func writeInput(t *testing.T, dir string, entries ...archive.Entry) string {
	t.Helper()
	path := filepath.Join(dir, "input.jar")
	require.NoError(t, archive.WriteAll(path, entries))
	return path
}

func classRecord(t *testing.T, name string) []byte {
	t.Helper()
	f := &classfile.File{
		Major: 52,
		Pool: []classfile.Const{
			{},
			{Tag: classfile.TagUTF8, Str: name},
			{Tag: classfile.TagClass, A: 1},
		},
		This: 2,
	}
	data, err := f.Bytes()
	require.NoError(t, err)
	return data
}

func baseSpec(input, output string) domain.ArchiveSpec {
	return domain.ArchiveSpec{
		Name:            "widget",
		Input:           input,
		Output:          output,
		SourceNamespace: "named",
		TargetNamespace: "named",
		Platform:        domain.PlatformFabric,
	}
}

func (f *fixture) run(t *testing.T, spec domain.ArchiveSpec, opts pipeline.RunOptions) error {
	t.Helper()
	if opts.EngineToken == "" {
		opts.EngineToken = f.handle.Token()
	}
	opts.SkipPrepare = true
	return f.pipeline.Run(context.Background(), spec, opts)
}

func TestRun_Reproducible(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)})
	f := newFixture(t, identityTable(t))

	first := baseSpec(input, filepath.Join(dir, "out1.jar"))
	second := baseSpec(input, filepath.Join(dir, "out2.jar"))
	require.NoError(t, f.run(t, first, pipeline.RunOptions{}))
	require.NoError(t, f.run(t, second, pipeline.RunOptions{}))

	a, err := os.ReadFile(first.Output)
	require.NoError(t, err)
	b, err := os.ReadFile(second.Output)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_IdentityKeepsEntryBytes(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: "a/Widget.class", Data: classRecord(t, "a/Widget")},
		archive.Entry{Name: "assets/widget/lang.json", Data: []byte(`{"widget.name":"Widget"}`)},
		archive.Entry{Name: "plain.txt", Data: []byte("untouched")},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	require.NoError(t, f.run(t, spec, pipeline.RunOptions{}))

	before, err := archive.ReadAll(input)
	require.NoError(t, err)
	after, err := archive.ReadAll(spec.Output)
	require.NoError(t, err)

	byName := make(map[string][]byte, len(after))
	for _, e := range after {
		byName[e.Name] = e.Data
	}
	for _, e := range before {
		if e.Name == domain.ManifestPath {
			continue // gains the namespace attribute
		}
		assert.Equal(t, e.Data, byName[e.Name], e.Name)
	}
	assert.Len(t, after, len(before))
}

func TestRun_PatchesManifest(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)})
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.Manifest = domain.ManifestPatch{"Implementation-Title": "widget"}
	require.NoError(t, f.run(t, spec, pipeline.RunOptions{}))

	data, err := archive.ReadEntry(spec.Output, domain.ManifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Mapping-Namespace: named")
	assert.Contains(t, string(data), "Implementation-Title: widget")
}

func TestRun_MissingManifestFails(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, archive.Entry{Name: "a.txt", Data: []byte("no manifest here")})
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	err := f.run(t, spec, pipeline.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrMissingResource)

	// The partial output is discarded on failure.
	_, statErr := os.Stat(spec.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRun_RemapsClassEntries(t *testing.T) {
	b := domain.NewRenameTableBuilder("intermediary", "named")
	require.NoError(t, b.PutClass("a/Widget", "com/example/Widget"))
	f := newFixture(t, b.Build())

	dir := t.TempDir()
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: "a/Widget.class", Data: classRecord(t, "a/Widget")},
	)

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.SourceNamespace = "intermediary"
	require.NoError(t, f.run(t, spec, pipeline.RunOptions{}))

	ok, err := archive.HasEntry(spec.Output, "com/example/Widget.class")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = archive.HasEntry(spec.Output, "a/Widget.class")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_InjectsRefmaps(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: domain.ModDescriptorPath, Data: []byte(`{"id":"widget","mixins":["widget.mixins.json","bound.mixins.json"]}`)},
		archive.Entry{Name: "widget.mixins.json", Data: []byte(`{"package":"com.example.mixin"}`)},
		archive.Entry{Name: "bound.mixins.json", Data: []byte(`{"package":"com.example.mixin","refmap":"existing-refmap.json"}`)},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	opts := pipeline.RunOptions{Bindings: []domain.ReferenceMapBinding{
		{Configs: []string{"widget.mixins.json", "bound.mixins.json"}, RefmapName: "widget-refmap.json"},
	}}
	require.NoError(t, f.run(t, spec, opts))

	data, err := archive.ReadEntry(spec.Output, "widget.mixins.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"refmap": "widget-refmap.json"`)

	// Pre-existing bindings are never overwritten.
	data, err = archive.ReadEntry(spec.Output, "bound.mixins.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "existing-refmap.json")
	assert.NotContains(t, string(data), "widget-refmap.json")
}

func TestRun_RefmapSkipsWithoutDescriptor(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: "widget.mixins.json", Data: []byte(`{"package":"com.example.mixin"}`)},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	opts := pipeline.RunOptions{Bindings: []domain.ReferenceMapBinding{
		{Configs: []string{"widget.mixins.json"}, RefmapName: "widget-refmap.json"},
	}}
	require.NoError(t, f.run(t, spec, opts))

	// No descriptor means no config allow-list, so the binding is ignored.
	data, err := archive.ReadEntry(spec.Output, "widget.mixins.json")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "widget-refmap.json")
}

func TestRun_EmbedsNestedArchives(t *testing.T) {
	dir := t.TempDir()
	depPath := filepath.Join(dir, "dep.jar")
	require.NoError(t, archive.WriteAll(depPath, []archive.Entry{{Name: "d.txt", Data: []byte("dep")}}))

	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: domain.ModDescriptorPath, Data: []byte(`{"id":"widget"}`)},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.Nested = []domain.NestedArchive{
		{Path: depPath, DisplayName: "Dep"},
		{Path: depPath}, // same source listed twice collapses to one copy
	}
	require.NoError(t, f.run(t, spec, pipeline.RunOptions{}))

	ok, err := archive.HasEntry(spec.Output, "META-INF/jars/dep.jar")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := archive.ReadEntry(spec.Output, domain.ModDescriptorPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file": "META-INF/jars/dep.jar"`)
	assert.Contains(t, string(data), `"name": "Dep"`)
}

func TestRun_NestedTargetCollision(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one", "dep.jar")
	two := filepath.Join(dir, "two", "dep.jar")
	require.NoError(t, archive.WriteAll(one, nil))
	require.NoError(t, archive.WriteAll(two, nil))

	input := writeInput(t, dir, archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)})
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.Nested = []domain.NestedArchive{{Path: one}, {Path: two}}

	err := f.run(t, spec, pipeline.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrDuplicateNestedPath)

	_, statErr := os.Stat(spec.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRun_InjectsWidenerDocument(t *testing.T) {
	dir := t.TempDir()
	widenerPath := filepath.Join(dir, "widget.accesswidener")
	require.NoError(t, os.WriteFile(widenerPath, []byte("accessWidener v2 named\naccessible class a/b\n"), 0o600))

	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: domain.ModDescriptorPath, Data: []byte(`{"id":"widget"}`)},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.InjectWidener = widenerPath
	require.NoError(t, f.run(t, spec, pipeline.RunOptions{}))

	ok, err := archive.HasEntry(spec.Output, "widget.accesswidener")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := archive.ReadEntry(spec.Output, domain.ModDescriptorPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"accessWidener": "widget.accesswidener"`)
}

func TestRun_InjectedWidenerDisplacesHosted(t *testing.T) {
	b := domain.NewRenameTableBuilder("intermediary", "named")
	require.NoError(t, b.PutClass("a/Widget", "com/example/Widget"))
	f := newFixture(t, b.Build())

	dir := t.TempDir()
	widenerPath := filepath.Join(dir, "widget.accesswidener")
	require.NoError(t, os.WriteFile(widenerPath, []byte("accessWidener v2 intermediary\naccessible class a/Widget\n"), 0o600))

	hosted := []byte("accessWidener v2 intermediary\nmutable class a/Widget\n")
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: domain.ModDescriptorPath, Data: []byte(`{"id":"widget","accessWidener":"hosted.accesswidener"}`)},
		archive.Entry{Name: "hosted.accesswidener", Data: hosted},
	)

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.SourceNamespace = "intermediary"
	spec.InjectWidener = widenerPath
	require.NoError(t, f.run(t, spec, pipeline.RunOptions{}))

	// Injection wins: only the external document is remapped, the hosted one
	// keeps its original bytes.
	data, err := archive.ReadEntry(spec.Output, "widget.accesswidener")
	require.NoError(t, err)
	assert.Contains(t, string(data), "com/example/Widget")

	data, err = archive.ReadEntry(spec.Output, "hosted.accesswidener")
	require.NoError(t, err)
	assert.Equal(t, hosted, data)

	data, err = archive.ReadEntry(spec.Output, domain.ModDescriptorPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"accessWidener": "widget.accesswidener"`)
	assert.NotContains(t, string(data), "hosted.accesswidener")
}

func TestRun_InjectWidenerNeedsDescriptor(t *testing.T) {
	dir := t.TempDir()
	widenerPath := filepath.Join(dir, "widget.accesswidener")
	require.NoError(t, os.WriteFile(widenerPath, []byte("accessWidener v2 named\n"), 0o600))

	input := writeInput(t, dir, archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)})
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.InjectWidener = widenerPath

	assert.ErrorIs(t, f.run(t, spec, pipeline.RunOptions{}), domain.ErrMissingResource)
}

func TestRun_HostedWidenerMissingEntry(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: domain.ModDescriptorPath, Data: []byte(`{"id":"widget","accessWidener":"gone.accesswidener"}`)},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	assert.ErrorIs(t, f.run(t, spec, pipeline.RunOptions{}), archive.ErrEntryNotFound)
}

func TestRun_ConvertsWideners(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: "widget.accesswidener", Data: []byte("accessWidener v2 named\naccessible class com/example/Widget\nmutable field com/example/Widget count I\n")},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.ConvertWideners = []string{"widget.accesswidener"}
	require.NoError(t, f.run(t, spec, pipeline.RunOptions{}))

	data, err := archive.ReadEntry(spec.Output, domain.TransformResourcePath)
	require.NoError(t, err)
	assert.Equal(t, "public com.example.Widget\ndefault-f com.example.Widget count\n", string(data))

	// The consumed document is removed from the output.
	ok, err := archive.HasEntry(spec.Output, "widget.accesswidener")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_ConvertWidenersRefusesExistingTransformer(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir,
		archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)},
		archive.Entry{Name: domain.TransformResourcePath, Data: []byte("public hand.authored.Class\n")},
		archive.Entry{Name: "widget.accesswidener", Data: []byte("accessWidener v2 named\n")},
	)
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.ConvertWideners = []string{"widget.accesswidener"}

	assert.ErrorIs(t, f.run(t, spec, pipeline.RunOptions{}), domain.ErrTransformExists)
}

func TestRun_ConvertWidenersMissingDocument(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)})
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	spec.ConvertWideners = []string{"absent.accesswidener"}

	assert.ErrorIs(t, f.run(t, spec, pipeline.RunOptions{}), domain.ErrWidenerNotFound)
}

func TestRun_UnknownEngineToken(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, archive.Entry{Name: domain.ManifestPath, Data: []byte(testManifest)})
	f := newFixture(t, identityTable(t))

	spec := baseSpec(input, filepath.Join(dir, "out.jar"))
	err := f.run(t, spec, pipeline.RunOptions{EngineToken: "bogus"})
	assert.ErrorIs(t, err, domain.ErrUnknownEngineToken)
}

func TestRun_InvalidSpec(t *testing.T) {
	f := newFixture(t, identityTable(t))
	err := f.run(t, domain.ArchiveSpec{Name: "broken"}, pipeline.RunOptions{})
	assert.Error(t, err)
}
