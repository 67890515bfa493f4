package commands_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/remap/cmd/remap/commands"
	"go.trai.ch/remap/internal/adapters/archive"
	"go.trai.ch/remap/internal/adapters/config"
	"go.trai.ch/remap/internal/adapters/logger"
	"go.trai.ch/remap/internal/adapters/mappings"
	"go.trai.ch/remap/internal/adapters/sourcesets"
	"go.trai.ch/remap/internal/adapters/telemetry"
	"go.trai.ch/remap/internal/app"
	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/engine/pipeline"
	"go.trai.ch/remap/internal/engine/registry"
	"go.trai.ch/remap/internal/engine/scheduler"
)

// newCLI wires a fully functional CLI against real adapters.
func newCLI() *commands.CLI {
	log := logger.New()
	log.SetOutput(io.Discard)

	reg := registry.New()
	pipe := pipeline.New(reg, log, telemetry.NewNoOpTracer())
	sched := scheduler.NewScheduler(reg, pipe, mappings.NewSource(log), sourcesets.NewResolver(log), log)

	return commands.New(app.New(config.NewLoader(log), sched))
}

func TestVersionCommand(t *testing.T) {
	cli := newCLI()
	cli.SetArgs([]string{"version"})
	assert.NoError(t, cli.Execute(context.Background()))
}

func TestRunCommand_MissingConfig(t *testing.T) {
	cli := newCLI()
	cli.SetArgs([]string{"run", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, cli.Execute(context.Background()))
}

func TestRunCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "widget.jar")
	require.NoError(t, archive.WriteAll(input, []archive.Entry{
		{Name: domain.ManifestPath, Data: []byte("Manifest-Version: 1.0\r\n\r\n")},
	}))

	mappingsPath := filepath.Join(dir, "mappings.tsv")
	require.NoError(t, os.WriteFile(mappingsPath,
		[]byte("mappings\tv1\tintermediary\tnamed\nclass\ta/Widget\tcom/example/Widget\n"), 0o600))

	output := filepath.Join(dir, "widget-named.jar")
	configPath := filepath.Join(dir, "remap.yaml")
	configYAML := "version: 1\n" +
		"mappings: " + mappingsPath + "\n" +
		"namespaces:\n" +
		"  source: intermediary\n" +
		"  target: named\n" +
		"archives:\n" +
		"  - name: widget\n" +
		"    input: " + input + "\n" +
		"    output: " + output + "\n" +
		"    platform: fabric\n"
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o600))

	cli := newCLI()
	cli.SetArgs([]string{"run", "--config", configPath, "widget"})
	require.NoError(t, cli.Execute(context.Background()))

	data, err := archive.ReadEntry(output, domain.ManifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Mapping-Namespace: named")
}

func TestRunCommand_UnknownArchive(t *testing.T) {
	dir := t.TempDir()

	mappingsPath := filepath.Join(dir, "mappings.tsv")
	require.NoError(t, os.WriteFile(mappingsPath,
		[]byte("mappings\tv1\tnamed\tnamed\n"), 0o600))

	configPath := filepath.Join(dir, "remap.yaml")
	configYAML := "version: 1\n" +
		"mappings: " + mappingsPath + "\n" +
		"namespaces:\n" +
		"  source: named\n" +
		"  target: named\n" +
		"archives:\n" +
		"  - name: widget\n" +
		"    input: " + filepath.Join(dir, "in.jar") + "\n" +
		"    output: " + filepath.Join(dir, "out.jar") + "\n" +
		"    platform: fabric\n"
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o600))

	cli := newCLI()
	cli.SetArgs([]string{"run", "--config", configPath, "nonexistent"})
	assert.Error(t, cli.Execute(context.Background()))
}
