// Package config loads batch configuration files.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/core/ports"
	"go.trai.ch/zerr"
)

// FileName is the conventional name of the batch configuration file.
const FileName = "remap.yaml"

// envPrefix namespaces environment overrides, e.g. REMAP_PARALLELISM.
const envPrefix = "REMAP_"

// supportedVersion is the only config schema version this loader understands.
const supportedVersion = 1

// Loader implements ports.ConfigLoader on koanf, layering environment
// variables over the YAML file.
type Loader struct {
	log ports.Logger
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a config loader.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads and validates the batch configuration at path.
func (l *Loader) Load(path string) (*domain.Batch, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, zerr.Wrap(err, "failed to load environment overrides")
	}

	var raw batchFile
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
	}

	batch, err := toBatch(raw)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	l.log.Info(fmt.Sprintf("loaded %d archive specs from %s", len(batch.Archives), path))
	return batch, nil
}

func toBatch(raw batchFile) (*domain.Batch, error) {
	if raw.Version != supportedVersion {
		return nil, zerr.With(zerr.New("unsupported config version"), "version", raw.Version)
	}
	if raw.Mappings == "" {
		return nil, zerr.New("config names no mappings file")
	}
	if raw.Namespaces.Source == "" || raw.Namespaces.Target == "" {
		return nil, zerr.New("config is missing a namespace")
	}
	if raw.Parallelism < 0 {
		return nil, zerr.With(zerr.New("parallelism must not be negative"), "parallelism", raw.Parallelism)
	}

	batch := &domain.Batch{
		MappingsFile:    raw.Mappings,
		SourceNamespace: raw.Namespaces.Source,
		TargetNamespace: raw.Namespaces.Target,
		Classpath:       raw.Classpath,
		Parallelism:     raw.Parallelism,
	}

	for _, set := range raw.SourceSets {
		batch.SourceSets = append(batch.SourceSets, domain.SourceSetSpec{
			Name:          set.Name,
			ResourceRoots: set.ResourceRoots,
			RefmapName:    set.Refmap,
			ConfigPattern: set.ConfigPattern,
		})
	}

	names := make(map[string]bool, len(raw.Archives))
	for _, a := range raw.Archives {
		if names[a.Name] {
			return nil, zerr.With(zerr.New("duplicate archive name"), "name", a.Name)
		}
		names[a.Name] = true

		spec, err := toArchiveSpec(a, batch)
		if err != nil {
			return nil, err
		}
		batch.Archives = append(batch.Archives, spec)
	}
	return batch, nil
}

func toArchiveSpec(a archiveDTO, batch *domain.Batch) (domain.ArchiveSpec, error) {
	platform, err := domain.ParsePlatform(a.Platform)
	if err != nil {
		return domain.ArchiveSpec{}, zerr.With(err, "archive", a.Name)
	}

	// Per-archive classpath entries extend the shared one.
	classpath := make([]string, 0, len(batch.Classpath)+len(a.Classpath))
	classpath = append(classpath, batch.Classpath...)
	classpath = append(classpath, a.Classpath...)

	spec := domain.ArchiveSpec{
		Name:                    a.Name,
		Input:                   a.Input,
		Output:                  a.Output,
		SourceNamespace:         batch.SourceNamespace,
		TargetNamespace:         batch.TargetNamespace,
		Classpath:               classpath,
		Platform:                platform,
		InjectWidener:           a.InjectWidener,
		ConvertWideners:         a.ConvertWideners,
		ClientOnlyClasses:       a.ClientOnlyClasses,
		Manifest:                domain.ManifestPatch(a.Manifest),
		ReadConfigsFromManifest: a.ReadConfigsFromManifest,
	}
	for _, n := range a.Nested {
		spec.Nested = append(spec.Nested, domain.NestedArchive{Path: n.Path, DisplayName: n.Name})
	}

	if err := spec.Validate(); err != nil {
		return domain.ArchiveSpec{}, err
	}
	return spec, nil
}
