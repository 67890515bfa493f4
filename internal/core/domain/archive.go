package domain

import (
	"path"
	"strings"

	"go.trai.ch/zerr"
)

// Conventional resource paths inside a mod archive.
const (
	// ManifestPath is the jar manifest resource every archive must carry.
	ManifestPath = "META-INF/MANIFEST.MF"
	// ModDescriptorPath is the JSON module descriptor carrying the access
	// widener name, the injection configuration list and the nested jar listing.
	ModDescriptorPath = "mod.json"
	// TransformResourcePath is where the converted access transformer is written.
	TransformResourcePath = "META-INF/accesstransformer.cfg"
	// MappingNamespaceAttribute is the mandatory manifest attribute recording
	// which namespace the archive was remapped to.
	MappingNamespaceAttribute = "Mapping-Namespace"
	// InjectionConfigsAttribute is the manifest fallback listing injection
	// configuration files when no module descriptor is present.
	InjectionConfigsAttribute = "Injection-Configs"
)

// Platform selects platform-specific embedding behavior for nested archives.
type Platform string

const (
	// PlatformFabric nests archives under META-INF/jars and requires an
	// explicit listing in the module descriptor.
	PlatformFabric Platform = "fabric"
	// PlatformForge nests archives under META-INF/jarjar; the loader discovers
	// them by path convention alone.
	PlatformForge Platform = "forge"
)

// ParsePlatform converts a config string into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(s)) {
	case PlatformFabric:
		return PlatformFabric, nil
	case PlatformForge:
		return PlatformForge, nil
	default:
		return "", zerr.With(zerr.Wrap(ErrUnknownPlatform, "failed to parse"), "platform", s)
	}
}

// NestedDir returns the conventional directory nested archives are copied into.
func (p Platform) NestedDir() string {
	if p == PlatformForge {
		return "META-INF/jarjar/"
	}
	return "META-INF/jars/"
}

// RequiresListing reports whether the platform needs an explicit nested jar
// listing merged into the module descriptor.
func (p Platform) RequiresListing() bool { return p == PlatformFabric }

// NestedArchive describes one dependency archive to embed into the output.
type NestedArchive struct {
	// Path is the archive file on disk.
	Path string
	// DisplayName is an optional human-readable name for listing metadata.
	DisplayName string
}

// TargetPath returns the entry name the archive is embedded under.
func (n NestedArchive) TargetPath(platform Platform) string {
	return platform.NestedDir() + path.Base(n.Path)
}

// ManifestPatch is a set of main-section manifest attributes to apply.
type ManifestPatch map[string]string

// ArchiveSpec describes one pipeline invocation: which archive to read, where
// to write the result, and every optional stage input. Immutable per run.
type ArchiveSpec struct {
	// Name identifies the spec in config and CLI arguments.
	Name string
	// Input and Output are the archive paths on disk.
	Input  string
	Output string

	SourceNamespace string
	TargetNamespace string
	// Classpath lists archives consulted for inherited member resolution.
	Classpath []string

	Platform Platform
	Nested   []NestedArchive

	// InjectWidener is an on-disk access widener document to remap and add to
	// the output. Mutually exclusive with in-place remapping of an archive-hosted
	// widener, which happens whenever this is empty and the descriptor names one.
	InjectWidener string
	// ConvertWideners lists archive-hosted widener entry names to merge,
	// convert to an access transformer and remove from the output.
	ConvertWideners []string

	// ClientOnlyClasses lists class internal names to mark as restricted to the
	// client environment.
	ClientOnlyClasses []string

	// Manifest holds caller-supplied attributes applied during the manifest patch.
	Manifest ManifestPatch

	// ReadConfigsFromManifest enables the manifest-attribute fallback for
	// discovering injection configuration files.
	ReadConfigsFromManifest bool
}

// Validate checks the invariants a spec must satisfy before a run starts.
func (s ArchiveSpec) Validate() error {
	if s.Input == "" {
		return zerr.With(zerr.New("archive spec has no input"), "name", s.Name)
	}
	if s.Output == "" {
		return zerr.With(zerr.New("archive spec has no output"), "name", s.Name)
	}
	if s.Input == s.Output {
		return zerr.With(zerr.New("archive spec input and output are the same path"), "name", s.Name)
	}
	if s.SourceNamespace == "" || s.TargetNamespace == "" {
		return zerr.With(zerr.New("archive spec is missing a namespace"), "name", s.Name)
	}
	if _, err := ParsePlatform(string(s.Platform)); err != nil {
		return err
	}
	return nil
}

// ReferenceMapBinding pairs injection configuration files with the reference
// map resource they resolve renamed symbols through.
type ReferenceMapBinding struct {
	Configs    []string
	RefmapName string
}

// SourceSetSpec describes one project source set whose resource roots are
// scanned to infer reference map bindings.
type SourceSetSpec struct {
	Name          string
	ResourceRoots []string
	RefmapName    string
	// ConfigPattern matches injection configuration file names, e.g. "*.mixins.json".
	ConfigPattern string
}

// Batch is a fully loaded configuration: the shared rename inputs plus one
// spec per archive to remap.
type Batch struct {
	MappingsFile    string
	SourceNamespace string
	TargetNamespace string
	Classpath       []string
	Parallelism     int
	SourceSets      []SourceSetSpec
	Archives        []ArchiveSpec
}
