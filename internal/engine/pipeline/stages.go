package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/remap/internal/adapters/archive"
	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/format/manifest"
	"go.trai.ch/remap/internal/format/transformer"
	"go.trai.ch/remap/internal/format/widener"
	"go.trai.ch/zerr"
)

// applyWidener either injects an external access widener document or remaps an
// archive-hosted one in place. The two paths are mutually exclusive per run;
// injection wins when both would apply.
func (r *run) applyWidener(context.Context) error {
	if r.spec.InjectWidener != "" {
		return r.injectWidenerDocument()
	}
	return r.remapHostedWidener()
}

func (r *run) injectWidenerDocument() error {
	data, err := os.ReadFile(r.spec.InjectWidener) //nolint:gosec // path comes from the validated spec
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read access widener"), "path", r.spec.InjectWidener)
	}

	remapped, err := widener.Remap(data, r.engine, r.spec.SourceNamespace, r.spec.TargetNamespace)
	if err != nil {
		return err
	}

	name := filepath.Base(r.spec.InjectWidener)
	if err := archive.Add(r.spec.Output, name, remapped); err != nil {
		return err
	}

	count, err := archive.TransformJSON(r.spec.Output, map[string]func(map[string]any) (map[string]any, error){
		domain.ModDescriptorPath: func(obj map[string]any) (map[string]any, error) {
			obj["accessWidener"] = name
			return obj, nil
		},
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return zerr.With(zerr.Wrap(domain.ErrMissingResource, "cannot record injected widener"), "resource", domain.ModDescriptorPath)
	}
	return nil
}

func (r *run) remapHostedWidener() error {
	name, err := r.descriptorString("accessWidener")
	if err != nil || name == "" {
		return err
	}

	data, err := archive.ReadEntry(r.spec.Output, name)
	if err != nil {
		// The descriptor references a widener the archive does not ship.
		return zerr.With(err, "referenced_by", domain.ModDescriptorPath)
	}
	remapped, err := widener.Remap(data, r.engine, r.spec.SourceNamespace, r.spec.TargetNamespace)
	if err != nil {
		return err
	}
	return archive.Replace(r.spec.Output, name, remapped)
}

// injectRefmaps adds a reference map binding to every injection configuration
// that lacks one. Existing bindings are never overwritten, so running the
// stage twice yields the same archive.
func (r *run) injectRefmaps(context.Context) error {
	if len(r.bindings) == 0 {
		return nil
	}

	configs, err := r.injectionConfigs()
	if err != nil {
		return err
	}
	if configs == nil {
		r.log.Warn("no module descriptor in " + filepath.Base(r.spec.Input) + ", skipping reference map injection")
		return nil
	}

	allowed := make(map[string]bool, len(configs))
	for _, c := range configs {
		allowed[c] = true
	}

	transforms := make(map[string]func(map[string]any) (map[string]any, error))
	for _, binding := range r.bindings {
		refmap := binding.RefmapName
		for _, config := range binding.Configs {
			if !allowed[config] {
				continue
			}
			if _, taken := transforms[config]; taken {
				continue
			}
			transforms[config] = func(obj map[string]any) (map[string]any, error) {
				if _, exists := obj["refmap"]; !exists {
					obj["refmap"] = refmap
				}
				return obj, nil
			}
		}
	}
	if len(transforms) == 0 {
		return nil
	}
	_, err = archive.TransformJSON(r.spec.Output, transforms)
	return err
}

// injectionConfigs returns the configuration file list from the module
// descriptor, falling back to the manifest attribute when enabled. A nil
// slice means no source was found at all.
func (r *run) injectionConfigs() ([]string, error) {
	data, err := archive.ReadEntry(r.spec.Output, domain.ModDescriptorPath)
	if err != nil {
		if !errors.Is(err, archive.ErrEntryNotFound) {
			return nil, err
		}
		if !r.spec.ReadConfigsFromManifest {
			return nil, nil
		}
		return r.manifestConfigs()
	}

	var descriptor struct {
		Mixins []any `json:"mixins"`
	}
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse module descriptor"), "entry", domain.ModDescriptorPath)
	}

	configs := make([]string, 0, len(descriptor.Mixins))
	for _, m := range descriptor.Mixins {
		switch v := m.(type) {
		case string:
			configs = append(configs, v)
		case map[string]any:
			if name, ok := v["config"].(string); ok {
				configs = append(configs, name)
			}
		}
	}
	return configs, nil
}

func (r *run) manifestConfigs() ([]string, error) {
	data, err := archive.ReadEntry(r.spec.Output, domain.ManifestPath)
	if err != nil {
		if errors.Is(err, archive.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}
	value := m.Get(domain.InjectionConfigsAttribute)
	if value == "" {
		return []string{}, nil
	}
	parts := strings.Split(value, ",")
	configs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			configs = append(configs, trimmed)
		}
	}
	return configs, nil
}

// embedNested copies dependency archives into the output under the platform's
// convention path, erroring deterministically on target collisions.
func (r *run) embedNested(context.Context) error {
	if len(r.spec.Nested) == 0 {
		return nil
	}

	// Dedupe by source file, then detect target collisions before any write so
	// the failure does not depend on input order.
	seen := make(map[string]bool, len(r.spec.Nested))
	targets := make(map[string]string, len(r.spec.Nested))
	nested := make([]domain.NestedArchive, 0, len(r.spec.Nested))
	for _, n := range r.spec.Nested {
		src := filepath.Clean(n.Path)
		if seen[src] {
			continue
		}
		seen[src] = true

		target := n.TargetPath(r.spec.Platform)
		if prev, dup := targets[target]; dup {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrDuplicateNestedPath, "nested archives collide"), "target", target), "sources", prev+", "+src)
		}
		targets[target] = src
		nested = append(nested, n)
	}

	entries, err := archive.ReadAll(r.spec.Output)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if src, dup := targets[e.Name]; dup {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrDuplicateNestedPath, "existing entry in the way"), "target", e.Name), "source", src)
		}
	}

	for _, n := range nested {
		data, err := os.ReadFile(filepath.Clean(n.Path)) //nolint:gosec // paths come from the validated spec
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read nested archive"), "path", n.Path)
		}
		entries = append(entries, archive.Entry{Name: n.TargetPath(r.spec.Platform), Data: data})
	}
	if err := archive.WriteAll(r.spec.Output, entries); err != nil {
		return err
	}

	if !r.spec.Platform.RequiresListing() {
		return nil
	}
	return r.mergeNestedListing(nested)
}

func (r *run) mergeNestedListing(nested []domain.NestedArchive) error {
	count, err := archive.TransformJSON(r.spec.Output, map[string]func(map[string]any) (map[string]any, error){
		domain.ModDescriptorPath: func(obj map[string]any) (map[string]any, error) {
			listing, _ := obj["jars"].([]any)
			listed := make(map[string]bool, len(listing))
			for _, item := range listing {
				if entry, ok := item.(map[string]any); ok {
					if file, ok := entry["file"].(string); ok {
						listed[file] = true
					}
				}
			}
			for _, n := range nested {
				target := n.TargetPath(r.spec.Platform)
				if listed[target] {
					continue
				}
				item := map[string]any{"file": target}
				if n.DisplayName != "" {
					item["name"] = n.DisplayName
				}
				listing = append(listing, item)
			}
			obj["jars"] = listing
			return obj, nil
		},
	})
	if err != nil {
		return err
	}
	if count == 0 {
		r.log.Warn("no module descriptor to record nested archives in")
	}
	return nil
}

// convertWideners merges the designated archive-hosted widener documents,
// remaps the merged set and writes a single access transformer resource,
// removing the consumed documents. A pre-existing transformer resource is a
// hard error; hand-authored data is never overwritten.
func (r *run) convertWideners(context.Context) error {
	if len(r.spec.ConvertWideners) == 0 {
		return nil
	}

	exists, err := archive.HasEntry(r.spec.Output, domain.TransformResourcePath)
	if err != nil {
		return err
	}
	if exists {
		return zerr.With(zerr.Wrap(domain.ErrTransformExists, "refusing to overwrite"), "resource", domain.TransformResourcePath)
	}

	set := domain.NewTransformSet()
	for _, name := range r.spec.ConvertWideners {
		data, err := archive.ReadEntry(r.spec.Output, name)
		if err != nil {
			if errors.Is(err, archive.ErrEntryNotFound) {
				return zerr.With(zerr.Wrap(domain.ErrWidenerNotFound, "conversion input missing"), "entry", name)
			}
			return err
		}
		doc, err := widener.Parse(data)
		if err != nil {
			return zerr.With(err, "entry", name)
		}
		if doc.Namespace != r.spec.SourceNamespace {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrNamespaceMismatch, "widener namespace"), "document", doc.Namespace), "expected", r.spec.SourceNamespace)
		}
		transformer.Accumulate(set, doc)
	}

	if err := archive.Delete(r.spec.Output, r.spec.ConvertWideners...); err != nil {
		return err
	}
	remapped := set.Remap(r.engine)
	return archive.Add(r.spec.Output, domain.TransformResourcePath, transformer.Serialize(remapped))
}

// patchManifest applies the caller-supplied attributes plus the mandatory
// target namespace attribute. The manifest resource must exist.
func (r *run) patchManifest(context.Context) error {
	count, err := archive.Transform(r.spec.Output, map[string]func([]byte) ([]byte, error){
		domain.ManifestPath: func(data []byte) ([]byte, error) {
			m, err := manifest.Parse(data)
			if err != nil {
				return nil, err
			}
			for key, value := range r.spec.Manifest {
				m.Set(key, value)
			}
			m.Set(domain.MappingNamespaceAttribute, r.spec.TargetNamespace)
			return m.Bytes(), nil
		},
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return zerr.With(zerr.Wrap(domain.ErrMissingResource, "cannot patch manifest"), "resource", domain.ManifestPath)
	}
	return nil
}

// descriptorString reads one string value from the module descriptor, or ""
// when the descriptor or the key is absent.
func (r *run) descriptorString(key string) (string, error) {
	data, err := archive.ReadEntry(r.spec.Output, domain.ModDescriptorPath)
	if err != nil {
		if errors.Is(err, archive.ErrEntryNotFound) {
			return "", nil
		}
		return "", err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to parse module descriptor"), "entry", domain.ModDescriptorPath)
	}
	value, _ := obj[key].(string)
	return value, nil
}
