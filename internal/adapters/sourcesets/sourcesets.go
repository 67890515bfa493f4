// Package sourcesets infers reference map bindings from project source sets.
package sourcesets

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultConfigPattern matches injection configuration file names when a
// source set does not declare its own pattern.
const DefaultConfigPattern = "*.mixins.json"

// Resolver implements ports.SourceSetResolver by scanning resource roots on
// disk for injection configuration files.
type Resolver struct {
	log ports.Logger
}

var _ ports.SourceSetResolver = (*Resolver)(nil)

// NewResolver creates a source set resolver.
func NewResolver(log ports.Logger) *Resolver {
	return &Resolver{log: log}
}

// ResolveBindings scans every source set's resource roots and pairs the
// configuration files found there with the set's reference map. Roots that do
// not exist are skipped; generated resource directories only appear after
// their producing step has run.
func (r *Resolver) ResolveBindings(ctx context.Context, sets []domain.SourceSetSpec) ([]domain.ReferenceMapBinding, error) {
	var bindings []domain.ReferenceMapBinding
	for _, set := range sets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if set.RefmapName == "" {
			continue
		}

		configs, err := r.scan(set)
		if err != nil {
			return nil, zerr.With(err, "source_set", set.Name)
		}
		if len(configs) == 0 {
			continue
		}
		bindings = append(bindings, domain.ReferenceMapBinding{
			Configs:    configs,
			RefmapName: set.RefmapName,
		})
	}
	return bindings, nil
}

func (r *Resolver) scan(set domain.SourceSetSpec) ([]string, error) {
	pattern := set.ConfigPattern
	if pattern == "" {
		pattern = DefaultConfigPattern
	}

	seen := map[string]bool{}
	for _, root := range set.ResourceRoots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			r.log.Warn("resource root " + root + " does not exist, skipping")
			continue
		}

		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			match, err := path.Match(pattern, d.Name())
			if err != nil || !match {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			// Config names are archive entry paths, always forward-slashed.
			seen[filepath.ToSlash(rel)] = true
			return nil
		})
		if err != nil {
			return nil, zerr.Wrap(err, "failed to scan resource root")
		}
	}

	configs := make([]string, 0, len(seen))
	for name := range seen {
		configs = append(configs, name)
	}
	sort.Strings(configs)
	return configs, nil
}
