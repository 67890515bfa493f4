// Package pipeline orchestrates the remap of one archive: prepare, remap,
// client-only marking, access widener handling, reference map injection,
// nested archive embedding, widener conversion, manifest patching and the
// reproducibility rewrite, strictly in that order.
//
// A failure at any stage aborts the run, deletes the partially written output
// and surfaces an error naming the stage. No stage partially commits: every
// archive mutation goes through the atomic rewrite in the archive adapter.
package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"

	"go.trai.ch/remap/internal/adapters/archive"
	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/core/ports"
	"go.trai.ch/remap/internal/engine/registry"
	"go.trai.ch/remap/internal/engine/remapper"
	"go.trai.ch/zerr"
)

// Pipeline runs archive remaps against engines resolved through the registry.
type Pipeline struct {
	registry *registry.Registry
	log      ports.Logger
	tracer   ports.Tracer
}

// New creates a pipeline service.
func New(reg *registry.Registry, log ports.Logger, tracer ports.Tracer) *Pipeline {
	return &Pipeline{registry: reg, log: log, tracer: tracer}
}

// RunOptions carries per-run inputs that are not part of the archive spec.
type RunOptions struct {
	// EngineToken identifies the shared engine to resolve.
	EngineToken string
	// SkipPrepare marks that a coordinated prepare pass already primed the
	// engine with this run's input.
	SkipPrepare bool
	// Bindings are the project's reference map bindings.
	Bindings []domain.ReferenceMapBinding
}

type stage struct {
	name string
	fn   func(context.Context) error
}

// Run executes the full stage sequence for one archive spec.
func (p *Pipeline) Run(ctx context.Context, spec domain.ArchiveSpec, opts RunOptions) (err error) {
	if err := spec.Validate(); err != nil {
		return err
	}

	handle, err := p.registry.Resolve(opts.EngineToken)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to resolve remapping engine"), "archive", spec.Name)
	}
	defer handle.Release()

	r := &run{
		spec:     spec,
		engine:   handle.Engine(),
		bindings: opts.Bindings,
		log:      p.log,
	}

	defer func() {
		if err != nil {
			r.discardOutput()
		}
	}()

	stages := []stage{
		{"prepare", func(ctx context.Context) error {
			if opts.SkipPrepare {
				return nil
			}
			return r.engine.Prime(spec.Input)
		}},
		{"remap", r.remap},
		{"mark-client-only", r.markClientOnly},
		{"access-widener", r.applyWidener},
		{"refmap-injection", r.injectRefmaps},
		{"nested-archives", r.embedNested},
		{"widener-conversion", r.convertWideners},
		{"manifest-patch", r.patchManifest},
		{"finalize", r.finalize},
	}

	for _, st := range stages {
		// Cancellation is honored at stage boundaries only; a stage that has
		// started always finishes or fails on its own terms.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zerr.With(zerr.Wrap(ctxErr, "run canceled"), "archive", spec.Name)
		}

		spanCtx, span := p.tracer.Start(ctx, spec.Name+"/"+st.name)
		stageErr := st.fn(spanCtx)
		if stageErr != nil {
			span.RecordError(stageErr)
			span.End()
			return zerr.With(
				zerr.With(zerr.Wrap(stageErr, "pipeline stage failed"), "stage", st.name),
				"archive", spec.Name,
			)
		}
		span.End()
	}
	return nil
}

type run struct {
	spec     domain.ArchiveSpec
	engine   *remapper.Engine
	bindings []domain.ReferenceMapBinding
	log      ports.Logger
}

func (r *run) discardOutput() {
	if err := os.Remove(r.spec.Output); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn("failed to delete partial output: " + err.Error())
	}
}

// remap streams every class record through the engine into the output
// archive, copying all other resources verbatim. With identical namespaces
// the stage degenerates to a byte-identical copy.
func (r *run) remap(context.Context) error {
	if r.engine.Table().IsIdentity() {
		return archive.CopyFile(r.spec.Input, r.spec.Output)
	}

	entries, err := archive.ReadAll(r.spec.Input)
	if err != nil {
		return err
	}
	for i := range entries {
		if !strings.HasSuffix(entries[i].Name, ".class") {
			continue
		}
		data, err := r.engine.Remap(entries[i].Data)
		if err != nil {
			return zerr.With(err, "entry", entries[i].Name)
		}
		entries[i].Data = data
		name := strings.TrimSuffix(entries[i].Name, ".class")
		entries[i].Name = r.engine.Class(name) + ".class"
	}
	return archive.WriteAll(r.spec.Output, entries)
}

func (r *run) markClientOnly(context.Context) error {
	if len(r.spec.ClientOnlyClasses) == 0 {
		return nil
	}
	// Class names in the spec are written in the source namespace; the remap
	// stage has already renamed the entries by this point.
	transforms := make(map[string]func([]byte) ([]byte, error), len(r.spec.ClientOnlyClasses))
	for _, name := range r.spec.ClientOnlyClasses {
		transforms[r.engine.Class(name)+".class"] = r.engine.MarkClientOnly
	}
	count, err := archive.Transform(r.spec.Output, transforms)
	if err != nil {
		return err
	}
	if count < len(transforms) {
		r.log.Warn("some client-only classes are not present in the archive")
	}
	return nil
}

func (r *run) finalize(context.Context) error {
	return archive.Normalize(r.spec.Output)
}
