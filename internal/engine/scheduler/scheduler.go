// Package scheduler coordinates a batch of archive remaps.
//
// The scheduler loads the rename table once, resolves reference map bindings
// once, and fans archive specs out to a bounded worker pool. Specs sharing a
// classpath share one remapping engine through the registry; each input is
// primed into its engine exactly once, no matter how many workers race.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/core/ports"
	"go.trai.ch/remap/internal/engine/pipeline"
	"go.trai.ch/remap/internal/engine/registry"
	"go.trai.ch/remap/internal/engine/remapper"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ArchiveStatus represents the state of one archive spec within a batch run.
type ArchiveStatus string

const (
	// StatusPending indicates the archive is waiting for a worker.
	StatusPending ArchiveStatus = "Pending"
	// StatusRunning indicates the archive is being remapped.
	StatusRunning ArchiveStatus = "Running"
	// StatusCompleted indicates the archive finished successfully.
	StatusCompleted ArchiveStatus = "Completed"
	// StatusFailed indicates the remap failed.
	StatusFailed ArchiveStatus = "Failed"
)

// Scheduler runs batches of archive remaps.
type Scheduler struct {
	registry *registry.Registry
	pipeline *pipeline.Pipeline
	mappings ports.MappingSource
	resolver ports.SourceSetResolver
	log      ports.Logger

	mu     sync.RWMutex
	status map[string]ArchiveStatus
}

// NewScheduler creates a scheduler.
func NewScheduler(
	reg *registry.Registry,
	pipe *pipeline.Pipeline,
	mappings ports.MappingSource,
	resolver ports.SourceSetResolver,
	log ports.Logger,
) *Scheduler {
	return &Scheduler{
		registry: reg,
		pipeline: pipe,
		mappings: mappings,
		resolver: resolver,
		log:      log,
		status:   make(map[string]ArchiveStatus),
	}
}

// Status returns the recorded state of a named archive spec.
func (s *Scheduler) Status(name string) ArchiveStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[name]
}

func (s *Scheduler) setStatus(name string, status ArchiveStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[name] = status
}

// Run remaps the named archives of the batch, or every archive when names is
// empty. The first failure cancels outstanding work at the next stage boundary.
func (s *Scheduler) Run(ctx context.Context, batch *domain.Batch, names []string) error {
	specs, err := selectSpecs(batch, names)
	if err != nil {
		return err
	}
	if err := checkOutputs(specs); err != nil {
		return err
	}
	for _, spec := range specs {
		s.setStatus(spec.Name, StatusPending)
	}

	table, err := s.mappings.Load(ctx, batch.MappingsFile, batch.SourceNamespace, batch.TargetNamespace)
	if err != nil {
		return zerr.Wrap(err, "failed to load mappings")
	}
	bindings, err := s.resolver.ResolveBindings(ctx, batch.SourceSets)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve reference map bindings")
	}

	parallelism := batch.Parallelism
	if parallelism == 0 {
		parallelism = runtime.NumCPU()
	}

	primer := newPrimer()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for _, spec := range specs {
		g.Go(func() error {
			s.setStatus(spec.Name, StatusRunning)
			if err := s.runOne(ctx, spec, table, bindings, primer); err != nil {
				s.setStatus(spec.Name, StatusFailed)
				return err
			}
			s.setStatus(spec.Name, StatusCompleted)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info(fmt.Sprintf("remapped %d archives", len(specs)))
	return nil
}

func (s *Scheduler) runOne(
	ctx context.Context,
	spec domain.ArchiveSpec,
	table *domain.RenameTable,
	bindings []domain.ReferenceMapBinding,
	primer *primer,
) error {
	handle, err := s.registry.Acquire(ctx, remapper.Config{
		Table:     table,
		Classpath: spec.Classpath,
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to acquire remapping engine"), "archive", spec.Name)
	}
	defer handle.Release()

	if err := primer.prime(handle, spec.Input); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to prime engine"), "archive", spec.Name)
	}

	return s.pipeline.Run(ctx, spec, pipeline.RunOptions{
		EngineToken: handle.Token(),
		SkipPrepare: true,
		Bindings:    bindings,
	})
}

// selectSpecs picks the requested archive specs, preserving batch order.
func selectSpecs(batch *domain.Batch, names []string) ([]domain.ArchiveSpec, error) {
	if len(names) == 0 {
		if len(batch.Archives) == 0 {
			return nil, zerr.New("batch has no archive specs")
		}
		return batch.Archives, nil
	}

	byName := make(map[string]domain.ArchiveSpec, len(batch.Archives))
	for _, spec := range batch.Archives {
		byName[spec.Name] = spec
	}

	specs := make([]domain.ArchiveSpec, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		spec, ok := byName[name]
		if !ok {
			return nil, zerr.With(zerr.New("unknown archive name"), "name", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

// checkOutputs rejects batches where two specs would write the same file.
func checkOutputs(specs []domain.ArchiveSpec) error {
	outputs := make(map[string]string, len(specs))
	for _, spec := range specs {
		if first, dup := outputs[spec.Output]; dup {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrDuplicateOutput, "specs write the same file"), "output", spec.Output), "archives", first+", "+spec.Name)
		}
		outputs[spec.Output] = spec.Name
	}
	return nil
}

// primer makes sure each input archive is indexed into a given engine exactly
// once across the worker pool.
type primer struct {
	mu   sync.Mutex
	once map[string]*primeEntry
}

type primeEntry struct {
	once sync.Once
	err  error
}

func newPrimer() *primer {
	return &primer{once: make(map[string]*primeEntry)}
}

func (p *primer) prime(handle *registry.Handle, input string) error {
	key := handle.Token() + "\x00" + input

	p.mu.Lock()
	e, ok := p.once[key]
	if !ok {
		e = &primeEntry{}
		p.once[key] = e
	}
	p.mu.Unlock()

	e.once.Do(func() {
		e.err = handle.Engine().Prime(input)
	})
	return e.err
}
