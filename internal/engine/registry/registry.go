// Package registry shares remapping engines across concurrent pipeline runs.
//
// Engines are keyed by their configuration fingerprint. The first acquirer of
// a fingerprint builds the engine; racers wait on the same in-flight
// construction and receive its result or its failure. Handles carry an opaque
// string token so isolated pipeline workers can resolve the same shared
// instance, and the engine is closed when the last holder releases.
package registry

import (
	"context"
	"sync"

	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/engine/remapper"
	"go.trai.ch/zerr"
)

// Builder constructs an engine for a config. Swappable for tests.
type Builder func(ctx context.Context, cfg remapper.Config) (*remapper.Engine, error)

// Registry is a process-wide engine table. The zero value is not usable; use New.
type Registry struct {
	build Builder

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	ready  chan struct{}
	engine *remapper.Engine
	err    error
	refs   int
}

// New creates a registry building real engines.
func New() *Registry {
	return NewWithBuilder(remapper.New)
}

// NewWithBuilder creates a registry with a custom engine builder.
func NewWithBuilder(build Builder) *Registry {
	return &Registry{build: build, entries: make(map[string]*entry)}
}

// Handle is one consumer's reference to a shared engine.
type Handle struct {
	token    string
	engine   *remapper.Engine
	registry *Registry

	releaseOnce sync.Once
}

// Token returns the opaque identifier any worker can resolve back to the same
// engine while at least one handle is held.
func (h *Handle) Token() string { return h.token }

// Engine returns the shared engine.
func (h *Handle) Engine() *remapper.Engine { return h.engine }

// Release gives up this handle's reference. The engine is closed when the
// last reference is released. Releasing twice is a no-op.
func (h *Handle) Release() {
	h.releaseOnce.Do(func() {
		h.registry.release(h.token)
	})
}

// Acquire returns a handle for the config's fingerprint, building the engine
// at most once per fingerprint even under concurrent acquisition. When
// construction fails every waiter receives the same failure and the
// fingerprint is evicted so a later call can retry.
func (r *Registry) Acquire(ctx context.Context, cfg remapper.Config) (*Handle, error) {
	token := cfg.Fingerprint()

	r.mu.Lock()
	e, ok := r.entries[token]
	if ok {
		e.refs++
		r.mu.Unlock()
		return r.wait(ctx, token, e)
	}

	e = &entry{ready: make(chan struct{}), refs: 1}
	r.entries[token] = e
	r.mu.Unlock()

	engine, err := r.build(ctx, cfg)

	r.mu.Lock()
	e.engine, e.err = engine, err
	close(e.ready)
	if err != nil {
		if r.entries[token] == e {
			delete(r.entries, token)
		}
		r.mu.Unlock()
		return nil, err
	}
	if e.refs <= 0 {
		// every waiter gave up while we were building
		if r.entries[token] == e {
			delete(r.entries, token)
		}
		r.mu.Unlock()
		_ = engine.Close()
		return nil, zerr.Wrap(context.Canceled, "engine acquisition canceled")
	}
	r.mu.Unlock()

	return &Handle{token: token, engine: engine, registry: r}, nil
}

// Resolve returns a handle for an already-acquired token. It fails once the
// last holder has released the engine.
func (r *Registry) Resolve(token string) (*Handle, error) {
	r.mu.Lock()
	e, ok := r.entries[token]
	if !ok {
		r.mu.Unlock()
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownEngineToken, "failed to resolve handle"), "token", token)
	}
	e.refs++
	r.mu.Unlock()

	return r.wait(context.Background(), token, e)
}

func (r *Registry) wait(ctx context.Context, token string, e *entry) (*Handle, error) {
	select {
	case <-e.ready:
	case <-ctx.Done():
		r.release(token)
		return nil, zerr.Wrap(ctx.Err(), "engine acquisition canceled")
	}
	if e.err != nil {
		// the builder already evicted the entry
		return nil, e.err
	}
	return &Handle{token: token, engine: e.engine, registry: r}, nil
}

func (r *Registry) release(token string) {
	r.mu.Lock()
	e, ok := r.entries[token]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.entries, token)
	engine := e.engine
	r.mu.Unlock()

	if engine != nil {
		_ = engine.Close()
	}
}
