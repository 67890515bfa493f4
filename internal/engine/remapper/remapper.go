// Package remapper implements the remapping engine: a rename table paired
// with the class hierarchy of a classpath, able to rewrite individual class
// records with inheritance-aware member resolution.
//
// Engines are expensive to build (the whole classpath is indexed up front) and
// cheap to share: after construction every operation is read-only or
// internally synchronized, so concurrent pipeline runs may use one instance.
package remapper

import (
	stdzip "archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/engine/classfile"
	"go.trai.ch/zerr"
)

// memberCacheSize bounds the resolved-member caches. Hierarchy walks are cheap
// but hot: every member reference in every record resolves through them.
const memberCacheSize = 16384

// Config identifies an engine: the rename table plus the classpath whose
// hierarchy it resolves against.
type Config struct {
	Table     *domain.RenameTable
	Classpath []string
}

// Fingerprint returns the identity under which engines are shared: source and
// target namespace, table contents and classpath, independent of ordering.
func (c Config) Fingerprint() string {
	h := xxhash.New()
	_, _ = h.WriteString(fmt.Sprintf("%016x", c.Table.Hash()))
	_, _ = h.Write([]byte{0})

	paths := make([]string, len(c.Classpath))
	for i, p := range c.Classpath {
		paths[i] = filepath.Clean(p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

type classInfo struct {
	super      string
	interfaces []string
}

// Engine resolves and rewrites symbol references for one Config.
type Engine struct {
	table *domain.RenameTable

	mu      sync.RWMutex
	classes map[string]classInfo
	primed  map[string]struct{}
	closed  bool

	fields  *lru.Cache[domain.MemberRef, string]
	methods *lru.Cache[domain.MemberRef, string]
}

var _ domain.SymbolResolver = (*Engine)(nil)

// New builds an engine by indexing the hierarchy of every classpath archive.
// Unreadable archives fail construction immediately; there is no retry.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	fields, err := lru.New[domain.MemberRef, string](memberCacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create field cache")
	}
	methods, err := lru.New[domain.MemberRef, string](memberCacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create method cache")
	}

	e := &Engine{
		table:   cfg.Table,
		classes: make(map[string]classInfo),
		primed:  make(map[string]struct{}),
		fields:  fields,
		methods: methods,
	}
	for _, path := range cfg.Classpath {
		if err := ctx.Err(); err != nil {
			return nil, zerr.Wrap(err, "engine construction canceled")
		}
		if err := e.index(path); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Table returns the rename table the engine was built with.
func (e *Engine) Table() *domain.RenameTable { return e.table }

// Prime indexes an input archive's own classes so self-referential members
// resolve. Priming the same path twice is a no-op.
func (e *Engine) Prime(path string) error {
	e.mu.RLock()
	_, done := e.primed[filepath.Clean(path)]
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return domain.ErrEngineClosed
	}
	if done {
		return nil
	}
	return e.index(path)
}

func (e *Engine) index(path string) error {
	r, err := stdzip.OpenReader(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open classpath archive"), "path", path)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	found := make(map[string]classInfo)
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return zerr.With(zerr.With(zerr.Wrap(err, "failed to read classpath entry"), "path", path), "entry", f.Name)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return zerr.With(zerr.With(zerr.Wrap(err, "failed to read classpath entry"), "path", path), "entry", f.Name)
		}

		info, name, err := hierarchyOf(data)
		if err != nil {
			return zerr.With(zerr.With(zerr.Wrap(err, "failed to parse classpath entry"), "path", path), "entry", f.Name)
		}
		found[name] = info
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}
	for name, info := range found {
		e.classes[name] = info
	}
	e.primed[filepath.Clean(path)] = struct{}{}
	if len(found) > 0 {
		// Cached resolutions may predate the classes indexed here.
		e.fields.Purge()
		e.methods.Purge()
	}
	return nil
}

func hierarchyOf(data []byte) (classInfo, string, error) {
	f, err := classfile.Parse(data)
	if err != nil {
		return classInfo{}, "", err
	}
	name, err := f.ClassName()
	if err != nil {
		return classInfo{}, "", err
	}
	super, err := f.SuperName()
	if err != nil {
		return classInfo{}, "", err
	}
	interfaces, err := f.InterfaceNames()
	if err != nil {
		return classInfo{}, "", err
	}
	return classInfo{super: super, interfaces: interfaces}, name, nil
}

// Remap rewrites one class record into the target namespace.
func (e *Engine) Remap(data []byte) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	f, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := classfile.Remap(f, e); err != nil {
		return nil, err
	}
	return f.Bytes()
}

// MarkClientOnly injects the client environment marker into a class record.
func (e *Engine) MarkClientOnly(data []byte) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	f, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := f.SetEnvironment("client"); err != nil {
		return nil, err
	}
	return f.Bytes()
}

// Class implements domain.SymbolResolver.
func (e *Engine) Class(name string) string { return e.table.Class(name) }

// Field implements domain.SymbolResolver with hierarchy-aware resolution: a
// reference through a subclass resolves to the rename declared on the
// ancestor that owns the member.
func (e *Engine) Field(owner, name, descriptor string) string {
	return e.resolve(e.fields, e.table.FieldEntry, owner, name, descriptor)
}

// Method implements domain.SymbolResolver, like Field.
func (e *Engine) Method(owner, name, descriptor string) string {
	return e.resolve(e.methods, e.table.MethodEntry, owner, name, descriptor)
}

func (e *Engine) resolve(
	cache *lru.Cache[domain.MemberRef, string],
	lookup func(owner, name, descriptor string) (string, bool),
	owner, name, descriptor string,
) string {
	key := domain.MemberRef{Owner: owner, Name: name, Descriptor: descriptor}
	if mapped, ok := cache.Get(key); ok {
		return mapped
	}

	mapped := name
	e.mu.RLock()
	for current := owner; current != ""; {
		if to, ok := lookup(current, name, descriptor); ok {
			mapped = to
			break
		}
		info, known := e.classes[current]
		if !known {
			break
		}
		if to, ok := e.resolveInterfaces(info.interfaces, lookup, name, descriptor); ok {
			mapped = to
			break
		}
		current = info.super
	}
	e.mu.RUnlock()

	cache.Add(key, mapped)
	return mapped
}

func (e *Engine) resolveInterfaces(
	interfaces []string,
	lookup func(owner, name, descriptor string) (string, bool),
	name, descriptor string,
) (string, bool) {
	for _, iface := range interfaces {
		for current := iface; current != ""; {
			if to, ok := lookup(current, name, descriptor); ok {
				return to, true
			}
			info, known := e.classes[current]
			if !known {
				break
			}
			if to, ok := e.resolveInterfaces(info.interfaces, lookup, name, descriptor); ok {
				return to, true
			}
			current = info.super
		}
	}
	return "", false
}

func (e *Engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return domain.ErrEngineClosed
	}
	return nil
}

// Close releases hierarchy and cache memory. The registry calls this once the
// last consumer has released its handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.classes = nil
	e.primed = nil
	e.fields.Purge()
	e.methods.Purge()
	return nil
}
