package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/remap/internal/core/domain"
	"go.trai.ch/remap/internal/engine/registry"
	"go.trai.ch/remap/internal/engine/remapper"
)

func testConfig(t *testing.T, source string) remapper.Config {
	t.Helper()
	return remapper.Config{Table: domain.NewRenameTableBuilder(source, "named").Build()}
}

func TestAcquire_SharesEngineAcrossAcquirers(t *testing.T) {
	var builds atomic.Int32
	r := registry.NewWithBuilder(func(ctx context.Context, cfg remapper.Config) (*remapper.Engine, error) {
		builds.Add(1)
		return remapper.New(ctx, cfg)
	})
	cfg := testConfig(t, "intermediary")

	handles := make([]*registry.Handle, 8)
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := r.Acquire(context.Background(), cfg)
			assert.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, h := range handles[1:] {
		assert.Same(t, handles[0].Engine(), h.Engine())
		assert.Equal(t, handles[0].Token(), h.Token())
	}
	for _, h := range handles {
		h.Release()
	}
}

func TestAcquire_DistinctConfigsGetDistinctEngines(t *testing.T) {
	r := registry.New()

	a, err := r.Acquire(context.Background(), testConfig(t, "intermediary"))
	require.NoError(t, err)
	defer a.Release()

	b, err := r.Acquire(context.Background(), testConfig(t, "official"))
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Token(), b.Token())
	assert.NotSame(t, a.Engine(), b.Engine())
}

func TestAcquire_FailureEvictsAndAllowsRetry(t *testing.T) {
	buildErr := errors.New("classpath unreadable")
	var builds atomic.Int32
	r := registry.NewWithBuilder(func(ctx context.Context, cfg remapper.Config) (*remapper.Engine, error) {
		if builds.Add(1) == 1 {
			return nil, buildErr
		}
		return remapper.New(ctx, cfg)
	})
	cfg := testConfig(t, "intermediary")

	_, err := r.Acquire(context.Background(), cfg)
	assert.ErrorIs(t, err, buildErr)

	h, err := r.Acquire(context.Background(), cfg)
	require.NoError(t, err)
	defer h.Release()
	assert.Equal(t, int32(2), builds.Load())
}

func TestResolve(t *testing.T) {
	r := registry.New()

	h, err := r.Acquire(context.Background(), testConfig(t, "intermediary"))
	require.NoError(t, err)

	resolved, err := r.Resolve(h.Token())
	require.NoError(t, err)
	assert.Same(t, h.Engine(), resolved.Engine())

	resolved.Release()
	h.Release()

	_, err = r.Resolve(h.Token())
	assert.ErrorIs(t, err, domain.ErrUnknownEngineToken)
}

func TestRelease_LastHolderClosesEngine(t *testing.T) {
	r := registry.New()

	h, err := r.Acquire(context.Background(), testConfig(t, "intermediary"))
	require.NoError(t, err)
	engine := h.Engine()

	second, err := r.Resolve(h.Token())
	require.NoError(t, err)

	h.Release()
	h.Release() // double release is a no-op

	// Still referenced by the second handle.
	_, err = engine.Remap(nil)
	assert.NotErrorIs(t, err, domain.ErrEngineClosed)

	second.Release()
	_, err = engine.Remap(nil)
	assert.ErrorIs(t, err, domain.ErrEngineClosed)
}
