// Package indexer owns the per-(dataset, footprint, zoom) vector indexes: loading them from
// disk, building them from tiles on demand, and swapping in explicit rebuilds.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/tiles"
	"github.com/hyperjump/anveshak/internal/vector"
)

// ErrIndexNotFound is returned when a key has no index and none can be built.
var ErrIndexNotFound = errors.New("index not found")

// Embedder resolves a tile to its feature vector.
type Embedder interface {
	Get(ctx context.Context, coord models.TileCoordinate) ([]float32, error)
	Dimensions() int
}

// invalidator is implemented by embedders that cache per tile.
type invalidator interface {
	Invalidate(key models.IndexKey) int
}

// Source records where a registered index came from.
type Source string

const (
	SourceBuilt  Source = "built"
	SourceLoaded Source = "loaded"
)

type entry struct {
	index    *vector.FlatIndex
	source   Source
	readyAt  time.Time
	duration time.Duration
	skipped  int
}

// Registry maps index keys to ready indexes. Once a key is ready it stays ready until Rebuild.
type Registry struct {
	dir      string
	store    tiles.Store
	embedder Embedder
	logger   *zap.Logger

	workers      int
	maxTiles     int
	buildTimeout time.Duration
	buildOnMiss  bool

	mu       sync.RWMutex
	indexes  map[models.IndexKey]*entry
	keyLocks map[models.IndexKey]*sync.Mutex

	group  singleflight.Group
	builds atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets a logger for build progress and skipped tiles.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithWorkers sets how many tiles are embedded in parallel during a build.
func WithWorkers(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMaxTiles caps how many tiles a build enumerates. Zero means unlimited.
func WithMaxTiles(n int) Option {
	return func(r *Registry) { r.maxTiles = n }
}

// WithBuildTimeout bounds a single build. Zero means no limit.
func WithBuildTimeout(d time.Duration) Option {
	return func(r *Registry) { r.buildTimeout = d }
}

// WithBuildOnMiss controls whether Ensure builds an index that is neither loaded nor persisted.
func WithBuildOnMiss(enabled bool) Option {
	return func(r *Registry) { r.buildOnMiss = enabled }
}

// New creates a registry persisting artifacts under dir.
func New(dir string, store tiles.Store, embedder Embedder, opts ...Option) *Registry {
	r := &Registry{
		dir:         dir,
		store:       store,
		embedder:    embedder,
		logger:      zap.NewNop(),
		workers:     4,
		buildOnMiss: true,
		indexes:     make(map[models.IndexKey]*entry),
		keyLocks:    make(map[models.IndexKey]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the artifact directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Get returns the ready index for key without loading or building.
func (r *Registry) Get(key models.IndexKey) (*vector.FlatIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.indexes[key]
	if !ok {
		return nil, false
	}
	return e.index, true
}

// Has reports whether key is ready in memory or persisted on disk.
func (r *Registry) Has(key models.IndexKey) bool {
	if _, ok := r.Get(key); ok {
		return true
	}
	indexPath, _, _ := vector.ArtifactPaths(r.dir, key.ArtifactName())
	_, err := os.Stat(indexPath)
	return err == nil
}

// Ensure returns the index for key, loading persisted artifacts or building from tiles
// as needed. Concurrent calls for one key share a single load or build. The build runs
// detached from ctx, so a caller that gives up does not abort it for the others.
func (r *Registry) Ensure(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, error) {
	if idx, ok := r.Get(key); ok {
		return idx, nil
	}
	ch := r.group.DoChan(key.String(), func() (interface{}, error) {
		bctx, cancel := r.buildContext(ctx)
		defer cancel()
		return r.ensure(bctx, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*vector.FlatIndex), nil
	}
}

func (r *Registry) ensure(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, error) {
	lock := r.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if idx, ok := r.Get(key); ok {
		return idx, nil
	}

	start := time.Now()
	idx, err := vector.LoadFlatIndex(r.dir, key.ArtifactName())
	switch {
	case err == nil:
		if idx.Dimensions() == r.embedder.Dimensions() {
			r.register(key, &entry{index: idx, source: SourceLoaded, readyAt: time.Now(), duration: time.Since(start)})
			r.logger.Info("index loaded", zap.Stringer("key", key), zap.Int("rows", idx.Size()))
			return idx, nil
		}
		if !r.buildOnMiss {
			return nil, fmt.Errorf("persisted index %s: %w", key, &vector.DimensionMismatchError{Expected: r.embedder.Dimensions(), Actual: idx.Dimensions(), Row: -1})
		}
		r.logger.Warn("persisted index has stale dimensions, rebuilding",
			zap.Stringer("key", key), zap.Int("have", idx.Dimensions()), zap.Int("want", r.embedder.Dimensions()))
	case errors.Is(err, vector.ErrArtifactNotFound):
		if !r.buildOnMiss {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, key)
		}
	default:
		return nil, err
	}

	return r.buildAndSave(ctx, key)
}

// Rebuild builds key from its current tiles, persists it, and replaces any ready index.
// Cached embeddings for the key are dropped first so changed tiles are re-extracted.
func (r *Registry) Rebuild(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, error) {
	ch := r.group.DoChan("rebuild:"+key.String(), func() (interface{}, error) {
		bctx, cancel := r.buildContext(ctx)
		defer cancel()

		lock := r.keyLock(key)
		lock.Lock()
		defer lock.Unlock()

		if inv, ok := r.embedder.(invalidator); ok {
			inv.Invalidate(key)
		}
		return r.buildAndSave(bctx, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*vector.FlatIndex), nil
	}
}

// buildAndSave must be called with the key lock held.
func (r *Registry) buildAndSave(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, error) {
	start := time.Now()
	idx, skipped, err := r.build(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := idx.Save(r.dir, key.ArtifactName()); err != nil {
		return nil, fmt.Errorf("failed to persist index %s: %w", key, err)
	}
	elapsed := time.Since(start)
	r.register(key, &entry{index: idx, source: SourceBuilt, readyAt: time.Now(), duration: elapsed, skipped: skipped})
	r.logger.Info("index built",
		zap.Stringer("key", key),
		zap.Int("rows", idx.Size()),
		zap.Int("skipped", skipped),
		zap.Duration("duration", elapsed))
	return idx, nil
}

func (r *Registry) build(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, int, error) {
	r.builds.Add(1)
	coords, err := r.store.List(ctx, key.Dataset, key.Footprint, key.Zoom)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tiles for %s: %w", key, err)
	}
	if len(coords) == 0 {
		return nil, 0, fmt.Errorf("%w: %s has no tiles", ErrIndexNotFound, key)
	}
	if r.maxTiles > 0 && len(coords) > r.maxTiles {
		r.logger.Warn("tile enumeration truncated", zap.Stringer("key", key), zap.Int("tiles", len(coords)), zap.Int("max", r.maxTiles))
		coords = coords[:r.maxTiles]
	}

	vectors := make([][]float32, len(coords))
	var skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, c := range coords {
		g.Go(func() error {
			v, err := r.embedder.Get(gctx, c)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// a wrong-length vector means the extractor disagrees with the index; fail the build
				var dm *vector.DimensionMismatchError
				if errors.As(err, &dm) {
					return err
				}
				skipped.Add(1)
				r.logger.Warn("skipping tile", zap.Stringer("tile", c), zap.Error(err))
				return nil
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("build %s: %w", key, err)
	}

	kept := make([][]float32, 0, len(vectors))
	keptCoords := make([]models.TileCoordinate, 0, len(coords))
	for i, v := range vectors {
		if v != nil {
			kept = append(kept, v)
			keptCoords = append(keptCoords, coords[i])
		}
	}
	if len(kept) == 0 {
		return nil, int(skipped.Load()), fmt.Errorf("%w: no tile of %s could be embedded", ErrIndexNotFound, key)
	}
	idx, err := vector.Build(r.embedder.Dimensions(), kept, keptCoords)
	if err != nil {
		return nil, 0, err
	}
	return idx, int(skipped.Load()), nil
}

func (r *Registry) buildContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if r.buildTimeout > 0 {
		return context.WithTimeout(detached, r.buildTimeout)
	}
	return detached, func() {}
}

func (r *Registry) register(key models.IndexKey, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes[key] = e
}

func (r *Registry) keyLock(key models.IndexKey) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		r.keyLocks[key] = l
	}
	return l
}

// Zooms returns the ascending zoom levels of dataset/footprint that are ready in memory
// or persisted on disk.
func (r *Registry) Zooms(dataset, footprint string) []int {
	set := make(map[int]struct{})
	r.mu.RLock()
	for k := range r.indexes {
		if k.Dataset == dataset && k.Footprint == footprint {
			set[k.Zoom] = struct{}{}
		}
	}
	r.mu.RUnlock()

	prefix := models.IndexKey{Dataset: dataset, Footprint: footprint}.Name() + "_"
	if entries, err := os.ReadDir(r.dir); err == nil {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, vector.ExtIndex) {
				continue
			}
			z, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), vector.ExtIndex))
			if err != nil || z < 0 {
				continue
			}
			set[z] = struct{}{}
		}
	}

	zooms := make([]int, 0, len(set))
	for z := range set {
		zooms = append(zooms, z)
	}
	slices.Sort(zooms)
	return zooms
}

// Builds returns how many builds have started since the registry was created.
func (r *Registry) Builds() int64 {
	return r.builds.Load()
}

// Warm ensures every key, continuing past failures. The returned error joins all failures.
func (r *Registry) Warm(ctx context.Context, keys []models.IndexKey) error {
	var errs []error
	for _, k := range keys {
		if _, err := r.Ensure(ctx, k); err != nil {
			r.logger.Warn("warm-up failed", zap.Stringer("key", k), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
