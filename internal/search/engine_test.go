package search

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/anveshak/internal/compositor"
	"github.com/hyperjump/anveshak/internal/config"
	"github.com/hyperjump/anveshak/internal/embedding"
	"github.com/hyperjump/anveshak/internal/indexer"
	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/tiles"
	"github.com/hyperjump/anveshak/internal/vector"
)

var (
	red   = color.NRGBA{220, 30, 30, 255}
	blue  = color.NRGBA{30, 30, 220, 255}
	green = color.NRGBA{30, 220, 30, 255}
)

func pngTile(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, tiles.TileSize, tiles.TileSize))
	for y := 0; y < tiles.TileSize; y++ {
		for x := 0; x < tiles.TileSize; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fixture struct {
	engine   *Engine
	registry *indexer.Registry
	store    *tiles.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := tiles.NewMemoryStore()
	put := func(z, x, y int, c color.Color) {
		store.Put(models.TileCoordinate{Dataset: "ctx", Footprint: "B01", Zoom: z, X: x, Y: y}, pngTile(t, c))
	}
	put(4, 5, 7, red)
	put(4, 5, 8, green)
	put(4, 6, 7, red)
	put(4, 7, 7, blue)
	put(5, 10, 14, red)
	put(5, 11, 14, blue)

	cfg := config.Default()
	te := embedding.NewTileEmbedder(store, embedding.NewMockExtractor(12), embedding.NewEmbeddingCache(128), nil)
	reg := indexer.New(t.TempDir(), store, te)
	return &fixture{
		engine:   NewEngine(compositor.New(store), te, reg, &cfg.Search),
		registry: reg,
		store:    store,
	}
}

func redQuery() *models.SimilarityQuery {
	return &models.SimilarityQuery{
		Dataset:   "ctx",
		Footprint: "B01",
		Zoom:      models.ZoomLevel(4),
		Geometry:  tiles.TileBound(5, 7, 4).ToPolygon(),
	}
}

func TestFindSimilar(t *testing.T) {
	f := newFixture(t)
	resp, err := f.engine.FindSimilar(context.Background(), redQuery())
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(resp.SimilarTiles) != 2 {
		t.Fatalf("got %d tiles, want the two red ones: %+v", len(resp.SimilarTiles), resp.SimilarTiles)
	}
	first, second := resp.SimilarTiles[0], resp.SimilarTiles[1]
	if first.X != 5 || first.Y != 7 || second.X != 6 || second.Y != 7 {
		t.Errorf("order = (%d,%d), (%d,%d); want (5,7), (6,7)", first.X, first.Y, second.X, second.Y)
	}
	if math.Abs(first.Score-1) > 1e-5 || first.Confidence != models.ConfidenceHigh {
		t.Errorf("self match = %v / %s", first.Score, first.Confidence)
	}
	if resp.HighCount != 2 || resp.MediumCount != 0 || resp.QueryZoom != 4 {
		t.Errorf("counts = %d/%d, zoom %d", resp.HighCount, resp.MediumCount, resp.QueryZoom)
	}
	if len(resp.SearchedZooms) != 1 || resp.SearchedZooms[0] != 4 {
		t.Errorf("searched zooms = %v", resp.SearchedZooms)
	}
}

func TestFindSimilar_NoCoverage(t *testing.T) {
	f := newFixture(t)
	q := redQuery()
	q.Geometry = tiles.TileBound(0, 0, 4).ToPolygon()
	_, err := f.engine.FindSimilar(context.Background(), q)
	if !errors.Is(err, compositor.ErrNoCoverage) {
		t.Errorf("err = %v, want ErrNoCoverage", err)
	}
}

func TestFindSimilar_NoTilesAtZoom(t *testing.T) {
	f := newFixture(t)
	// the query tile exists at zoom 6 but nothing else does, so only it is indexed
	f.store.Put(models.TileCoordinate{Dataset: "ctx", Footprint: "B01", Zoom: 6, X: 20, Y: 28}, pngTile(t, red))
	q := redQuery()
	q.Zoom = models.ZoomLevel(6)
	q.Geometry = tiles.TileBound(20, 28, 6).ToPolygon()
	resp, err := f.engine.FindSimilar(context.Background(), q)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(resp.SimilarTiles) != 1 {
		t.Errorf("got %d tiles, want 1", len(resp.SimilarTiles))
	}
}

func TestFindSimilar_InvalidQuery(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.FindSimilar(context.Background(), &models.SimilarityQuery{Dataset: "ctx"}); err == nil {
		t.Error("expected validation error for missing geometry")
	}
}

func TestFindSimilarAcrossZooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// nothing ready or persisted yet
	resp, err := f.engine.FindSimilarAcrossZooms(ctx, redQuery())
	if err != nil {
		t.Fatalf("FindSimilarAcrossZooms: %v", err)
	}
	if len(resp.SimilarTiles) != 0 || len(resp.SearchedZooms) != 0 {
		t.Fatalf("expected empty response before any index exists, got %+v", resp)
	}

	keys := []models.IndexKey{
		{Dataset: "ctx", Footprint: "B01", Zoom: 4},
		{Dataset: "ctx", Footprint: "B01", Zoom: 5},
	}
	if err := f.registry.Warm(ctx, keys); err != nil {
		t.Fatalf("Warm: %v", err)
	}

	resp, err = f.engine.FindSimilarAcrossZooms(ctx, redQuery())
	if err != nil {
		t.Fatalf("FindSimilarAcrossZooms: %v", err)
	}
	if len(resp.SimilarTiles) != 3 {
		t.Fatalf("got %d tiles, want 3 red tiles across zooms: %+v", len(resp.SimilarTiles), resp.SimilarTiles)
	}
	// equal scores: zoom 4 rows come before zoom 5 rows
	if resp.SimilarTiles[0].Z != 4 || resp.SimilarTiles[2].Z != 5 {
		t.Errorf("zoom order = %d,%d,%d", resp.SimilarTiles[0].Z, resp.SimilarTiles[1].Z, resp.SimilarTiles[2].Z)
	}

	more := redQuery()
	more.ExcludeZooms = []int{4}
	resp, err = f.engine.FindSimilarAcrossZooms(ctx, more)
	if err != nil {
		t.Fatalf("FindSimilarAcrossZooms(exclude 4): %v", err)
	}
	if len(resp.SearchedZooms) != 1 || resp.SearchedZooms[0] != 5 {
		t.Errorf("searched zooms = %v, want [5]", resp.SearchedZooms)
	}
	for _, tl := range resp.SimilarTiles {
		if tl.Z == 4 {
			t.Errorf("excluded zoom returned: %+v", tl)
		}
	}
}

func TestFindSimilarAcrossZooms_CanonicalZoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.registry.Warm(ctx, []models.IndexKey{{Dataset: "ctx", Footprint: "B01", Zoom: 5}}); err != nil {
		t.Fatal(err)
	}
	f.engine.config.CanonicalZoom = 5
	q := redQuery()
	q.Zoom = nil
	q.Geometry = tiles.TileBound(10, 14, 5).ToPolygon()
	resp, err := f.engine.FindSimilarAcrossZooms(ctx, q)
	if err != nil {
		t.Fatalf("FindSimilarAcrossZooms: %v", err)
	}
	if resp.QueryZoom != 5 || len(resp.SimilarTiles) != 1 {
		t.Errorf("query zoom %d, %d tiles", resp.QueryZoom, len(resp.SimilarTiles))
	}
}

func TestFindSimilar_ZoomZeroIsNotCanonical(t *testing.T) {
	f := newFixture(t)
	f.store.Put(models.TileCoordinate{Dataset: "ctx", Footprint: "B01", Zoom: 0, X: 0, Y: 0}, pngTile(t, red))
	q := redQuery()
	q.Zoom = models.ZoomLevel(0)
	q.Geometry = tiles.TileBound(0, 0, 0).ToPolygon()
	resp, err := f.engine.FindSimilar(context.Background(), q)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if resp.QueryZoom != 0 || len(resp.SearchedZooms) != 1 || resp.SearchedZooms[0] != 0 {
		t.Errorf("query zoom %d, searched %v; want zoom 0", resp.QueryZoom, resp.SearchedZooms)
	}
	if len(resp.SimilarTiles) != 1 || resp.SimilarTiles[0].Z != 0 {
		t.Errorf("tiles = %+v, want the single zoom 0 tile", resp.SimilarTiles)
	}
}

// countingIndexes records the peak number of concurrent Ensure calls.
type countingIndexes struct {
	Indexes
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    atomic.Int64
}

func (c *countingIndexes) Ensure(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.inFlight++
	c.peak = max(c.peak, c.inFlight)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()
	time.Sleep(20 * time.Millisecond)
	return c.Indexes.Ensure(ctx, key)
}

func TestFindSimilarAcrossZooms_ZoomWorkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, z := range []int{6, 7, 8} {
		f.store.Put(models.TileCoordinate{Dataset: "ctx", Footprint: "B01", Zoom: z, X: 1, Y: 1}, pngTile(t, blue))
	}
	keys := []models.IndexKey{
		{Dataset: "ctx", Footprint: "B01", Zoom: 4},
		{Dataset: "ctx", Footprint: "B01", Zoom: 5},
		{Dataset: "ctx", Footprint: "B01", Zoom: 6},
		{Dataset: "ctx", Footprint: "B01", Zoom: 7},
		{Dataset: "ctx", Footprint: "B01", Zoom: 8},
	}
	if err := f.registry.Warm(ctx, keys); err != nil {
		t.Fatalf("Warm: %v", err)
	}

	for _, workers := range []int{1, 2} {
		counting := &countingIndexes{Indexes: f.registry}
		cfg := *f.engine.config
		cfg.ZoomWorkers = workers
		engine := NewEngine(f.engine.compositor, f.engine.embedder, counting, &cfg)
		if _, err := engine.FindSimilarAcrossZooms(ctx, redQuery()); err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if counting.calls.Load() != 5 {
			t.Errorf("workers=%d: %d zooms searched, want 5", workers, counting.calls.Load())
		}
		if counting.peak > workers {
			t.Errorf("workers=%d: peak concurrency %d", workers, counting.peak)
		}
	}
}
