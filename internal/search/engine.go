// Package search runs visual similarity queries: compose the query image, embed it, and
// search one or many zoom-level indexes.
package search

import (
	"context"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/anveshak/internal/config"
	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/vector"
)

// Compositor builds the query image for a geometry.
type Compositor interface {
	Build(ctx context.Context, dataset, footprint string, zoom int, geom orb.Geometry) (image.Image, error)
}

// QueryEmbedder turns a query image into a feature vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, img image.Image) ([]float32, error)
}

// Indexes resolves zoom-level indexes.
type Indexes interface {
	Ensure(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, error)
	Zooms(dataset, footprint string) []int
}

// Engine runs similarity search.
type Engine struct {
	compositor Compositor
	embedder   QueryEmbedder
	indexes    Indexes
	config     *config.SearchConfig
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for query diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(compositor Compositor, embedder QueryEmbedder, indexes Indexes, cfg *config.SearchConfig, opts ...Option) *Engine {
	e := &Engine{
		compositor: compositor,
		embedder:   embedder,
		indexes:    indexes,
		config:     cfg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindSimilar searches the index of the query's own zoom level, or of the configured
// canonical zoom when the query has none.
func (e *Engine) FindSimilar(ctx context.Context, q *models.SimilarityQuery) (*models.SimilarityResponse, error) {
	start := time.Now()
	if err := q.Validate(e.config.DefaultTopK, e.config.MaxTopK); err != nil {
		return nil, err
	}

	zoom := q.ZoomOr(e.config.CanonicalZoom)
	vec, err := e.queryVector(ctx, q, zoom)
	if err != nil {
		return nil, err
	}
	key := models.IndexKey{Dataset: q.Dataset, Footprint: q.Footprint, Zoom: zoom}
	idx, err := e.indexes.Ensure(ctx, key)
	if err != nil {
		return nil, err
	}
	results, err := idx.Search(ctx, vec, e.candidates(q.TopK))
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	shaped := ShapeResults(toSimilarTiles(results), q.TopK, e.config.HighThreshold, e.config.LowThreshold)
	return e.response(shaped, zoom, []int{zoom}, start), nil
}

// FindSimilarAcrossZooms composes and embeds the query once, at the query zoom or the
// configured canonical zoom, then searches every available zoom level not excluded by the
// query. With no zoom left to search the response is empty.
func (e *Engine) FindSimilarAcrossZooms(ctx context.Context, q *models.SimilarityQuery) (*models.SimilarityResponse, error) {
	start := time.Now()
	if err := q.Validate(e.config.DefaultTopK, e.config.MaxTopK); err != nil {
		return nil, err
	}
	canonical := q.ZoomOr(e.config.CanonicalZoom)

	var zooms []int
	for _, z := range e.indexes.Zooms(q.Dataset, q.Footprint) {
		if !q.Excludes(z) {
			zooms = append(zooms, z)
		}
	}
	if len(zooms) == 0 {
		return e.response(nil, canonical, []int{}, start), nil
	}

	vec, err := e.queryVector(ctx, q, canonical)
	if err != nil {
		return nil, err
	}

	k := e.candidates(q.TopK)
	perZoom := make([][]*vector.VectorResult, len(zooms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.config.ZoomWorkers))
	for i, z := range zooms {
		g.Go(func() error {
			idx, err := e.indexes.Ensure(gctx, models.IndexKey{Dataset: q.Dataset, Footprint: q.Footprint, Zoom: z})
			if err != nil {
				return fmt.Errorf("zoom %d: %w", z, err)
			}
			res, err := idx.Search(gctx, vec, k)
			if err != nil {
				return fmt.Errorf("zoom %d: vector search failed: %w", z, err)
			}
			perZoom[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// concatenated in ascending zoom order, so equal scores favour the coarser zoom
	var merged []*models.SimilarTile
	for _, res := range perZoom {
		merged = append(merged, toSimilarTiles(res)...)
	}
	slices.SortStableFunc(merged, byScoreDesc)

	shaped := ShapeResults(merged, q.TopK, e.config.HighThreshold, e.config.LowThreshold)
	return e.response(shaped, canonical, zooms, start), nil
}

func (e *Engine) queryVector(ctx context.Context, q *models.SimilarityQuery, zoom int) ([]float32, error) {
	img, err := e.compositor.Build(ctx, q.Dataset, q.Footprint, zoom, q.Geometry)
	if err != nil {
		return nil, err
	}
	vec, err := e.embedder.Embed(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query image: %w", err)
	}
	e.logger.Debug("query embedded",
		zap.String("dataset", q.Dataset),
		zap.String("footprint", q.Footprint),
		zap.Int("zoom", zoom),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return vec, nil
}

func (e *Engine) candidates(topK int) int {
	return candidateCount(topK, e.config.MinCandidates, e.config.CandidateMultiplier)
}

func (e *Engine) response(tiles []*models.SimilarTile, queryZoom int, searched []int, start time.Time) *models.SimilarityResponse {
	resp := &models.SimilarityResponse{
		SimilarTiles:  tiles,
		QueryZoom:     queryZoom,
		SearchedZooms: searched,
		QueryTime:     time.Since(start).Milliseconds(),
	}
	if resp.SimilarTiles == nil {
		resp.SimilarTiles = []*models.SimilarTile{}
	}
	for _, t := range tiles {
		if t.Confidence == models.ConfidenceHigh {
			resp.HighCount++
		} else {
			resp.MediumCount++
		}
	}
	return resp
}
