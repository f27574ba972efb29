package embedding

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/tiles"
	"github.com/hyperjump/anveshak/internal/vector"
	"github.com/hyperjump/anveshak/pkg/utils"
)

// TileEmbedder resolves tile coordinates to feature vectors, extracting on cache misses.
type TileEmbedder struct {
	store     tiles.Store
	extractor Extractor
	cache     *EmbeddingCache
	pad       color.Color
	group     singleflight.Group
}

// NewTileEmbedder wires a tile store, extractor and cache. pad fills the margins when an
// image is fitted to the extractor input.
func NewTileEmbedder(store tiles.Store, extractor Extractor, cache *EmbeddingCache, pad color.Color) *TileEmbedder {
	if pad == nil {
		pad = color.Black
	}
	return &TileEmbedder{store: store, extractor: extractor, cache: cache, pad: pad}
}

// Get returns the embedding of coord. Concurrent misses for one coordinate share a single extraction.
func (e *TileEmbedder) Get(ctx context.Context, coord models.TileCoordinate) ([]float32, error) {
	if v, ok := e.cache.Get(coord); ok {
		return v, nil
	}
	v, err, _ := e.group.Do(coord.String(), func() (interface{}, error) {
		if v, ok := e.cache.Get(coord); ok {
			return v, nil
		}
		data, err := e.store.Fetch(ctx, coord)
		if err != nil {
			return nil, err
		}
		img, err := tiles.Decode(data)
		if err != nil {
			return nil, err
		}
		vec, err := e.Embed(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", coord, err)
		}
		e.cache.Set(coord, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Embed fits img to the extractor input and extracts its vector. Vectors of the wrong
// length, with NaN or infinite components, or all zeros are rejected.
func (e *TileEmbedder) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	fitted := tiles.FitSquare(img, e.extractor.InputSize(), e.pad)
	vec, err := e.extractor.Extract(ctx, fitted)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.extractor.Dimensions() {
		return nil, &vector.DimensionMismatchError{Expected: e.extractor.Dimensions(), Actual: len(vec), Row: -1}
	}
	if !utils.IsFinite(vec) {
		return nil, vector.ErrNonFiniteVector
	}
	if utils.IsZero(vec) {
		return nil, vector.ErrZeroVector
	}
	return vec, nil
}

// Invalidate drops cached embeddings of every tile under key.
func (e *TileEmbedder) Invalidate(key models.IndexKey) int {
	return e.cache.InvalidateIndex(key)
}

// Dimensions returns the extractor's vector length.
func (e *TileEmbedder) Dimensions() int {
	return e.extractor.Dimensions()
}

// Cache exposes the underlying cache for status reporting.
func (e *TileEmbedder) Cache() *EmbeddingCache {
	return e.cache
}
