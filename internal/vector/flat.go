// Package vector provides an exact cosine-similarity index over tile embeddings and its on-disk format.
package vector

import (
	"context"
	"fmt"
	"slices"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/pkg/utils"
)

// VectorResult is a single search hit.
type VectorResult struct {
	Coordinate models.TileCoordinate
	Score      float64 // cosine similarity in [-1, 1]
	Row        int
}

// FlatIndex is an immutable brute-force inner-product index over L2-normalized rows.
// It is safe for concurrent searches.
type FlatIndex struct {
	dimensions int
	coords     []models.TileCoordinate
	normalized []float32 // rows*dimensions, row-major
	raw        []float32 // rows*dimensions, as given to Build
}

// Build creates an index from vectors and their tile coordinates. Inputs are copied.
func Build(dimensions int, vectors [][]float32, coords []models.TileCoordinate) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if len(vectors) != len(coords) {
		return nil, fmt.Errorf("vectors and coords length mismatch: %d vs %d", len(vectors), len(coords))
	}
	idx := &FlatIndex{
		dimensions: dimensions,
		coords:     slices.Clone(coords),
		normalized: make([]float32, 0, len(vectors)*dimensions),
		raw:        make([]float32, 0, len(vectors)*dimensions),
	}
	for i, v := range vectors {
		if len(v) != dimensions {
			return nil, &DimensionMismatchError{Expected: dimensions, Actual: len(v), Row: i}
		}
		if !utils.IsFinite(v) {
			return nil, fmt.Errorf("row %d (%s): %w", i, coords[i], ErrNonFiniteVector)
		}
		if utils.IsZero(v) {
			return nil, fmt.Errorf("row %d (%s): %w", i, coords[i], ErrZeroVector)
		}
		idx.raw = append(idx.raw, v...)
		start := len(idx.normalized)
		idx.normalized = append(idx.normalized, v...)
		utils.NormalizeL2(idx.normalized[start:])
	}
	return idx, nil
}

// Size returns the number of rows.
func (f *FlatIndex) Size() int {
	return len(f.coords)
}

// Dimensions returns the vector length.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Coordinates returns a copy of the row coordinates in row order.
func (f *FlatIndex) Coordinates() []models.TileCoordinate {
	return slices.Clone(f.coords)
}

func (f *FlatIndex) row(i int) []float32 {
	return f.normalized[i*f.dimensions : (i+1)*f.dimensions]
}

// Search returns the k rows most similar to query by cosine similarity, best first.
// Equal scores keep ascending row order. k larger than Size returns every row; k <= 0 returns none.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, &DimensionMismatchError{Expected: f.dimensions, Actual: len(query), Row: -1}
	}
	if k <= 0 || len(f.coords) == 0 {
		return nil, nil
	}
	if !utils.IsFinite(query) {
		return nil, ErrNonFiniteVector
	}
	q := slices.Clone(query)
	if utils.IsZero(q) {
		return nil, ErrZeroVector
	}
	utils.NormalizeL2(q)

	results := make([]*VectorResult, len(f.coords))
	for i := range f.coords {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		results[i] = &VectorResult{Coordinate: f.coords[i], Score: utils.Dot(q, f.row(i)), Row: i}
	}
	slices.SortStableFunc(results, func(a, b *VectorResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}
