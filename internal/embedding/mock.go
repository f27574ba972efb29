package embedding

import (
	"context"
	"image"
	"math"
	"sync/atomic"

	"github.com/hyperjump/anveshak/pkg/utils"
)

// MockExtractor is a deterministic extractor for tests and model-less runs. It splits the
// image into a grid and emits the mean RGB of each cell, so images with the same color
// layout get the same vector.
type MockExtractor struct {
	dimensions int
	inputSize  int
	grid       int
	calls      atomic.Int64
}

// NewMockExtractor returns an extractor producing vectors of the given dimensions.
func NewMockExtractor(dimensions int) *MockExtractor {
	if dimensions <= 0 {
		dimensions = 48
	}
	cells := (dimensions + 2) / 3
	return &MockExtractor{
		dimensions: dimensions,
		inputSize:  64,
		grid:       int(math.Ceil(math.Sqrt(float64(cells)))),
	}
}

// Extract returns the L2-normalized grid color descriptor of img.
func (e *MockExtractor) Extract(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls.Add(1)

	b := img.Bounds()
	sums := make([]float64, e.grid*e.grid*3)
	counts := make([]float64, e.grid*e.grid)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		gy := (y - b.Min.Y) * e.grid / max(b.Dy(), 1)
		for x := b.Min.X; x < b.Max.X; x++ {
			gx := (x - b.Min.X) * e.grid / max(b.Dx(), 1)
			cell := gy*e.grid + gx
			r, g, bl, _ := img.At(x, y).RGBA()
			sums[cell*3] += float64(r) / 0xffff
			sums[cell*3+1] += float64(g) / 0xffff
			sums[cell*3+2] += float64(bl) / 0xffff
			counts[cell]++
		}
	}

	vec := make([]float32, e.dimensions)
	for i := range vec {
		cell := i / 3
		if counts[cell] > 0 {
			vec[i] = float32(sums[i]/counts[cell]) + 0.01
		} else {
			vec[i] = 0.01
		}
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *MockExtractor) Dimensions() int { return e.dimensions }

func (e *MockExtractor) InputSize() int { return e.inputSize }

// Calls returns how many times Extract ran.
func (e *MockExtractor) Calls() int64 { return e.calls.Load() }

func (e *MockExtractor) Close() error { return nil }
