// Package embedding turns tile images into feature vectors and caches them per tile.
package embedding

import (
	"context"
	"image"
)

// Extractor produces a fixed-dimension feature vector from an image.
// Implementations must be safe for concurrent use; each call returns its own slice.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([]float32, error)
	// Dimensions is the length of every vector Extract returns.
	Dimensions() int
	// InputSize is the square edge, in pixels, images are fitted to before Extract.
	InputSize() int
	Close() error
}
