package tiles

import (
	"context"
	"errors"
	"slices"

	"github.com/hyperjump/anveshak/internal/models"
)

// ErrTileNotFound is returned by a Store when a tile does not exist.
var ErrTileNotFound = errors.New("tile not found")

// Store provides raw tile bytes and tile enumeration.
type Store interface {
	// Fetch returns the encoded image bytes of one tile, or ErrTileNotFound.
	Fetch(ctx context.Context, coord models.TileCoordinate) ([]byte, error)
	// List returns every tile available for (dataset, footprint, zoom), sorted by x then y.
	List(ctx context.Context, dataset, footprint string, zoom int) ([]models.TileCoordinate, error)
}

// DefaultExtensions are the tile file extensions probed in order.
var DefaultExtensions = []string{"webp", "png", "jpg", "jpeg"}

func sortCoords(coords []models.TileCoordinate) {
	slices.SortFunc(coords, func(a, b models.TileCoordinate) int {
		if a.X != b.X {
			return a.X - b.X
		}
		return a.Y - b.Y
	})
}
