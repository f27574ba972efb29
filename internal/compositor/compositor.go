package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/tiles"
)

var (
	// ErrNoCoverage is returned when no tile contributed pixels to the composite.
	ErrNoCoverage = errors.New("no tile coverage for geometry")
	// ErrTooManyTiles is returned when the geometry spans more tiles than allowed.
	ErrTooManyTiles = errors.New("geometry covers too many tiles")
)

// DefaultMaxTiles bounds the number of tiles a single composite may touch.
const DefaultMaxTiles = 1024

// Compositor builds query images from a tile store.
type Compositor struct {
	store    tiles.Store
	pad      color.Color
	maxTiles int
	logger   *zap.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithLogger sets a logger for skipped-tile diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compositor) { c.logger = l }
}

// WithPadColor sets the color of canvas areas no tile covers.
func WithPadColor(pad color.Color) Option {
	return func(c *Compositor) { c.pad = pad }
}

// WithMaxTiles caps the tile range a composite may span. Zero or less disables the cap.
func WithMaxTiles(n int) Option {
	return func(c *Compositor) { c.maxTiles = n }
}

// New creates a compositor reading from store.
func New(store tiles.Store, opts ...Option) *Compositor {
	c := &Compositor{
		store:    store,
		pad:      color.Black,
		maxTiles: DefaultMaxTiles,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type piece struct {
	img image.Image
	at  image.Point
}

// Build assembles the pixels of geom across every covered tile at zoom. Missing and
// undecodable tiles are skipped; ErrNoCoverage is returned when nothing was placed.
func (c *Compositor) Build(ctx context.Context, dataset, footprint string, zoom int, geom orb.Geometry) (image.Image, error) {
	bound := geom.Bound()
	minX, minY, maxX, maxY := tiles.TileRange(bound, zoom)
	if p, ok := geom.(orb.Point); ok {
		t := pointTile(p, zoom)
		minX, minY, maxX, maxY = t.X, t.Y, t.X, t.Y
	}
	span := (maxX - minX + 1) * (maxY - minY + 1)
	if c.maxTiles > 0 && span > c.maxTiles {
		return nil, fmt.Errorf("%w: %d tiles at zoom %d (max %d)", ErrTooManyTiles, span, zoom, c.maxTiles)
	}

	var pieces []piece
	var union image.Rectangle
	for ty := minY; ty <= maxY; ty++ {
		for tx := minX; tx <= maxX; tx++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, ok := PixelBBoxOnTile(geom, zoom, tx, ty)
			if !ok {
				continue
			}
			coord := models.TileCoordinate{Dataset: dataset, Footprint: footprint, Zoom: zoom, X: tx, Y: ty}
			img, err := c.loadTile(ctx, coord)
			if err != nil {
				if errors.Is(err, tiles.ErrTileNotFound) || errors.Is(err, errUndecodable) {
					c.logger.Debug("skipping tile", zap.Stringer("tile", coord), zap.Error(err))
					continue
				}
				return nil, err
			}
			at := image.Pt((tx-minX)*tiles.TileSize+r.Min.X, (ty-minY)*tiles.TileSize+r.Min.Y)
			pieces = append(pieces, piece{img: imaging.Crop(img, r), at: at})
			union = union.Union(image.Rectangle{Min: at, Max: at.Add(r.Size())})
		}
	}

	if len(pieces) == 0 || union.Empty() {
		return nil, ErrNoCoverage
	}

	canvas := imaging.New(union.Dx(), union.Dy(), c.pad)
	for _, p := range pieces {
		canvas = imaging.Paste(canvas, p.img, p.at.Sub(union.Min))
	}
	return canvas, nil
}

var errUndecodable = errors.New("undecodable tile")

func (c *Compositor) loadTile(ctx context.Context, coord models.TileCoordinate) (image.Image, error) {
	data, err := c.store.Fetch(ctx, coord)
	if err != nil {
		return nil, err
	}
	img, err := tiles.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUndecodable, err)
	}
	if b := img.Bounds(); b.Dx() != tiles.TileSize || b.Dy() != tiles.TileSize {
		img = imaging.Resize(img, tiles.TileSize, tiles.TileSize, imaging.Lanczos)
	}
	return img, nil
}
