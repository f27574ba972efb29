// Package compositor turns a query geometry into a single image assembled from the tiles it covers.
package compositor

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/hyperjump/anveshak/internal/tiles"
)

const pixelEpsilon = 1e-9

// PixelBBoxOnTile returns the pixel rectangle, within tile (x, y) at zoom, of the part of
// geom that falls inside the tile. Pixel x runs west to east and y north to south, both
// linear in degrees. The result is clamped to [0, TileSize]. It reports false when the
// intersection is empty or has zero pixel area, so tiles that only share an edge with
// geom are skipped. A Point covers the whole tile that contains it.
func PixelBBoxOnTile(geom orb.Geometry, zoom, x, y int) (image.Rectangle, bool) {
	if p, ok := geom.(orb.Point); ok {
		if pointTile(p, zoom) == (image.Point{X: x, Y: y}) {
			return image.Rect(0, 0, tiles.TileSize, tiles.TileSize), true
		}
		return image.Rectangle{}, false
	}

	tb := tiles.TileBound(x, y, zoom)
	clipped := clip.Geometry(tb, orb.Clone(geom))
	if clipped == nil {
		return image.Rectangle{}, false
	}
	ib := clipped.Bound()
	if ib.IsEmpty() || ib.Left() > ib.Right() || ib.Bottom() > ib.Top() {
		return image.Rectangle{}, false
	}

	west, east := tb.Left(), tb.Right()
	south, north := tb.Bottom(), tb.Top()
	size := float64(tiles.TileSize)
	px0 := (ib.Left() - west) / (east - west) * size
	px1 := (ib.Right() - west) / (east - west) * size
	py0 := (north - ib.Top()) / (north - south) * size
	py1 := (north - ib.Bottom()) / (north - south) * size

	r := image.Rect(
		clampPixel(math.Floor(px0+pixelEpsilon)),
		clampPixel(math.Floor(py0+pixelEpsilon)),
		clampPixel(math.Ceil(px1-pixelEpsilon)),
		clampPixel(math.Ceil(py1-pixelEpsilon)),
	)
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

// pointTile returns the tile containing p, clamped to the grid.
func pointTile(p orb.Point, zoom int) image.Point {
	x, y := tiles.LatLngToTile(tiles.ClampLatitude(p.Lat()), p.Lon(), zoom)
	last := (1 << zoom) - 1
	return image.Point{X: min(max(x, 0), last), Y: min(max(y, 0), last)}
}

func clampPixel(v float64) int {
	return int(math.Max(0, math.Min(float64(tiles.TileSize), v)))
}
