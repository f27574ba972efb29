// Package tiles implements slippy-map tile math, tile storage backends, and tile image decoding.
package tiles

import (
	"math"

	"github.com/paulmach/orb"
)

// TileSize is the edge length of a tile in pixels.
const TileSize = 256

// MaxLatitude is the latitude limit of the Web-Mercator projection.
const MaxLatitude = 85.05112877980659

// ClampLatitude clamps lat into [-MaxLatitude, MaxLatitude].
func ClampLatitude(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}

// LatLngToTile returns the tile containing (lat, lng) at zoom.
// Coordinates are truncated toward negative infinity and are not clamped to the
// valid range; lng = 180 yields x = 2^zoom. Callers clamp latitude beforehand.
func LatLngToTile(lat, lng float64, zoom int) (x, y int) {
	n := math.Exp2(float64(zoom))
	latRad := lat * math.Pi / 180
	x = int(math.Floor((lng + 180) / 360 * n))
	y = int(math.Floor((1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n))
	return x, y
}

// TileToLatLngBounds returns the geographic edges of tile (x, y) at zoom.
func TileToLatLngBounds(x, y, zoom int) (south, north, west, east float64) {
	n := math.Exp2(float64(zoom))
	west = tileXToLng(x, n)
	east = tileXToLng(x+1, n)
	north = tileYToLat(y, n)
	south = tileYToLat(y+1, n)
	return south, north, west, east
}

func tileXToLng(x int, n float64) float64 {
	return float64(x)/n*360 - 180
}

func tileYToLat(y int, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*float64(y)/n))) * 180 / math.Pi
}

// TileBound returns the bound of tile (x, y) at zoom as lng/lat.
func TileBound(x, y, zoom int) orb.Bound {
	south, north, west, east := TileToLatLngBounds(x, y, zoom)
	return orb.Bound{Min: orb.Point{west, south}, Max: orb.Point{east, north}}
}

// TileRange returns the inclusive tile range covering b at zoom, clamped to the
// grid [0, 2^zoom-1].
func TileRange(b orb.Bound, zoom int) (minX, minY, maxX, maxY int) {
	last := int(math.Exp2(float64(zoom))) - 1
	// the north-west corner gives the smallest x and y
	minX, minY = LatLngToTile(ClampLatitude(b.Max.Lat()), b.Min.Lon(), zoom)
	maxX, maxY = LatLngToTile(ClampLatitude(b.Min.Lat()), b.Max.Lon(), zoom)
	return clampInt(minX, 0, last), clampInt(minY, 0, last), clampInt(maxX, 0, last), clampInt(maxY, 0, last)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
