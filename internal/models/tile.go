// Package models defines core data structures for tiles, similarity queries, annotations, and footprints.
package models

import (
	"fmt"
	"strconv"
)

// TileCoordinate identifies one raster tile within a dataset/footprint pyramid.
// It is comparable and used as a map key (embedding cache, result dedup).
type TileCoordinate struct {
	Dataset   string `json:"dataset"`
	Footprint string `json:"footprint"`
	Zoom      int    `json:"z"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// Key returns the index key the tile belongs to.
func (c TileCoordinate) Key() IndexKey {
	return IndexKey{Dataset: c.Dataset, Footprint: c.Footprint, Zoom: c.Zoom}
}

func (c TileCoordinate) String() string {
	return fmt.Sprintf("%s/%s/%d/%d/%d", c.Dataset, c.Footprint, c.Zoom, c.X, c.Y)
}

// IndexKey identifies one vector index: every tile of a dataset/footprint at one zoom.
type IndexKey struct {
	Dataset   string `json:"dataset"`
	Footprint string `json:"footprint"`
	Zoom      int    `json:"zoom"`
}

func (k IndexKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Dataset, k.Footprint, k.Zoom)
}

// Name is the artifact base name shared by every zoom of a dataset/footprint.
func (k IndexKey) Name() string {
	return k.Dataset + "_" + k.Footprint
}

// ArtifactName is the file name prefix of the persisted index for this key.
func (k IndexKey) ArtifactName() string {
	return k.Name() + "_" + strconv.Itoa(k.Zoom)
}

// Tile returns the coordinate of tile (x, y) under this key.
func (k IndexKey) Tile(x, y int) TileCoordinate {
	return TileCoordinate{Dataset: k.Dataset, Footprint: k.Footprint, Zoom: k.Zoom, X: x, Y: y}
}
