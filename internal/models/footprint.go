package models

// Footprint is one mosaic of a dataset with its own tile pyramid.
type Footprint struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	BBox            [4]float64   `json:"bbox"` // min_lon, min_lat, max_lon, max_lat
	TileURL         string       `json:"tileUrl"`
	CapabilitiesURL string       `json:"capabilitiesUrl"`
	DownloadInfo    DownloadInfo `json:"downloadInfo"`
}

// DownloadInfo describes the tile ranges available per zoom level.
type DownloadInfo struct {
	TilesPerZoom map[string]ZoomTiles `json:"tilesPerZoom,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// ZoomTiles is the tile range of a footprint at one zoom level.
type ZoomTiles struct {
	XRange [2]int `json:"xRange"`
	YRange [2]int `json:"yRange"`
	Count  int    `json:"count"`
}
