package models

// Confidence is the score band a similar tile fell into.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// SimilarTile is a single similarity hit.
type SimilarTile struct {
	Dataset    string     `json:"dataset"`
	Footprint  string     `json:"footprint"`
	Z          int        `json:"z"`
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
}

// Coordinate returns the tile coordinate of the hit.
func (t *SimilarTile) Coordinate() TileCoordinate {
	return TileCoordinate{Dataset: t.Dataset, Footprint: t.Footprint, Zoom: t.Z, X: t.X, Y: t.Y}
}

// SimilarityResponse is the response for a similarity search.
//
// SimilarTiles holds every high-confidence hit followed by at most TopK medium-confidence
// hits, so its length may exceed the requested TopK.
type SimilarityResponse struct {
	SimilarTiles  []*SimilarTile `json:"similar_tiles"`
	HighCount     int            `json:"high_count"`
	MediumCount   int            `json:"medium_count"`
	QueryZoom     int            `json:"query_zoom"`
	SearchedZooms []int          `json:"searched_zooms"`
	QueryTime     int64          `json:"query_time_ms"`
}
