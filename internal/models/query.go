package models

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrInvalidQuery marks a SimilarityQuery that fails validation.
var ErrInvalidQuery = errors.New("invalid query")

// SimilarityQuery is a request to find tiles that look like the area under Geometry.
type SimilarityQuery struct {
	Dataset   string `json:"dataset"`
	Footprint string `json:"footprint"`
	// Zoom is the level the query was drawn at. FindSimilar searches only this zoom;
	// the cross-zoom search composes the query image at it. Nil means the configured
	// canonical zoom; 0 is a real zoom level.
	Zoom *int `json:"zoom,omitempty"`
	// TopK caps the medium-confidence band; high-confidence results are never capped.
	TopK         int          `json:"top_k,omitempty"`
	ExcludeZooms []int        `json:"exclude_zooms,omitempty"`
	Geometry     orb.Geometry `json:"-"`
}

// Validate checks required fields and normalizes TopK into [1, maxTopK].
func (q *SimilarityQuery) Validate(defaultTopK, maxTopK int) error {
	if q.Dataset == "" {
		return fmt.Errorf("%w: dataset cannot be empty", ErrInvalidQuery)
	}
	if q.Geometry == nil {
		return fmt.Errorf("%w: geometry cannot be empty", ErrInvalidQuery)
	}
	if q.Zoom != nil && *q.Zoom < 0 {
		return fmt.Errorf("%w: zoom must not be negative, got %d", ErrInvalidQuery, *q.Zoom)
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// ZoomOr returns the query zoom, or def when none was given.
func (q *SimilarityQuery) ZoomOr(def int) int {
	if q.Zoom != nil {
		return *q.Zoom
	}
	return def
}

// ZoomLevel returns a pointer to z for setting SimilarityQuery.Zoom.
func ZoomLevel(z int) *int {
	return &z
}

// Excludes reports whether zoom is in ExcludeZooms.
func (q *SimilarityQuery) Excludes(zoom int) bool {
	for _, z := range q.ExcludeZooms {
		if z == zoom {
			return true
		}
	}
	return false
}
