package indexer

import (
	"cmp"
	"slices"
	"time"

	"github.com/hyperjump/anveshak/internal/models"
)

// IndexStatus describes one ready index.
type IndexStatus struct {
	Key           models.IndexKey `json:"key"`
	Rows          int             `json:"rows"`
	Dimensions    int             `json:"dimensions"`
	Source        Source          `json:"source"`
	ReadyAt       time.Time       `json:"ready_at"`
	BuildDuration time.Duration   `json:"build_duration_ns"`
	SkippedTiles  int             `json:"skipped_tiles"`
}

// Status lists ready indexes ordered by dataset, footprint, then zoom.
func (r *Registry) Status() []IndexStatus {
	r.mu.RLock()
	out := make([]IndexStatus, 0, len(r.indexes))
	for k, e := range r.indexes {
		out = append(out, IndexStatus{
			Key:           k,
			Rows:          e.index.Size(),
			Dimensions:    e.index.Dimensions(),
			Source:        e.source,
			ReadyAt:       e.readyAt,
			BuildDuration: e.duration,
			SkippedTiles:  e.skipped,
		})
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b IndexStatus) int {
		return cmp.Or(
			cmp.Compare(a.Key.Dataset, b.Key.Dataset),
			cmp.Compare(a.Key.Footprint, b.Key.Footprint),
			cmp.Compare(a.Key.Zoom, b.Key.Zoom),
		)
	})
	return out
}
