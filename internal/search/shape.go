package search

import (
	"slices"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/vector"
)

// ShapeResults splits candidates into confidence bands and returns every high-confidence
// tile (score > high) followed by at most topK medium-confidence tiles (low < score <= high).
// Duplicate coordinates keep their best score. Candidates are ordered by descending score
// first; equal scores keep their input order. The result may hold more than topK tiles.
func ShapeResults(candidates []*models.SimilarTile, topK int, high, low float64) []*models.SimilarTile {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, byScoreDesc)

	seen := make(map[models.TileCoordinate]struct{}, len(sorted))
	var highs, mediums []*models.SimilarTile
	for _, c := range sorted {
		key := c.Coordinate()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		switch {
		case c.Score > high:
			t := *c
			t.Confidence = models.ConfidenceHigh
			highs = append(highs, &t)
		case c.Score > low:
			t := *c
			t.Confidence = models.ConfidenceMedium
			mediums = append(mediums, &t)
		}
	}
	if topK < 0 {
		topK = 0
	}
	if len(mediums) > topK {
		mediums = mediums[:topK]
	}
	return append(highs, mediums...)
}

func byScoreDesc(a, b *models.SimilarTile) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	return 0
}

func toSimilarTiles(results []*vector.VectorResult) []*models.SimilarTile {
	out := make([]*models.SimilarTile, len(results))
	for i, r := range results {
		out[i] = &models.SimilarTile{
			Dataset:   r.Coordinate.Dataset,
			Footprint: r.Coordinate.Footprint,
			Z:         r.Coordinate.Zoom,
			X:         r.Coordinate.X,
			Y:         r.Coordinate.Y,
			Score:     r.Score,
		}
	}
	return out
}

// candidateCount is how many neighbours to pull from an index before shaping.
func candidateCount(topK, minCandidates, multiplier int) int {
	return max(minCandidates, topK*multiplier)
}
