package search

import (
	"testing"

	"github.com/hyperjump/anveshak/internal/models"
)

func tile(x int, score float64) *models.SimilarTile {
	return &models.SimilarTile{Dataset: "ctx", Footprint: "B01", Z: 8, X: x, Y: 0, Score: score}
}

func TestShapeResults_Bands(t *testing.T) {
	in := []*models.SimilarTile{
		tile(1, 0.95), tile(2, 0.75), tile(3, 0.70), tile(4, 0.65), tile(5, 0.80), tile(6, 0.10),
	}
	got := ShapeResults(in, 10, 0.75, 0.65)

	wantX := []int{1, 5, 2, 3}
	wantConf := []models.Confidence{models.ConfidenceHigh, models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceMedium}
	if len(got) != len(wantX) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(wantX), got)
	}
	for i := range wantX {
		if got[i].X != wantX[i] || got[i].Confidence != wantConf[i] {
			t.Errorf("result %d = x%d/%s, want x%d/%s", i, got[i].X, got[i].Confidence, wantX[i], wantConf[i])
		}
	}
}

func TestShapeResults_HighNeverCapped(t *testing.T) {
	var in []*models.SimilarTile
	for i := 0; i < 5; i++ {
		in = append(in, tile(i, 0.9))
	}
	for i := 5; i < 10; i++ {
		in = append(in, tile(i, 0.7))
	}
	got := ShapeResults(in, 2, 0.75, 0.65)
	if len(got) != 7 {
		t.Fatalf("len = %d, want 5 high + 2 medium", len(got))
	}
	if got[5].X != 5 || got[6].X != 6 {
		t.Errorf("medium band should keep input order on ties, got x%d, x%d", got[5].X, got[6].X)
	}
}

func TestShapeResults_Dedup(t *testing.T) {
	in := []*models.SimilarTile{tile(1, 0.7), tile(2, 0.8), tile(1, 0.9)}
	got := ShapeResults(in, 10, 0.75, 0.65)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].X != 1 || got[0].Score != 0.9 {
		t.Errorf("duplicate should keep best score, got %+v", got[0])
	}
}

func TestShapeResults_DoesNotMutateInput(t *testing.T) {
	in := []*models.SimilarTile{tile(1, 0.9)}
	ShapeResults(in, 1, 0.75, 0.65)
	if in[0].Confidence != "" {
		t.Error("input tile was modified")
	}
}

func TestShapeResults_ZeroTopK(t *testing.T) {
	got := ShapeResults([]*models.SimilarTile{tile(1, 0.9), tile(2, 0.7)}, 0, 0.75, 0.65)
	if len(got) != 1 || got[0].X != 1 {
		t.Errorf("got %+v, want only the high tile", got)
	}
}

func TestCandidateCount(t *testing.T) {
	if got := candidateCount(5, 50, 5); got != 50 {
		t.Errorf("candidateCount(5) = %d, want 50", got)
	}
	if got := candidateCount(20, 50, 5); got != 100 {
		t.Errorf("candidateCount(20) = %d, want 100", got)
	}
}
