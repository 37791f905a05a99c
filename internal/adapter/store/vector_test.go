package store

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"docintel/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestRankMatchesInclusiveThreshold(t *testing.T) {
	candidates := []Candidate{
		{Document: domain.Document{ID: "exact"}, Vector: []float32{1, 0}},
		{Document: domain.Document{ID: "orthogonal"}, Vector: []float32{0, 1}},
	}
	matches, err := RankMatches([]float32{1, 0}, candidates, 1.0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Document.ID != "exact" {
		t.Errorf("expected similarity equal to threshold to be kept, got %+v", matches)
	}

	if matches, _ := RankMatches([]float32{1, 0}, candidates, 0, 0); len(matches) != 0 {
		t.Errorf("expected no matches for limit 0, got %d", len(matches))
	}
}

func TestRankMatchesStoredDimensionMismatch(t *testing.T) {
	candidates := []Candidate{{Document: domain.Document{ID: "bad"}, Vector: []float32{1, 0, 0}}}
	if _, err := RankMatches([]float32{1, 0}, candidates, 0, 10); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, 1.5, -2.25, float32(math.Pi)}
	got, err := decodeVector(encodeVector(v))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("expected %v, got %v", v, got)
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
