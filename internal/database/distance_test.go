package database

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"unit apart", []float64{0, 0}, []float64{1, 0}, 1},
		{"pythagorean", []float64{0, 0}, []float64{3, 4}, 5},
		{"negative components", []float64{-1, -1}, []float64{-4, 3}, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EuclideanDistance(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("EuclideanDistance() = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestEuclideanDistance_InvalidInput(t *testing.T) {
	if d := EuclideanDistance([]float64{1, 2}, []float64{1}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %f", d)
	}
	if d := EuclideanDistance(nil, nil); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for empty vectors, got %f", d)
	}
}

func TestHNSWIndex_SearchFindsNearest(t *testing.T) {
	idx := NewHNSWIndex()
	identities := []Identity{
		{Name: "alice", Embeddings: [][]float64{{0, 0, 0}}},
		{Name: "bob", Embeddings: [][]float64{{10, 10, 10}}},
		{Name: "carol", Embeddings: [][]float64{{0.1, 0.1, 0.1}, {5, 5, 5}}},
	}

	if err := idx.BuildFromIdentities(identities); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	if idx.Count() != 4 {
		t.Errorf("expected 4 indexed embeddings, got %d", idx.Count())
	}

	names, err := idx.Search([]float64{0.05, 0.05, 0.05}, 2)
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected at least one neighbor")
	}
	if names[0] != "alice" && names[0] != "carol" {
		t.Errorf("expected nearest to be alice or carol, got %q", names[0])
	}
}

func TestHNSWIndex_EmptySearchFails(t *testing.T) {
	idx := NewHNSWIndex()
	if err := idx.BuildFromIdentities(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := idx.Search([]float64{1}, 1); err == nil {
		t.Error("expected error searching an empty index")
	}
}
