package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWMaxNeighbors is the M parameter for the HNSW graph.
const HNSWMaxNeighbors = 16

// HNSWIndex wraps an HNSW graph over enrolled reference embeddings for
// approximate nearest-identity search. Candidates are re-ranked by the
// caller using exact float64 distances; the graph itself operates on
// float32 vectors.
type HNSWIndex struct {
	graph  *hnsw.Graph[int64]
	idName map[int64]string
	mu     sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		idName: make(map[int64]string),
	}
}

// BuildFromIdentities builds the index from enrolled identities. Every
// reference embedding becomes a node; node ids are assigned sequentially.
func (h *HNSWIndex) BuildFromIdentities(identities []Identity) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(identities) == 0 {
		h.graph = nil
		h.idName = make(map[int64]string)
		return nil
	}

	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance

	idName := make(map[int64]string)
	var next int64
	for i := range identities {
		for _, emb := range identities[i].Embeddings {
			if len(emb) == 0 {
				continue
			}
			g.Add(hnsw.MakeNode(next, Float32s(emb)))
			idName[next] = identities[i].Name
			next++
		}
	}

	h.graph = g
	h.idName = idName
	return nil
}

// Search finds the k nearest reference embeddings to the query and returns
// the owning identity names in distance order. Names may repeat when an
// identity has multiple enrolled embeddings.
func (h *HNSWIndex) Search(query []float64, k int) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(Float32s(query), k)
	names := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		names = append(names, h.idName[n.Key])
	}
	return names, nil
}

// Count returns the number of embeddings in the index.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idName)
}
