package fingerprint

import (
	"errors"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// CosineSimilarity computes the cosine similarity between two embedding vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// hnswMaxNeighbors is the M parameter for the HNSW graph.
const hnswMaxNeighbors = 16

// Index is an in-memory HNSW index over photo embeddings, keyed by photo id.
// It powers nearest-fingerprint lookup across analyzed photos without a
// round trip to the database.
type Index struct {
	graph *hnsw.Graph[string]
	embs  map[string][]float32
	mu    sync.RWMutex
}

// NewIndex creates an empty embedding index.
func NewIndex() *Index {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	return &Index{
		graph: g,
		embs:  make(map[string][]float32),
	}
}

// Add inserts or replaces a photo embedding.
func (ix *Index) Add(photoID string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.graph.Add(hnsw.MakeNode(photoID, embedding))
	ix.embs[photoID] = embedding
}

// Search returns the ids and cosine similarities of the k nearest photos.
func (ix *Index) Search(query []float32, k int) ([]string, []float64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.embs) == 0 {
		return nil, nil, errors.New("index is empty")
	}

	neighbors := ix.graph.Search(query, k)

	ids := make([]string, len(neighbors))
	sims := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		sims[i] = CosineSimilarity(query, ix.embs[n.Key])
	}
	return ids, sims, nil
}

// Count returns the number of indexed photos.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.embs)
}
