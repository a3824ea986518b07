// Package vectorhook provides a concrete but inert vector-upsert hook.
// The core ingestion and search paths never query it; they only fire
// upserts at it, matching the "opaque upsert hook" non-goal precisely.
// It exists so a future embedding pipeline has somewhere real to attach
// without the core depending on its presence or results.
package vectorhook

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// Config configures the underlying HNSW graph.
type Config struct {
	Dimensions int
	M          int
	EfSearch   int
}

// DefaultConfig returns sane defaults for the hook's graph.
func DefaultConfig(dimensions int) Config {
	return Config{Dimensions: dimensions, M: 16, EfSearch: 20}
}

// Hook is a fire-and-forget vector upsert sink keyed by arbitrary string
// ids (in practice "<file_id>_<row_id>", mirroring the search index's
// document id convention).
type Hook struct {
	mu     sync.Mutex
	graph  *hnsw.Graph[uint64]
	config Config

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// New constructs a Hook. Nothing in the core reads from it; it is safe to
// construct unconditionally and ignore thereafter.
func New(cfg Config) *Hook {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Hook{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Upsert inserts or replaces the vector for id. Callers are expected to
// ignore the error in fire-and-forget fashion; it is returned only so a
// caller that does want to log failures can.
func (h *Hook) Upsert(ctx context.Context, id string, vector []float32) error {
	if len(vector) != h.config.Dimensions {
		return fmt.Errorf("vectorhook: dimension mismatch: expected %d, got %d", h.config.Dimensions, len(vector))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("vectorhook: closed")
	}

	if existingKey, exists := h.idMap[id]; exists {
		// Lazy deletion: coder/hnsw cannot safely drop the last node in
		// the graph, so superseded entries are orphaned instead of removed.
		delete(h.keyMap, existingKey)
		delete(h.idMap, id)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)

	key := h.nextKey
	h.nextKey++
	h.graph.Add(hnsw.MakeNode(key, vec))
	h.idMap[id] = key
	h.keyMap[key] = id
	return nil
}

// Delete orphans id's vector. Lazy, like Upsert's replace path.
func (h *Hook) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("vectorhook: closed")
	}
	if key, exists := h.idMap[id]; exists {
		delete(h.keyMap, key)
		delete(h.idMap, id)
	}
	return nil
}

// Dimensions reports the vector width this hook was configured for.
func (h *Hook) Dimensions() int { return h.config.Dimensions }

// Count returns the number of live (non-orphaned) vectors.
func (h *Hook) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.idMap)
}

// Close releases the graph. The hook is not reusable afterward.
func (h *Hook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.graph = nil
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
