// Package search implements the unified search engine (H): it routes a
// part-number query across the available backends in priority order,
// falling back, chunking, deduplicating and ranking their combined output.
package search

import (
	"time"

	"github.com/partforge/partsearch/internal/confidence"
	"github.com/partforge/partsearch/internal/store"
)

// EngineConfig tunes the engine's chunking and timeout behavior.
type EngineConfig struct {
	// BulkDirectThreshold is the largest bulk request size handled as one
	// direct backend call before the engine chunks it.
	BulkDirectThreshold int

	// ChunkSize is how many parts each chunk carries once chunking kicks in.
	ChunkSize int

	// WorkerPoolSize bounds how many chunks are in flight at once.
	WorkerPoolSize int

	// ChunkTimeout bounds a single backend call for one chunk.
	ChunkTimeout time.Duration
}

// DefaultConfig returns the §4.8 defaults: 1000-part chunks over a bounded
// pool of 10 workers, each with a 25s timeout mirroring G1's own bound.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		BulkDirectThreshold: 10_000,
		ChunkSize:           1_000,
		WorkerPoolSize:      10,
		ChunkTimeout:        25 * time.Second,
	}
}

// Relevance tiers feeding the post-union ranking formula (§4.8).
const (
	relevanceExact        = 100.0
	relevanceNormalizedL2 = 95.0
	relevanceNormalizedL3 = 90.0
)

// Re-exported so callers of this package don't also need to import store
// for the types that cross the H boundary.
type (
	Mode         = store.Mode
	Match        = store.Match
	SearchResult = store.SearchResult
)

const (
	ModeExact  = store.ModeExact
	ModeFuzzy  = store.ModeFuzzy
	ModeHybrid = store.ModeHybrid
)

// Company is one priced match projected for a client, carrying the row data
// plus the confidence breakdown the scorer (B) computed for it (§3).
type Company struct {
	RowID               int64                `json:"row_id"`
	PartNumber          string               `json:"part_number"`
	ItemDescription     string               `json:"item_description"`
	UnitPrice           float64              `json:"unit_price"`
	Quantity            int64                `json:"quantity"`
	CompanyName         string               `json:"company_name"`
	Confidence          float64              `json:"confidence"`
	MatchStatus         string               `json:"match_status"`
	MatchType           string               `json:"match_type"`
	ConfidenceBreakdown confidence.Breakdown `json:"confidence_breakdown"`
}

// PriceSummary aggregates unit_price and quantity across a result's
// companies, per §3.
type PriceSummary struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	TotalQuantity int64   `json:"total_quantity"`
}

// Result is the §3 "Search result" shape returned to a client for one
// part-number query: the engine's unified, scored, paginated answer.
type Result struct {
	TotalMatches int           `json:"total_matches"`
	Companies    []Company     `json:"companies"`
	PriceSummary *PriceSummary `json:"price_summary,omitempty"`
	MatchType    string        `json:"match_type"`
	SearchEngine string        `json:"search_engine"`
	LatencyMS    int64         `json:"latency_ms"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	TotalPages   int           `json:"total_pages"`
	Message      string        `json:"message,omitempty"`
	Cancelled    bool          `json:"cancelled,omitempty"`
	Error        string        `json:"error,omitempty"`
}
