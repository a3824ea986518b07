package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	lowercaseKeywordAnalyzer = "lowercase_keyword"

	fieldPartNumber      = "part_number"
	fieldPartNumberExact = "part_number_exact"
	fieldDescription     = "description"
	fieldFileID          = "file_id"
	fieldUnitPrice       = "unit_price"

	// bulkChunkSize bounds how many parts are folded into one disjunction
	// query, mirroring the "one request per chunk of 50" contract an
	// external multi-search index would enforce over the wire.
	bulkChunkSize = 50

	// defaultRequestTimeout bounds a single query against the index.
	defaultRequestTimeout = 25 * time.Second
)

// PartDoc is one indexed row, keyed "<file_id>_<row_id>".
type PartDoc struct {
	FileID          int64
	RowID           int64
	PartNumber      string
	ItemDescription string
	Quantity        int64
	UnitPrice       float64
	PrimaryBuyer    string
}

func docID(fileID, rowID int64) string {
	return fmt.Sprintf("%d_%d", fileID, rowID)
}

// bleveDoc is the shape actually handed to bleve for indexing.
type bleveDoc struct {
	PartNumber      string  `json:"part_number"`
	PartNumberExact string  `json:"part_number_exact"`
	Description     string  `json:"description"`
	FileID          float64 `json:"file_id"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	PrimaryBuyer    string  `json:"primary_buyer"`
}

// BleveIndex is the G1 external-index search backend: a full-text index
// of every ingested row, indexed both as analyzed text (for fuzzy/prefix
// matching) and as an exact keyword (for the top-boosted exact tier).
type BleveIndex struct {
	mu      sync.RWMutex
	index   bleve.Index
	closed  bool
	timeout time.Duration
}

// OpenBleveIndex creates or opens the shared part-number index. An empty
// path yields an in-memory index, used by tests and by small deployments
// that rebuild the index from the relational tables on restart.
func OpenBleveIndex(path string) (*BleveIndex, error) {
	idxMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(idxMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
			return nil, fmt.Errorf("create index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, idxMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open part index: %w", err)
	}

	return &BleveIndex{index: idx, timeout: defaultRequestTimeout}, nil
}

func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(lowercaseKeywordAnalyzer, map[string]interface{}{
		"type":      "custom",
		"tokenizer": single.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentMapping()

	exactField := bleve.NewTextFieldMapping()
	exactField.Analyzer = lowercaseKeywordAnalyzer
	docMapping.AddFieldMappingsAt(fieldPartNumberExact, exactField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "standard"
	docMapping.AddFieldMappingsAt(fieldPartNumber, textField)
	docMapping.AddFieldMappingsAt(fieldDescription, textField)

	numField := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt(fieldFileID, numField)
	docMapping.AddFieldMappingsAt(fieldUnitPrice, numField)

	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = "standard"
	return im, nil
}

func (b *BleveIndex) Name() string { return "bleve_external_index" }

// Available reports whether the index can currently be queried at all.
func (b *BleveIndex) Available(ctx context.Context) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed || b.index == nil {
		return false
	}
	_, err := b.index.DocCount()
	return err == nil
}

// Upsert indexes or replaces rows, used by the index-sync batch loop (F).
func (b *BleveIndex) Upsert(ctx context.Context, rows []PartDoc) error {
	if len(rows) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bleve index closed")
	}

	batch := b.index.NewBatch()
	for _, r := range rows {
		doc := bleveDoc{
			PartNumber:      r.PartNumber,
			PartNumberExact: r.PartNumber,
			Description:     r.ItemDescription,
			FileID:          float64(r.FileID),
			Quantity:        float64(r.Quantity),
			UnitPrice:       r.UnitPrice,
			PrimaryBuyer:    r.PrimaryBuyer,
		}
		if err := batch.Index(docID(r.FileID, r.RowID), doc); err != nil {
			return fmt.Errorf("index row %d: %w", r.RowID, err)
		}
	}
	return b.index.Batch(batch)
}

// Delete removes a dataset's documents entirely, used when a dataset is
// deleted or re-ingested from scratch.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bleve index closed")
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

// partQuery builds the §4.7 G1 disjunction for one part number: exact
// keyword (boost 10), prefix (boost 5), single-edit fuzzy match (boost 2).
func partQuery(part string) bleve.Query {
	lower := strings.ToLower(strings.TrimSpace(part))

	exact := bleve.NewTermQuery(lower)
	exact.SetField(fieldPartNumberExact)
	exact.SetBoost(10)

	prefix := bleve.NewPrefixQuery(lower)
	prefix.SetField(fieldPartNumberExact)
	prefix.SetBoost(5)

	fuzzy := bleve.NewMatchQuery(part)
	fuzzy.SetField(fieldPartNumber)
	fuzzy.Fuzziness = 1
	fuzzy.SetBoost(2)

	return bleve.NewDisjunctionQuery(exact, prefix, fuzzy)
}

func fileFilter(fileID int64) bleve.Query {
	v := float64(fileID)
	q := bleve.NewNumericRangeInclusiveQuery(&v, &v, boolPtr(true), boolPtr(true))
	q.SetField(fieldFileID)
	return q
}

func boolPtr(b bool) *bool { return &b }

func matchTypeForScore(score float64) string {
	switch {
	case score > 8:
		return MatchTypeExact
	case score > 4:
		return MatchTypePrefix
	default:
		return MatchTypeFuzzy
	}
}

func hitToMatch(fields map[string]interface{}, score float64) Match {
	m := Match{BackendScore: score, MatchType: matchTypeForScore(score)}
	if v, ok := fields[fieldPartNumber].(string); ok {
		m.PartNumber = v
	}
	if v, ok := fields[fieldDescription].(string); ok {
		m.ItemDescription = v
	}
	if v, ok := fields[fieldUnitPrice].(float64); ok {
		m.UnitPrice = v
	}
	if v, ok := fields["quantity"].(float64); ok {
		m.Quantity = int64(v)
	}
	if v, ok := fields["primary_buyer"].(string); ok {
		m.PrimaryBuyer = v
	}
	return m
}

// SearchSingle implements the G1 single-part contract.
func (b *BleveIndex) SearchSingle(ctx context.Context, fileID int64, part string, mode Mode, page, pageSize int, showAll bool) (SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return SearchResult{}, ErrBackendUnavailable{Backend: b.Name()}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	query := bleve.NewConjunctionQuery(fileFilter(fileID), partQuery(part))
	req := bleve.NewSearchRequest(query)
	req.Fields = []string{fieldPartNumber, fieldDescription, fieldUnitPrice, "quantity", "primary_buyer"}

	size := pageSize
	if showAll || size <= 0 {
		size = 10_000_000
	}
	req.From = page * pageSize
	req.Size = size
	req.SortBy([]string{"-_score", fieldUnitPrice})

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("bleve search: %w", err)
	}

	matches := make([]Match, 0, len(result.Hits))
	for _, hit := range result.Hits {
		matches = append(matches, hitToMatch(hit.Fields, hit.Score))
	}

	return SearchResult{
		Matches:      matches,
		TotalMatches: int(result.Total),
		Page:         page,
		PageSize:     pageSize,
	}, nil
}

// SearchBulk implements the G1 bulk contract: parts are chunked to at
// most bulkChunkSize and each chunk is resolved with one combined query,
// matching a backend that would otherwise issue one network round trip
// per chunk.
func (b *BleveIndex) SearchBulk(ctx context.Context, fileID int64, parts []string, mode Mode, perPartLimit int) (map[string]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBackendUnavailable{Backend: b.Name()}
	}

	out := make(map[string]SearchResult, len(parts))
	for start := 0; start < len(parts); start += bulkChunkSize {
		end := start + bulkChunkSize
		if end > len(parts) {
			end = len(parts)
		}
		chunk := parts[start:end]

		chunkCtx, cancel := context.WithTimeout(ctx, b.timeout)
		results, err := b.searchChunk(chunkCtx, fileID, chunk, perPartLimit)
		cancel()
		if err != nil {
			for _, p := range chunk {
				out[p] = SearchResult{Error: err}
			}
			continue
		}
		for p, r := range results {
			out[p] = r
		}
	}
	return out, nil
}

func (b *BleveIndex) searchChunk(ctx context.Context, fileID int64, parts []string, perPartLimit int) (map[string]SearchResult, error) {
	subQueries := make([]bleve.Query, 0, len(parts))
	for _, p := range parts {
		subQueries = append(subQueries, partQuery(p))
	}
	query := bleve.NewConjunctionQuery(fileFilter(fileID), bleve.NewDisjunctionQuery(subQueries...))

	req := bleve.NewSearchRequest(query)
	req.Fields = []string{fieldPartNumber, fieldDescription, fieldUnitPrice, "quantity", "primary_buyer"}
	req.Size = len(parts) * 200
	req.SortBy([]string{"-_score", fieldUnitPrice})

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve bulk search: %w", err)
	}

	byPart := make(map[string][]Match, len(parts))
	for _, hit := range result.Hits {
		m := hitToMatch(hit.Fields, hit.Score)
		byPart[m.PartNumber] = append(byPart[m.PartNumber], m)
	}

	out := make(map[string]SearchResult, len(parts))
	for _, p := range parts {
		matches := byPart[p]
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].BackendScore != matches[j].BackendScore {
				return matches[i].BackendScore > matches[j].BackendScore
			}
			return matches[i].UnitPrice < matches[j].UnitPrice
		})
		limit := perPartLimit
		if limit <= 0 || limit > len(matches) {
			limit = len(matches)
		}
		out[p] = SearchResult{Matches: matches[:limit], TotalMatches: len(matches)}
	}
	return out, nil
}
