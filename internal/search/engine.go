package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/partforge/partsearch/internal/errors"
	"github.com/partforge/partsearch/internal/store"
)

// Engine is the unified search engine (H): it tries each backend in
// priority order, falls back on failure or an empty result, chunks large
// bulk requests across a bounded worker pool, and deduplicates/ranks the
// combined output before pagination.
type Engine struct {
	backends []store.Backend
	breakers map[string]*errors.CircuitBreaker
	config   EngineConfig
	logger   *slog.Logger

	mu           sync.RWMutex
	availability map[string]bool
}

// New constructs an Engine over backends in priority order (conventionally
// the external index first, the relational fallback last). Availability is
// probed once here and cached for the engine's lifetime.
func New(ctx context.Context, backends []store.Backend, opts ...Option) *Engine {
	e := &Engine{
		backends: backends,
		config:   DefaultConfig(),
		logger:   slog.Default(),
		breakers: make(map[string]*errors.CircuitBreaker, len(backends)),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.availability = make(map[string]bool, len(backends))
	for _, b := range backends {
		e.availability[b.Name()] = b.Available(ctx)
		e.breakers[b.Name()] = errors.NewCircuitBreaker(b.Name())
	}
	return e
}

func (e *Engine) available(b store.Backend) bool {
	e.mu.RLock()
	cached := e.availability[b.Name()]
	e.mu.RUnlock()
	return cached && e.breakers[b.Name()].Allow()
}

// rawResult is the engine's internal, pre-projection view of one part's
// outcome: the ranked matches plus enough bookkeeping (which backend
// answered, whether it errored or was cancelled) for SearchBulk to build
// the §3 client-facing Result once the whole request has settled.
type rawResult struct {
	matches   []store.Match
	total     int
	backend   string
	cancelled bool
	err       error
}

// SearchSingle implements the §4.8 single-search contract: try each backend
// in priority order, descending the chain on error or zero matches, rerank
// the winning backend's output, paginate, then score each match through the
// confidence scorer (B) to build the client-facing result.
func (e *Engine) SearchSingle(ctx context.Context, fileID int64, part string, mode Mode, page, pageSize int, showAll bool) (Result, error) {
	start := time.Now()

	for _, b := range e.backends {
		if !e.available(b) {
			continue
		}

		result, err := b.SearchSingle(ctx, fileID, part, mode, 0, 0, true)
		if err != nil {
			e.breakers[b.Name()].RecordFailure()
			e.logger.Warn("search_backend_failed", "backend", b.Name(), "file_id", fileID, "error", err)
			continue
		}
		e.breakers[b.Name()].RecordSuccess()
		if len(result.Matches) == 0 {
			continue
		}

		ranked := dedupeAndRank(part, result.Matches)
		paged := paginate(ranked, page, pageSize, showAll)
		return project(part, b.Name(), paged, len(ranked), page, pageSize, time.Since(start)), nil
	}

	return emptyResult(page, pageSize, time.Since(start)), nil
}

// SearchBulk implements the §4.8 bulk-search contract.
func (e *Engine) SearchBulk(ctx context.Context, fileID int64, parts []string, mode Mode, perPartLimit int) (map[string]Result, error) {
	start := time.Now()

	var raw map[string]rawResult
	var err error
	if len(parts) <= e.config.BulkDirectThreshold {
		raw, err = e.bulkDirect(ctx, fileID, parts, mode, perPartLimit)
	} else {
		raw, err = e.bulkChunked(ctx, fileID, parts, mode, perPartLimit)
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	out := make(map[string]Result, len(raw))
	for p, r := range raw {
		switch {
		case r.err != nil:
			out[p] = Result{SearchEngine: "none", Message: r.err.Error(), Error: r.err.Error(), LatencyMS: elapsed.Milliseconds()}
		case r.cancelled:
			out[p] = Result{SearchEngine: "none", Message: "search cancelled", Cancelled: true, LatencyMS: elapsed.Milliseconds()}
		default:
			out[p] = project(p, r.backend, r.matches, r.total, 0, perPartLimit, elapsed)
		}
	}
	return out, nil
}

// bulkDirect issues one bulk call per backend in priority order, falling
// back only for the parts the prior backend returned empty for.
func (e *Engine) bulkDirect(ctx context.Context, fileID int64, parts []string, mode Mode, perPartLimit int) (map[string]rawResult, error) {
	out := make(map[string]rawResult, len(parts))
	remaining := parts

	for _, b := range e.backends {
		if len(remaining) == 0 {
			break
		}
		if !e.available(b) {
			continue
		}

		results, err := b.SearchBulk(ctx, fileID, remaining, mode, perPartLimit)
		if err != nil {
			e.breakers[b.Name()].RecordFailure()
			e.logger.Warn("search_backend_bulk_failed", "backend", b.Name(), "file_id", fileID, "error", err)
			continue
		}
		e.breakers[b.Name()].RecordSuccess()

		var next []string
		for _, p := range remaining {
			r := results[p]
			if len(r.Matches) == 0 {
				next = append(next, p)
				continue
			}
			ranked := dedupeAndRank(p, r.Matches)
			out[p] = rawResult{
				matches: paginate(ranked, 0, perPartLimit, perPartLimit <= 0),
				total:   len(ranked),
				backend: b.Name(),
			}
		}
		remaining = next
	}

	for _, p := range remaining {
		if _, ok := out[p]; !ok {
			out[p] = rawResult{backend: "none"}
		}
	}
	return out, nil
}

// bulkChunked splits parts into fixed-size chunks issued through a bounded
// worker pool, per §4.8. Cancellation stops new chunks from starting but
// awaits in-flight ones; a chunk's failure is recorded only for its own
// parts, never aborting the rest.
func (e *Engine) bulkChunked(ctx context.Context, fileID int64, parts []string, mode Mode, perPartLimit int) (map[string]rawResult, error) {
	chunks := chunkParts(parts, e.config.ChunkSize)

	out := make(map[string]rawResult, len(parts))
	var mu sync.Mutex

	sem := semaphore.NewWeighted(int64(e.config.WorkerPoolSize))
	g, gctx := errgroup.WithContext(ctx)

	for _, chunk := range chunks {
		chunk := chunk
		if err := sem.Acquire(gctx, 1); err != nil {
			break // ctx cancelled: stop issuing new chunks, let in-flight finish
		}
		g.Go(func() error {
			defer sem.Release(1)

			chunkCtx, cancel := context.WithTimeout(gctx, e.config.ChunkTimeout)
			defer cancel()

			results, err := e.bulkDirect(chunkCtx, fileID, chunk, mode, perPartLimit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for _, p := range chunk {
					out[p] = rawResult{err: err}
				}
				return nil
			}
			for p, r := range results {
				out[p] = r
			}
			return nil
		})
	}
	g.Wait()

	cancelled := ctx.Err() != nil
	if cancelled {
		for _, p := range parts {
			if _, ok := out[p]; !ok {
				out[p] = rawResult{cancelled: true}
			}
		}
	}
	return out, nil
}

func chunkParts(parts []string, size int) [][]string {
	if size <= 0 {
		size = len(parts)
	}
	var chunks [][]string
	for start := 0; start < len(parts); start += size {
		end := start + size
		if end > len(parts) {
			end = len(parts)
		}
		chunks = append(chunks, parts[start:end])
	}
	return chunks
}
