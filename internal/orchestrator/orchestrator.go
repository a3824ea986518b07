// Package orchestrator implements the worker orchestrator (L): it drives one
// uploaded file through parsing, ingestion, index sync and cache warm-up,
// publishing progress along the way and leaving the dataset's status as the
// single source of truth for where a job stands.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/partforge/partsearch/internal/cache"
	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/indexsync"
	"github.com/partforge/partsearch/internal/ingest"
	"github.com/partforge/partsearch/internal/parser"
	"github.com/partforge/partsearch/internal/progress"
	"github.com/partforge/partsearch/internal/search"
)

// BatchProgressInterval is how often (in committed ingest batches) a
// batch_progress message is published, per §4.12.
const BatchProgressInterval = 5

// WarmUpPartLimit bounds how many distinct part_number values are warmed
// into the result cache after a file finishes ingesting.
const WarmUpPartLimit = 100

// Searcher is the subset of the unified search engine the orchestrator
// needs to warm the result cache; satisfied by *search.Engine.
type Searcher interface {
	SearchSingle(ctx context.Context, fileID int64, part string, mode search.Mode, page, pageSize int, showAll bool) (search.Result, error)
}

// Orchestrator drives the D->E->F->cache-warm pipeline for one file at a
// time, one call to Run per file.
type Orchestrator struct {
	datasetStore *dataset.Store
	syncer       *indexsync.Syncer
	searcher     Searcher
	resultCache  *cache.Cache
	hub          *progress.Hub
	lockDir      string
	logger       *slog.Logger
}

// New builds an Orchestrator. searcher and resultCache may be nil: a nil
// searcher skips cache warm-up entirely, which is never fatal to a run.
func New(datasetStore *dataset.Store, syncer *indexsync.Syncer, searcher Searcher, resultCache *cache.Cache, hub *progress.Hub, lockDir string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		datasetStore: datasetStore,
		syncer:       syncer,
		searcher:     searcher,
		resultCache:  resultCache,
		hub:          hub,
		lockDir:      lockDir,
		logger:       logger,
	}
}

// Run executes the full pipeline for fileID against the file at tempPath,
// following §4.12's six steps. A parse or ingest failure marks the dataset
// failed; an index-sync or cache-warm-up failure is recorded on the
// metadata but never turns a completed ingest into a failure.
func (o *Orchestrator) Run(ctx context.Context, fileID int64, tempPath, filename string) error {
	meta, err := o.datasetStore.Get(ctx, fileID)
	if err != nil {
		return fmt.Errorf("read dataset metadata: %w", err)
	}
	if meta.Status == dataset.StatusCancelled {
		o.hub.Publish(fileID, progress.Message{Type: progress.ProcessingComplete})
		return nil
	}

	if err := o.datasetStore.SetStatus(ctx, fileID, dataset.StatusProcessing); err != nil {
		return fmt.Errorf("set status processing: %w", err)
	}
	o.hub.Publish(fileID, progress.Message{Type: progress.ProcessingStarted})

	result, err := o.ingest(ctx, fileID, tempPath, filename)
	if err != nil {
		o.fail(ctx, fileID, err)
		return err
	}
	if result.Cancelled {
		_ = o.datasetStore.SetStatus(ctx, fileID, dataset.StatusCancelled)
		o.hub.Publish(fileID, progress.Message{Type: progress.ProcessingComplete})
		return nil
	}

	_ = o.datasetStore.SetRowCount(ctx, fileID, result.Inserted)

	for _, idxErr := range o.datasetStore.CreateIndexes(ctx, fileID) {
		o.logger.Warn("create_indexes_failed", "file_id", fileID, "error", idxErr)
	}

	o.syncIndex(ctx, fileID)
	o.warmCache(ctx, fileID)

	if err := o.datasetStore.SetStatus(ctx, fileID, dataset.StatusProcessed); err != nil {
		return fmt.Errorf("set status processed: %w", err)
	}
	o.hub.Publish(fileID, progress.Message{Type: progress.ProcessingComplete, ProcessedRows: result.Inserted})
	return nil
}

// ingest opens a streaming parser over tempPath, resuming past any rows a
// prior crashed run already committed, and drives component E to
// completion or cancellation.
func (o *Orchestrator) ingest(ctx context.Context, fileID int64, tempPath, filename string) (ingest.Result, error) {
	resumeRows, err := o.datasetStore.RowCount(ctx, fileID)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("read resume offset: %w", err)
	}

	it, err := parser.Open(tempPath, filename, int(resumeRows))
	if err != nil {
		return ingest.Result{}, fmt.Errorf("open parser: %w", err)
	}
	defer it.Close()

	cancelCheck := func() bool {
		meta, err := o.datasetStore.Get(ctx, fileID)
		return err == nil && meta.Status == dataset.StatusCancelled
	}

	onProgress := func(batchNum int, rowsInserted int64) {
		if batchNum%BatchProgressInterval != 0 {
			return
		}
		o.hub.Publish(fileID, progress.Message{
			Type:          progress.BatchProgress,
			CurrentBatch:  batchNum,
			ProcessedRows: resumeRows + rowsInserted,
		})
	}

	return ingest.Ingest(ctx, o.datasetStore, fileID, it, ingest.Options{
		LockDir:     o.lockDir,
		BatchSize:   parser.DefaultBatchSize,
		CancelCheck: cancelCheck,
		Logger:      o.logger,
		OnProgress:  onProgress,
	})
}

// syncIndex runs component F. A failure here is recorded on the dataset's
// metadata but does not fail the overall run, per §4.12.
func (o *Orchestrator) syncIndex(ctx context.Context, fileID int64) {
	if o.syncer == nil {
		return
	}

	onProgress := func(batchNum int, rowsSynced int64) {
		o.hub.Publish(fileID, progress.Message{
			Type:          progress.IndexSyncProgress,
			CurrentBatch:  batchNum,
			ProcessedRows: rowsSynced,
		})
	}

	if err := o.syncer.Sync(ctx, fileID, onProgress); err != nil {
		o.logger.Warn("index_sync_failed", "file_id", fileID, "error", err)
		if setErr := o.datasetStore.SetSyncResult(ctx, fileID, false, err.Error()); setErr != nil {
			o.logger.Warn("record_sync_result_failed", "file_id", fileID, "error", setErr)
		}
		return
	}
	if err := o.datasetStore.SetSyncResult(ctx, fileID, true, ""); err != nil {
		o.logger.Warn("record_sync_result_failed", "file_id", fileID, "error", err)
	}
}

// warmCache runs a single-part search for the most frequent part numbers in
// the dataset, populating J's warm-up bucket ahead of the first real query.
// Entirely best-effort: errors are logged, never surfaced to the caller.
func (o *Orchestrator) warmCache(ctx context.Context, fileID int64) {
	if o.searcher == nil || o.resultCache == nil {
		return
	}

	parts, err := o.datasetStore.TopPartNumbers(ctx, fileID, WarmUpPartLimit)
	if err != nil {
		o.logger.Warn("warm_up_top_parts_failed", "file_id", fileID, "error", err)
		return
	}

	for _, part := range parts {
		result, err := o.searcher.SearchSingle(ctx, fileID, part, search.ModeExact, 0, 0, true)
		if err != nil {
			o.logger.Debug("warm_up_search_failed", "file_id", fileID, "part_number", part, "error", err)
			continue
		}

		payload, err := json.Marshal(result)
		if err != nil {
			continue
		}
		key := cache.Key("search_single", fileID, []string{part}, string(search.ModeExact), 0, true)
		o.resultCache.Put(key, payload, cache.WarmUpTTL)
	}
}

func (o *Orchestrator) fail(ctx context.Context, fileID int64, err error) {
	if setErr := o.datasetStore.SetStatus(ctx, fileID, dataset.StatusFailed); setErr != nil {
		o.logger.Warn("set_status_failed_failed", "file_id", fileID, "error", setErr)
	}
	o.hub.Publish(fileID, progress.Message{Type: progress.ErrorMessage, Error: err.Error()})
}
