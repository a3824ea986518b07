// Package indexsync drives rows from a dataset's physical table into the
// search index and the vector upsert hook, one dataset at a time.
package indexsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/store"
	"github.com/partforge/partsearch/internal/vectorhook"
)

// PageSize is the fixed batch size index sync paginates the dataset table
// in, per §4.6.
const PageSize = 1000

// ProgressFunc is notified after each batch commits; batchNum is 1-indexed.
type ProgressFunc func(batchNum int, rowsSynced int64)

// Syncer ensures the external index holds one document per row of a
// dataset's physical table.
type Syncer struct {
	datasetStore *dataset.Store
	index        *store.BleveIndex
	vectors      *vectorhook.Hook
	logger       *slog.Logger
}

// New builds a Syncer. vectors may be nil: the vector hook is a fire-and-
// forget upsert target, not required for sync to be considered complete.
func New(datasetStore *dataset.Store, index *store.BleveIndex, vectors *vectorhook.Hook, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{datasetStore: datasetStore, index: index, vectors: vectors, logger: logger}
}

// Sync paginates ds_<file_id> in fixed-size batches, upserting each batch
// into the index (and best-effort into the vector hook) before advancing.
// It is idempotent: re-running overwrites documents by id. Failure of any
// batch aborts the run and the error is the caller's to record on dataset
// metadata.
func (s *Syncer) Sync(ctx context.Context, fileID int64, onProgress ProgressFunc) error {
	var afterID int64
	var synced int64
	batchNum := 0

	for {
		rows, err := s.datasetStore.RowsPage(ctx, fileID, afterID, PageSize)
		if err != nil {
			return fmt.Errorf("read page after id %d: %w", afterID, err)
		}
		if len(rows) == 0 {
			break
		}
		batchNum++

		docs := make([]store.PartDoc, 0, len(rows))
		for _, r := range rows {
			docs = append(docs, store.PartDoc{
				FileID:          fileID,
				RowID:           r.RowID,
				PartNumber:      r.PartNumber,
				ItemDescription: r.ItemDescription,
				Quantity:        r.Quantity,
				UnitPrice:       r.UnitPrice,
				PrimaryBuyer:    r.PrimaryBuyer,
			})
		}

		if err := s.index.Upsert(ctx, docs); err != nil {
			return fmt.Errorf("upsert batch %d: %w", batchNum, err)
		}
		s.upsertVectorsBestEffort(ctx, fileID, rows)

		synced += int64(len(rows))
		afterID = rows[len(rows)-1].RowID
		s.logger.Debug("index_sync_batch_committed", "file_id", fileID, "batch", batchNum, "rows_synced", synced)
		if onProgress != nil {
			onProgress(batchNum, synced)
		}

		if len(rows) < PageSize {
			break
		}
	}

	return nil
}

// upsertVectorsBestEffort feeds the vector hook without letting its failure
// abort the sync: the hook never gates search correctness (§3 non-goal).
func (s *Syncer) upsertVectorsBestEffort(ctx context.Context, fileID int64, rows []dataset.Row) {
	if s.vectors == nil {
		return
	}
	for _, r := range rows {
		key := fmt.Sprintf("%d_%d", fileID, r.RowID)
		vec := placeholderVector(r, s.vectors)
		if err := s.vectors.Upsert(ctx, key, vec); err != nil {
			s.logger.Debug("vector_upsert_skipped", "file_id", fileID, "row_id", r.RowID, "error", err)
		}
	}
}

// placeholderVector derives a deterministic vector from a row's text so the
// hook has something shaped correctly to upsert; nothing ever queries it.
func placeholderVector(r dataset.Row, h *vectorhook.Hook) []float32 {
	dims := h.Dimensions()
	v := make([]float32, dims)
	text := r.PartNumber + r.ItemDescription
	for i := range v {
		if len(text) == 0 {
			continue
		}
		v[i] = float32(text[i%len(text)]) / 255.0
	}
	return v
}
