// Package ingest drives the batch ingester (component E): it consumes a
// streaming parser's row batches, projects them onto the canonical schema,
// and commits them into a dataset's physical table with split-on-failure
// recovery from bad rows or parameter-limit overflows.
package ingest

import (
	"context"
	"log/slog"

	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/parser"
	"github.com/partforge/partsearch/internal/schema"
)

// MaxStringFieldLength bounds any string field per §3's row invariants.
const MaxStringFieldLength = 4000

// MaxDroppedSample bounds the in-memory sample of dropped rows surfaced on
// Result, resolving Open Question (ii): dropped rows are reported, not
// persisted to a dead-letter store.
const MaxDroppedSample = 50

// CancelCheck is polled between batches for cooperative abort.
type CancelCheck func() bool

// DroppedRow records why one row never made it into the dataset table.
type DroppedRow struct {
	Reason string
}

// Result summarizes one ingestion run.
type Result struct {
	TableName     string
	Inserted      int64
	Dropped       int64
	DroppedSample []DroppedRow
	Cancelled     bool
}

func (r *Result) recordDrop(reason string) {
	r.Dropped++
	if len(r.DroppedSample) < MaxDroppedSample {
		r.DroppedSample = append(r.DroppedSample, DroppedRow{Reason: reason})
	}
}

// ProgressFunc is notified after each batch commits; batchNum is 1-indexed.
type ProgressFunc func(batchNum int, rowsInserted int64)

// Options configures one Ingest call.
type Options struct {
	LockDir     string
	BatchSize   int
	CancelCheck CancelCheck
	Logger      *slog.Logger
	OnProgress  ProgressFunc
}

// Ingest consumes it until exhausted or cancelled, creating the dataset
// table on the first non-empty batch, and committing rows in batches with
// split-on-failure recovery. Per-batch invalid rows never abort the run.
func Ingest(ctx context.Context, store *dataset.Store, fileID int64, it parser.RowIterator, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = parser.DefaultBatchSize
	}

	result := Result{TableName: dataset.TableName(fileID)}
	tableCreated := false
	batchNum := 0

	for {
		if opts.CancelCheck != nil && opts.CancelCheck() {
			result.Cancelled = true
			return result, nil
		}

		batch, done, err := it.NextBatch(batchSize)
		if err != nil {
			return result, err
		}

		if len(batch.Rows) > 0 {
			if !tableCreated {
				if err := store.EnsureTable(ctx, opts.LockDir, fileID); err != nil {
					return result, err
				}
				tableCreated = true
			}

			valid := cleanAndValidate(batch.Rows, &result)
			inserted, dropped := insertWithSplit(ctx, store, fileID, valid)
			result.Inserted += int64(inserted)
			for range dropped {
				result.recordDrop("split-on-failure: isolated bad row after batch insert failure")
			}

			logger.Debug("ingest_batch_committed",
				slog.Int64("file_id", fileID),
				slog.Int("inserted", inserted),
				slog.Int("dropped_in_batch", len(batch.Rows)-len(valid)+len(dropped)),
			)

			batchNum++
			if opts.OnProgress != nil {
				opts.OnProgress(batchNum, result.Inserted)
			}
		}

		if done {
			return result, nil
		}
	}
}

// cleanAndValidate projects each raw row onto the canonical schema and
// drops rows that fail coercion or the §3 row invariants, recording a
// sample reason for each drop.
func cleanAndValidate(raw []map[string]string, result *Result) []schema.Row {
	valid := make([]schema.Row, 0, len(raw))
	for _, r := range raw {
		row, errs := schema.NormalizeRow(r)
		if len(errs) > 0 {
			result.recordDrop(errs[0].Error())
			continue
		}
		if reason, ok := invariantViolation(row); ok {
			result.recordDrop(reason)
			continue
		}
		valid = append(valid, row)
	}
	return valid
}

func invariantViolation(row schema.Row) (string, bool) {
	if row.Quantity < 0 {
		return "quantity must be >= 0", true
	}
	if row.UnitPrice < 0 {
		return "unit_price must be >= 0", true
	}
	for _, f := range []string{row.PrimaryBuyer, row.ItemDescription, row.UnitOfMeasure, row.SecondaryBuyer,
		row.PrimaryBuyerContact, row.PrimaryBuyerEmail, row.PartNumber} {
		if len(f) > MaxStringFieldLength {
			return "string field exceeds maximum length", true
		}
	}
	return "", false
}

// insertWithSplit commits rows in one transaction; on failure it rolls
// back, splits the batch in half, and retries each half, recursing down to
// single rows. A single row that still fails to insert is dropped.
func insertWithSplit(ctx context.Context, store *dataset.Store, fileID int64, rows []schema.Row) (inserted, dropped int) {
	if len(rows) == 0 {
		return 0, 0
	}

	if err := store.InsertBatch(ctx, fileID, rows); err == nil {
		return len(rows), 0
	}

	if len(rows) == 1 {
		return 0, 1
	}

	mid := len(rows) / 2
	leftIns, leftDropped := insertWithSplit(ctx, store, fileID, rows[:mid])
	rightIns, rightDropped := insertWithSplit(ctx, store, fileID, rows[mid:])
	return leftIns + rightIns, leftDropped + rightDropped
}
