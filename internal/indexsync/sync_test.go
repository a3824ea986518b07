package indexsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/schema"
	"github.com/partforge/partsearch/internal/store"
	"github.com/partforge/partsearch/internal/vectorhook"
)

func newTestSyncer(t *testing.T) (*Syncer, *dataset.Store, *store.BleveIndex, int64) {
	t.Helper()
	ds, err := dataset.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	fileID, err := ds.CreateDataset(context.Background(), "parts.csv", "text/csv")
	require.NoError(t, err)
	require.NoError(t, ds.EnsureTable(context.Background(), t.TempDir(), fileID))

	idx, err := store.OpenBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	vectors := vectorhook.New(vectorhook.DefaultConfig(8))
	return New(ds, idx, vectors, nil), ds, idx, fileID
}

func TestSyncer_Sync_IndexesAllRows(t *testing.T) {
	s, ds, idx, fileID := newTestSyncer(t)
	ctx := context.Background()

	rows := []schema.Row{
		{PartNumber: "3585720", ItemDescription: "CONN 3585720 GOLD", HasPartNumber: true},
		{PartNumber: "ABC-123", ItemDescription: "WIDGET ABC-123", HasPartNumber: true},
	}
	require.NoError(t, ds.InsertBatch(ctx, fileID, rows))

	var lastBatch int
	require.NoError(t, s.Sync(ctx, fileID, func(batchNum int, rowsSynced int64) { lastBatch = batchNum }))
	assert.Equal(t, 1, lastBatch)

	result, err := idx.SearchSingle(ctx, fileID, "3585720", store.ModeHybrid, 0, 10, false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)
}

func TestSyncer_Sync_PaginatesAcrossMultipleBatches(t *testing.T) {
	s, ds, idx, fileID := newTestSyncer(t)
	ctx := context.Background()

	rows := make([]schema.Row, 0, PageSize+5)
	for i := 0; i < PageSize+5; i++ {
		rows = append(rows, schema.Row{PartNumber: "ABC", ItemDescription: "widget", HasPartNumber: true})
	}
	require.NoError(t, ds.InsertBatch(ctx, fileID, rows))

	var batches int
	require.NoError(t, s.Sync(ctx, fileID, func(batchNum int, rowsSynced int64) { batches = batchNum }))
	assert.Equal(t, 2, batches)

	result, err := idx.SearchSingle(ctx, fileID, "ABC", store.ModeHybrid, 0, 10, true)
	require.NoError(t, err)
	assert.Equal(t, PageSize+5, result.TotalMatches)
}

func TestSyncer_Sync_IsIdempotentOnRerun(t *testing.T) {
	s, ds, idx, fileID := newTestSyncer(t)
	ctx := context.Background()

	require.NoError(t, ds.InsertBatch(ctx, fileID, []schema.Row{
		{PartNumber: "ABC", ItemDescription: "widget", HasPartNumber: true},
	}))
	require.NoError(t, s.Sync(ctx, fileID, nil))
	require.NoError(t, s.Sync(ctx, fileID, nil))

	result, err := idx.SearchSingle(ctx, fileID, "ABC", store.ModeHybrid, 0, 10, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalMatches)
}

func TestSyncer_Sync_EmptyTableIsNoOp(t *testing.T) {
	s, _, _, fileID := newTestSyncer(t)
	require.NoError(t, s.Sync(context.Background(), fileID, nil))
}

func TestSyncer_Sync_NilVectorHookIsTolerated(t *testing.T) {
	ds, err := dataset.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	fileID, err := ds.CreateDataset(context.Background(), "parts.csv", "text/csv")
	require.NoError(t, err)
	require.NoError(t, ds.EnsureTable(context.Background(), t.TempDir(), fileID))
	require.NoError(t, ds.InsertBatch(context.Background(), fileID, []schema.Row{
		{PartNumber: "ABC", ItemDescription: "widget", HasPartNumber: true},
	}))

	idx, err := store.OpenBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	s := New(ds, idx, nil, nil)
	require.NoError(t, s.Sync(context.Background(), fileID, nil))
}
