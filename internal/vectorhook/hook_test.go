package vectorhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHook_UpsertAndCount(t *testing.T) {
	h := New(DefaultConfig(4))
	ctx := context.Background()

	require.NoError(t, h.Upsert(ctx, "1_1", []float32{1, 0, 0, 0}))
	require.NoError(t, h.Upsert(ctx, "1_2", []float32{0, 1, 0, 0}))
	assert.Equal(t, 2, h.Count())
}

func TestHook_UpsertReplacesExistingID(t *testing.T) {
	h := New(DefaultConfig(3))
	ctx := context.Background()

	require.NoError(t, h.Upsert(ctx, "1_1", []float32{1, 0, 0}))
	require.NoError(t, h.Upsert(ctx, "1_1", []float32{0, 1, 0}))
	assert.Equal(t, 1, h.Count())
}

func TestHook_DeleteRemovesID(t *testing.T) {
	h := New(DefaultConfig(2))
	ctx := context.Background()

	require.NoError(t, h.Upsert(ctx, "1_1", []float32{1, 0}))
	require.NoError(t, h.Delete(ctx, "1_1"))
	assert.Equal(t, 0, h.Count())
}

func TestHook_UpsertRejectsDimensionMismatch(t *testing.T) {
	h := New(DefaultConfig(4))
	err := h.Upsert(context.Background(), "1_1", []float32{1, 0})
	assert.Error(t, err)
}

func TestHook_OperationsFailAfterClose(t *testing.T) {
	h := New(DefaultConfig(2))
	require.NoError(t, h.Close())
	assert.Error(t, h.Upsert(context.Background(), "1_1", []float32{1, 0}))
}
