package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncFile_EmptyDatasetSucceeds(t *testing.T) {
	s := newTestServer(t)
	fileID, err := s.datasetStore.CreateDataset(context.Background(), "parts.csv", "text/csv")
	require.NoError(t, err)

	rec := doRequest(t, s.mux, http.MethodPost, "/sync/sync-file/"+strconv.FormatInt(fileID, 10), s.authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)

	meta, err := s.datasetStore.Get(context.Background(), fileID)
	require.NoError(t, err)
	assert.True(t, meta.IndexSynced)
}

func TestSyncFile_InvalidIDReturns400(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s.mux, http.MethodPost, "/sync/sync-file/not-a-number", s.authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncAll_ReturnsOneOutcomePerDataset(t *testing.T) {
	s := newTestServer(t)
	_, err := s.datasetStore.CreateDataset(context.Background(), "a.csv", "text/csv")
	require.NoError(t, err)
	_, err = s.datasetStore.CreateDataset(context.Background(), "b.csv", "text/csv")
	require.NoError(t, err)

	rec := doRequest(t, s.mux, http.MethodPost, "/sync/sync-all", s.authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)

	var outcomes []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcomes))
	assert.Len(t, outcomes, 2)
}

func TestSyncStatus_ReflectsLastSyncOutcome(t *testing.T) {
	s := newTestServer(t)
	fileID, err := s.datasetStore.CreateDataset(context.Background(), "parts.csv", "text/csv")
	require.NoError(t, err)
	require.NoError(t, s.datasetStore.SetSyncResult(context.Background(), fileID, true, ""))

	rec := doRequest(t, s.mux, http.MethodGet, "/sync/sync-status", s.authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)

	var statuses []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, true, statuses[0]["index_synced"])
}
