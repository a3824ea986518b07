package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/partforge/partsearch/internal/authsvc"
	"github.com/partforge/partsearch/internal/cache"
	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/indexsync"
	"github.com/partforge/partsearch/internal/orchestrator"
	"github.com/partforge/partsearch/internal/progress"
	"github.com/partforge/partsearch/internal/search"
	"github.com/partforge/partsearch/internal/store"
	"github.com/partforge/partsearch/internal/upload"
)

// testServer bundles a live NewMux handler with the concrete stores behind
// it, so tests can seed data directly and assert on it afterward.
type testServer struct {
	mux          http.Handler
	datasetStore *dataset.Store
	users        *authsvc.Service
	hub          *progress.Hub
	index        *store.BleveIndex
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ds, err := dataset.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	idx, err := store.OpenBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	relational, err := store.OpenRelationalBackend("")
	require.NoError(t, err)
	t.Cleanup(func() { relational.Close() })

	engine := search.New(context.Background(), []store.Backend{idx, relational})
	syncer := indexsync.New(ds, idx, nil, nil)
	resultCache := cache.New(16)
	hub := progress.New()

	uploads, err := upload.NewManager(t.TempDir(), ds, nil)
	require.NoError(t, err)

	orch := orchestrator.New(ds, syncer, engine, resultCache, hub, t.TempDir(), nil)
	users := authsvc.New()

	mux := NewMux(&Deps{
		DatasetStore: ds,
		Engine:       engine,
		Syncer:       syncer,
		Cache:        resultCache,
		Hub:          hub,
		Uploads:      uploads,
		Orchestrator: orch,
		Users:        users,
		Auth:         users,
	})

	return &testServer{mux: mux, datasetStore: ds, users: users, hub: hub, index: idx}
}

func (s *testServer) hubForTest() *progress.Hub { return s.hub }

func (s *testServer) authHeader(t *testing.T) http.Header {
	t.Helper()
	require.NoError(t, s.users.Register("alice", "hunter2"))
	token, err := s.users.Login("alice", "hunter2")
	require.NoError(t, err)
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	return h
}

func doRequest(t *testing.T, mux http.Handler, method, target string, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}
