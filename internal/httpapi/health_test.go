package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthLive_AlwaysOK(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s.mux, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReady_OKWhenStoreReachable(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s.mux, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints_DoNotRequireAuth(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s.mux, http.MethodGet, "/health/live", nil)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}
