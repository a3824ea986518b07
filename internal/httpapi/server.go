// Package httpapi wires the core components behind the HTTP surface
// described for the service: auth, chunked upload, part search, index
// sync, health, and a progress WebSocket.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/partforge/partsearch/internal/authsvc"
	"github.com/partforge/partsearch/internal/cache"
	"github.com/partforge/partsearch/internal/collab"
	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/indexsync"
	"github.com/partforge/partsearch/internal/orchestrator"
	"github.com/partforge/partsearch/internal/progress"
	"github.com/partforge/partsearch/internal/search"
	"github.com/partforge/partsearch/internal/upload"
)

// Deps bundles every collaborator and core component the HTTP layer
// dispatches to. All fields are required except Auth/RateLimit/Analytics/
// Translator, which default to their noop collab implementations.
type Deps struct {
	DatasetStore *dataset.Store
	Engine       *search.Engine
	Syncer       *indexsync.Syncer
	Cache        *cache.Cache
	Hub          *progress.Hub
	Uploads      *upload.Manager
	Orchestrator *orchestrator.Orchestrator
	Users        *authsvc.Service // nil when Auth is wired to an external scheme

	Auth       collab.AuthVerifier
	RateLimit  collab.RateLimiter
	Analytics  collab.AnalyticsRecorder
	Translator collab.QueryTranslator

	Logger *slog.Logger
}

func (d *Deps) fillDefaults() {
	if d.Auth == nil {
		d.Auth = collab.NoopAuth{}
	}
	if d.RateLimit == nil {
		d.RateLimit = collab.NoopRateLimiter{}
	}
	if d.Analytics == nil {
		d.Analytics = collab.NoopAnalytics{}
	}
	if d.Translator == nil {
		d.Translator = collab.DisabledTranslator{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
}

// NewMux builds the routed HTTP handler, per §6's endpoint surface.
// Authentication and rate limiting wrap every route except /health/* and
// the /auth/login and /auth/register endpoints.
func NewMux(deps *Deps) http.Handler {
	deps.fillDefaults()
	h := &handlers{Deps: deps}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", h.healthLive)
	mux.HandleFunc("GET /health/ready", h.healthReady)

	mux.HandleFunc("POST /auth/login", h.authLogin)
	mux.HandleFunc("POST /auth/register", h.authRegister)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /upload", h.uploadSingleShot)
	protected.HandleFunc("POST /upload/multipart/init", h.uploadInit)
	protected.HandleFunc("POST /upload/multipart/part", h.uploadPart)
	protected.HandleFunc("POST /upload/multipart/complete", h.uploadComplete)
	protected.HandleFunc("POST /upload/{file_id}/cancel", h.uploadCancel)
	protected.HandleFunc("GET /upload/", h.uploadList)
	protected.HandleFunc("GET /upload/{id}", h.uploadGet)
	protected.HandleFunc("DELETE /upload/{id}", h.uploadDelete)
	protected.HandleFunc("GET /upload/{id}/rows", h.uploadRows)

	protected.HandleFunc("POST /query/search-part", h.searchPart)
	protected.HandleFunc("POST /query/search-part-bulk", h.searchPartBulk)
	protected.HandleFunc("POST /query/search-part-bulk-upload", h.searchPartBulkUpload)
	protected.HandleFunc("POST /bulk-search/bulk-excel-search", h.bulkExcelSearch)

	protected.HandleFunc("POST /sync/sync-file/{id}", h.syncFile)
	protected.HandleFunc("POST /sync/sync-all", h.syncAll)
	protected.HandleFunc("GET /sync/sync-status", h.syncStatus)

	protected.HandleFunc("GET /ws/{file_id}", h.wsProgress)

	mux.Handle("/", h.withAuthAndRateLimit(protected))
	return mux
}

// withAuthAndRateLimit enforces §6's bearer-auth-except-health and 429
// advisory rate-limit contract ahead of every protected route.
func (h *handlers) withAuthAndRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.Auth.Verify(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		if !h.RateLimit.Allow(userID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type userIDContextKey struct{}

func userIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDContextKey{}).(string); ok {
		return v
	}
	return ""
}

type handlers struct {
	*Deps
}

func requestTimeout() time.Duration { return 30 * time.Second }
