package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/partforge/partsearch/internal/authsvc"
	"github.com/partforge/partsearch/internal/cache"
	"github.com/partforge/partsearch/internal/collab"
	"github.com/partforge/partsearch/internal/config"
	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/httpapi"
	"github.com/partforge/partsearch/internal/indexsync"
	"github.com/partforge/partsearch/internal/logging"
	"github.com/partforge/partsearch/internal/orchestrator"
	"github.com/partforge/partsearch/internal/progress"
	"github.com/partforge/partsearch/internal/search"
	"github.com/partforge/partsearch/internal/store"
	"github.com/partforge/partsearch/internal/upload"
	"github.com/partforge/partsearch/internal/vectorhook"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the partsearchd HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, cleanup, err := logging.Setup(logging.Config{
				Level:         cfg.Server.LogLevel,
				FilePath:      logging.DefaultLogPath(),
				MaxSizeMB:     10,
				MaxFiles:      5,
				WriteToStderr: true,
			})
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}
			defer cleanup()

			return runServe(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	datasetStore, err := dataset.Open(filepath.Join(cfg.Paths.DataDir, "partsearch.db"))
	if err != nil {
		return fmt.Errorf("open dataset store: %w", err)
	}
	defer datasetStore.Close()

	bleveIndex, err := store.OpenBleveIndex(cfg.Index.IndexDir)
	if err != nil {
		return fmt.Errorf("open bleve index: %w", err)
	}
	defer bleveIndex.Close()

	relationalBackend, err := store.OpenRelationalBackend(filepath.Join(cfg.Paths.DataDir, "partsearch.db"))
	if err != nil {
		return fmt.Errorf("open relational backend: %w", err)
	}
	defer relationalBackend.Close()

	var vectors *vectorhook.Hook
	if cfg.Vector.Enabled {
		vectors = vectorhook.New(vectorhook.Config{
			Dimensions: cfg.Vector.Dimensions,
			M:          cfg.Vector.M,
			EfSearch:   cfg.Vector.EfSearch,
		})
		defer vectors.Close()
	}

	backends := backendPriority(cfg, bleveIndex, relationalBackend)
	engine := search.New(ctx, backends,
		search.WithConfig(search.EngineConfig{
			BulkDirectThreshold: 10_000,
			ChunkSize:           cfg.Index.ChunkRows,
			WorkerPoolSize:      cfg.Index.SyncWorkers,
			ChunkTimeout:        cfg.Index.SearchTimeout,
		}),
		search.WithLogger(logger),
	)

	syncer := indexsync.New(datasetStore, bleveIndex, vectors, logger)
	resultCache := cache.New(cfg.Cache.MaxEntries)
	hub := progress.New()

	var orch *orchestrator.Orchestrator
	uploadsMgr, err := upload.NewManager(cfg.Paths.UploadDir, datasetStore, func(fileID int64, tempPath, filename string) {
		go func() {
			if err := orch.Run(context.Background(), fileID, tempPath, filename); err != nil {
				logger.Error("orchestrator_run_failed", "file_id", fileID, "error", err)
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("init upload manager: %w", err)
	}
	go uploadsMgr.Run(ctx, cfg.Upload.GCInterval)

	orch = orchestrator.New(datasetStore, syncer, engine, resultCache, hub, cfg.Paths.UploadDir, logger)

	if cfg.Paths.DropFolder != "" {
		go func() {
			if err := orch.WatchDropFolder(ctx, cfg.Paths.DropFolder); err != nil {
				logger.Error("drop_folder_watch_failed", "dir", cfg.Paths.DropFolder, "error", err)
			}
		}()
	}

	users := authsvc.New()
	var auth collab.AuthVerifier = users
	if cfg.Auth.Enabled && cfg.Auth.Secret != "" {
		auth = collab.HeaderTokenAuth{HeaderKey: cfg.Auth.HeaderKey, Secret: cfg.Auth.Secret}
	}

	var rateLimit collab.RateLimiter = collab.NoopRateLimiter{}
	if cfg.RateLimit.Enabled {
		rateLimit = collab.NewTokenBucketLimiter(cfg.RateLimit.Burst, time.Minute)
	}

	mux := httpapi.NewMux(&httpapi.Deps{
		DatasetStore: datasetStore,
		Engine:       engine,
		Syncer:       syncer,
		Cache:        resultCache,
		Hub:          hub,
		Uploads:      uploadsMgr,
		Orchestrator: orch,
		Users:        users,
		Auth:         auth,
		RateLimit:    rateLimit,
		Logger:       logger,
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server_shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// backendPriority orders backends per the configured primary, with the
// other as fallback, per §4.7's priority-chain contract.
func backendPriority(cfg *config.Config, bleveIndex *store.BleveIndex, relational *store.RelationalBackend) []store.Backend {
	if cfg.Index.Backend == "relational" {
		return []store.Backend{relational, bleveIndex}
	}
	return []store.Backend{bleveIndex, relational}
}
