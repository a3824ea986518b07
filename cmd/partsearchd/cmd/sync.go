package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/partforge/partsearch/internal/config"
	"github.com/partforge/partsearch/internal/dataset"
	"github.com/partforge/partsearch/internal/indexsync"
	"github.com/partforge/partsearch/internal/store"
)

func newSyncCmd() *cobra.Command {
	var fileID int64
	var all bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Re-run index sync for one dataset or all datasets, without starting the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && fileID == 0 {
				return fmt.Errorf("specify --file-id or --all")
			}

			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

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

			syncer := indexsync.New(datasetStore, bleveIndex, nil, nil)
			ctx := context.Background()

			ids := []int64{fileID}
			if all {
				datasets, err := datasetStore.List(ctx)
				if err != nil {
					return fmt.Errorf("list datasets: %w", err)
				}
				ids = ids[:0]
				for _, meta := range datasets {
					ids = append(ids, meta.FileID)
				}
			}

			for _, id := range ids {
				onProgress := func(batchNum int, rowsSynced int64) {
					fmt.Printf("file %d: batch %d, %d rows synced\n", id, batchNum, rowsSynced)
				}
				if err := syncer.Sync(ctx, id, onProgress); err != nil {
					datasetStore.SetSyncResult(ctx, id, false, err.Error())
					fmt.Printf("file %d: sync failed: %v\n", id, err)
					continue
				}
				datasetStore.SetSyncResult(ctx, id, true, "")
				fmt.Printf("file %d: sync complete\n", id)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&fileID, "file-id", 0, "dataset to sync")
	cmd.Flags().BoolVar(&all, "all", false, "sync every known dataset")
	return cmd
}
