package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/partforge/partsearch/internal/config"
	"github.com/partforge/partsearch/internal/dataset"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the metadata database and exit",
		Long: `migrate opens the metadata database, which runs the store's own
migration steps as part of opening, then exits without starting the
HTTP server. Useful for applying schema changes ahead of a rolling
deploy instead of paying the migration cost on a cold server start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			dbPath := filepath.Join(cfg.Paths.DataDir, "partsearch.db")
			datasetStore, err := dataset.Open(dbPath)
			if err != nil {
				return fmt.Errorf("migrate metadata database: %w", err)
			}
			defer datasetStore.Close()

			fmt.Printf("metadata database at %s is up to date\n", dbPath)
			return nil
		},
	}
	return cmd
}
