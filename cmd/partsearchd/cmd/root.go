// Package cmd provides the CLI commands for partsearchd.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/partforge/partsearch/pkg/version"
)

var configDir string

// NewRootCmd creates the root command for the partsearchd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "partsearchd",
		Short:   "Dataset-ingestion and part-number search service",
		Version: version.Version,
		Long: `partsearchd ingests uploaded part-list files (CSV/XLSX), indexes them,
and serves part-number search over HTTP.

Run 'partsearchd serve' to start the HTTP server.`,
	}
	cmd.SetVersionTemplate("partsearchd version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory to look for partsearch.yaml in")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
