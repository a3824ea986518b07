// Package main provides the entry point for the partsearchd server.
package main

import (
	"os"

	"github.com/partforge/partsearch/cmd/partsearchd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
