// Command kvindex drives the indexing core (package index) against a
// file- or SQLite-backed KV store from the command line: reindex, search,
// bulk-load, and control-record maintenance.
// Build with: go build -o bin/kvindex ./cmd/kvindex
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
