package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/kvindex/index"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild every index record from the backing entries",
	Args:  cobra.NoArgs,
	RunE:  runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("kvindex: open engine: %w", err)
	}

	progress := func(phase string, done, total int) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d\n", phase, done, total)
	}
	if err := e.Reindex(index.ProgressFunc(progress)); err != nil {
		return fmt.Errorf("kvindex: reindex: %w (%s)", err, e.LastError())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "reindex complete")
	return nil
}
