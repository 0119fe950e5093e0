package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourceplane/jobwrecker/internal/git"
	"github.com/sourceplane/jobwrecker/internal/render"
)

var (
	changedOnly bool
	baseRef     string
)

func registerBatchCommand(root *cobra.Command) {
	batchCmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Convert every XML configuration below a directory",
		Long:  "Convert every XML configuration below a directory. A Jenkins home layout (jobs/<name>/config.xml) names jobs after their folders; other files are named after their path.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			converter, err := newConverter()
			if err != nil {
				return err
			}

			dir := args[0]
			start := time.Now()
			var outcomes []render.Outcome
			if changedOnly {
				fmt.Printf("□ Finding configurations changed since %s...\n", baseRef)
				changed, detectErr := git.NewChangeDetector(dir, baseRef).ChangedFilesUnder(cmd.Context(), dir)
				if detectErr != nil {
					return fmt.Errorf("failed to detect changes: %w", detectErr)
				}
				fmt.Printf("□ Converting changed configurations in %s (%d workers)...\n", dir, cfg.Workers)
				outcomes, err = converter.ConvertChanged(cmd.Context(), dir, changed)
			} else {
				fmt.Printf("□ Converting configurations in %s (%d workers)...\n", dir, cfg.Workers)
				outcomes, err = converter.ConvertDir(cmd.Context(), dir)
			}
			if err != nil {
				return fmt.Errorf("failed to convert directory: %w", err)
			}
			fmt.Printf("✓ Processed %d configurations in %s\n", len(outcomes), time.Since(start).Round(time.Millisecond))

			return report(outcomes)
		},
	}

	batchCmd.Flags().BoolVar(&changedOnly, "changed", false, "Convert only configurations changed in git")
	batchCmd.Flags().StringVar(&baseRef, "base", "main", "Base ref for changed detection")

	root.AddCommand(batchCmd)
}
