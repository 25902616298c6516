package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dvloznov/expensomatic/internal/batch"
	"github.com/dvloznov/expensomatic/internal/pipeline"
)

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show which receipts would be picked up and how they batch, without submitting",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := pipeline.Discover(cfg.ReceiptsDir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Printf("No receipts found in %s\n", cfg.ReceiptsDir)
				return nil
			}

			batches := batch.Plan(files, cfg.MaxBatchSize)
			fmt.Printf("%d receipt(s) in %s, %d batch(es) of up to %d:\n",
				len(files), cfg.ReceiptsDir, len(batches), cfg.MaxBatchSize)
			for i, b := range batches {
				fmt.Printf("\nBatch %d/%d (%d items):\n", i+1, len(batches), len(b))
				for _, f := range b {
					fmt.Printf("  %s\n", filepath.Base(f))
				}
			}
			return nil
		},
	}
}
