package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/expensomatic/internal/archive"
	"github.com/dvloznov/expensomatic/internal/browser"
	"github.com/dvloznov/expensomatic/internal/claims"
	"github.com/dvloznov/expensomatic/internal/expense"
	"github.com/dvloznov/expensomatic/internal/filer"
	"github.com/dvloznov/expensomatic/internal/logger"
	"github.com/dvloznov/expensomatic/internal/pipeline"
	"github.com/dvloznov/expensomatic/internal/vision"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Classify receipts and submit them as expense claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.GeminiAPIKey == "" {
				return fmt.Errorf("gemini_api_key not set (config key or GEMINI_API_KEY)")
			}

			ctx := logger.WithContext(context.Background(), log)

			if cfg.TakeScreenshots {
				if err := os.MkdirAll(cfg.ScreenshotDir, 0o755); err != nil {
					return fmt.Errorf("create screenshot dir: %w", err)
				}
			}

			classifier := vision.NewClassifier(
				vision.NewGemini(cfg.GeminiAPIKey, cfg.Model),
				expense.StalenessPolicy{Enabled: cfg.OverrideOldDates, MaxAgeDays: cfg.MaxDaysOld},
			)

			session, err := browser.NewSession(ctx, browser.Options{
				UserDataDir:     cfg.UserDataDir,
				Headless:        cfg.Headless,
				ScreenshotDir:   cfg.ScreenshotDir,
				TakeScreenshots: cfg.TakeScreenshots,
			})
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			defer session.Close()

			if err := session.CheckLogin(ctx, cfg.LoginURL); err != nil {
				return fmt.Errorf("login check: %w", err)
			}

			batchSize := cfg.MaxBatchSize
			if batchSize > claims.MaxBatchSize {
				log.Warn().
					Int("configured", batchSize).
					Int("limit", claims.MaxBatchSize).
					Msg("max_batch_size exceeds the form's item limit, clamping")
				batchSize = claims.MaxBatchSize
			}

			var archiver pipeline.Archiver
			if cfg.ArchiveBucket != "" {
				archiver = archive.New(cfg.ArchiveBucket, archive.GCSUploader{})
			}

			runner := &pipeline.Runner{
				ReceiptsDir:  cfg.ReceiptsDir,
				ProjectID:    cfg.ProjectID,
				MaxBatchSize: batchSize,
				Classifier:   classifier,
				Submitter:    claims.NewSubmitter(session),
				Filer:        filer.New(cfg.ReceiptsDir),
				Confirmer:    pipeline.NewStdinConfirmer(),
				Archiver:     archiver,
			}

			sum, err := runner.Run(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Run aborted")
				return err
			}

			printSummary(sum)
			return nil
		},
	}
}

func printSummary(sum *pipeline.Summary) {
	fmt.Println("\n=== Run Summary ===")
	fmt.Printf("Run ID:            %s\n", sum.RunID)
	fmt.Printf("Receipts found:    %d\n", sum.FilesFound)
	fmt.Printf("Batches submitted: %d of %d\n", sum.BatchesSubmitted, sum.BatchesPlanned)
	for _, name := range sum.ClaimNames {
		fmt.Printf("  claim: %s\n", name)
	}
	if sum.DatesAdjusted > 0 {
		fmt.Printf("Dates adjusted:    %d\n", sum.DatesAdjusted)
	}
	if len(sum.FailedFiles) > 0 {
		fmt.Printf("Failed receipts:   %d (moved to %s/)\n", len(sum.FailedFiles), filer.FailedDirName)
		for _, f := range sum.FailedFiles {
			fmt.Printf("  %s\n", f)
		}
	}
}
