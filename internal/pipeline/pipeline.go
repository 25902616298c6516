// Package pipeline sequences one full run: discover receipt files, classify
// each batch, submit the batch as a claim, mirror the outcome onto the
// filesystem, and pause for operator confirmation between batches.
//
// The run is strictly sequential: one receipt classified at a time, one
// batch submitted at a time, the session handle owned by one actor. The
// claim workflow is a long linear UI-driven sequence with no safe
// interleaving semantics.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expensomatic/internal/batch"
	"github.com/dvloznov/expensomatic/internal/expense"
	"github.com/dvloznov/expensomatic/internal/logger"
)

// Classifier turns one receipt file into a validated expense record.
type Classifier interface {
	Classify(ctx context.Context, path string) (*expense.Expense, error)
}

// Submitter submits one batch as a claim and returns the claim name.
type Submitter interface {
	Submit(ctx context.Context, items []*expense.Expense, projectID string) (string, error)
}

// Filer performs the post-outcome file moves.
type Filer interface {
	FileFailed(path string) error
	FileSubmitted(path, claimName string) error
	ClaimDir(claimName string) string
}

// Archiver optionally copies a filed claim folder off-site.
type Archiver interface {
	ArchiveClaim(ctx context.Context, claimDir string) error
}

// Runner drives a full pipeline run with injected collaborators.
type Runner struct {
	ReceiptsDir  string
	ProjectID    string
	MaxBatchSize int

	Classifier Classifier
	Submitter  Submitter
	Filer      Filer
	Confirmer  Confirmer

	// Archiver may be nil, in which case no archiving happens.
	Archiver Archiver
}

// Summary is the outcome of one run. It lives only for the invocation;
// nothing is persisted across runs.
type Summary struct {
	RunID            string
	FilesFound       int
	BatchesPlanned   int
	BatchesSubmitted int
	ClaimNames       []string
	FailedFiles      []string
	DatesAdjusted    int
}

// Run executes the pipeline. A run that submits zero batches is not an
// error; a submission failure is fatal and aborts the whole run, leaving
// that batch's receipts unmoved. Declining the inter-batch checkpoint stops
// the run cleanly: already-filed batches stay filed, remaining receipts
// stay in place.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	log := logger.FromContext(ctx)
	sum := &Summary{RunID: uuid.NewString()}

	files, err := Discover(r.ReceiptsDir)
	if err != nil {
		return sum, err
	}
	sum.FilesFound = len(files)
	if len(files) == 0 {
		log.Warn().Str("dir", r.ReceiptsDir).Msg("No receipts found")
		return sum, nil
	}

	batches := batch.Plan(files, r.MaxBatchSize)
	sum.BatchesPlanned = len(batches)
	log.Info().
		Str("run_id", sum.RunID).
		Int("receipts", len(files)).
		Int("claims", len(batches)).
		Msg("Starting run")

	for bi, batchFiles := range batches {
		blog := log.With().Int("batch", bi+1).Int("of", len(batches)).Logger()
		blog.Info().Int("receipts", len(batchFiles)).Msg("Analyzing batch")

		expenses := r.classifyBatch(logger.WithContext(ctx, blog), batchFiles, sum)

		if len(expenses) == 0 {
			blog.Warn().Msg("No valid expenses in batch, skipping submission")
			continue
		}

		for i, e := range expenses {
			blog.Info().
				Int("item", i+1).
				Str("description", e.Description).
				Str("amount", expense.CurrencySymbol(e.Currency)+e.Amount.StringFixed(2)).
				Msg("Ready to submit")
		}

		claimName, err := r.Submitter.Submit(logger.WithContext(ctx, blog), expenses, r.ProjectID)
		if err != nil {
			// Fatal: leaving this batch's receipts un-filed in an
			// ambiguous state is worse than stopping the run.
			return sum, fmt.Errorf("batch %d/%d: %w", bi+1, len(batches), err)
		}
		sum.ClaimNames = append(sum.ClaimNames, claimName)

		r.fileBatch(ctx, blog, expenses, claimName)
		sum.BatchesSubmitted++
		blog.Info().Str("claim", claimName).Msg("Batch completed")

		if bi+1 < len(batches) {
			if err := r.Confirmer.Confirm(ctx, len(batches)-bi-1); err != nil {
				blog.Warn().Err(err).Msg("Stopping at checkpoint; remaining receipts left in place")
				return sum, nil
			}
		}
	}

	r.logOutcome(log, sum)
	return sum, nil
}

// classifyBatch classifies every file in the batch, filing failures
// immediately and returning the validated expenses in order.
func (r *Runner) classifyBatch(ctx context.Context, files []string, sum *Summary) []*expense.Expense {
	log := logger.FromContext(ctx)

	var expenses []*expense.Expense
	for i, path := range files {
		log.Info().
			Int("receipt", i+1).
			Int("of", len(files)).
			Str("file", filepath.Base(path)).
			Msg("Classifying")

		exp, err := r.Classifier.Classify(ctx, path)
		if err != nil {
			log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("Classification failed, filing as failed")
			if ferr := r.Filer.FileFailed(path); ferr != nil {
				// Best-effort bookkeeping: the file stays in place and
				// is not listed as filed.
				log.Error().Err(ferr).Str("file", filepath.Base(path)).Msg("Could not move failed receipt")
				continue
			}
			sum.FailedFiles = append(sum.FailedFiles, filepath.Base(path))
			continue
		}
		if exp.DateAdjusted {
			sum.DatesAdjusted++
		}
		expenses = append(expenses, exp)
	}
	return expenses
}

// fileBatch moves each submitted receipt into the claim folder and
// optionally archives the folder. All failures here are non-fatal: the
// submission itself is already final.
func (r *Runner) fileBatch(ctx context.Context, log zerolog.Logger, expenses []*expense.Expense, claimName string) {
	moved := 0
	for _, e := range expenses {
		if err := r.Filer.FileSubmitted(e.ReceiptPath, claimName); err != nil {
			log.Error().Err(err).Str("file", filepath.Base(e.ReceiptPath)).Msg("Could not move submitted receipt")
			continue
		}
		moved++
	}
	log.Info().Int("moved", moved).Str("claim", claimName).Msg("Receipts filed")

	if r.Archiver != nil && moved > 0 {
		if err := r.Archiver.ArchiveClaim(ctx, r.Filer.ClaimDir(claimName)); err != nil {
			log.Error().Err(err).Str("claim", claimName).Msg("Archiving failed")
		}
	}
}

func (r *Runner) logOutcome(log zerolog.Logger, sum *Summary) {
	if sum.BatchesSubmitted == 0 {
		log.Warn().Msg("No batches were submitted (all receipts failed analysis)")
	} else {
		log.Info().Int("batches", sum.BatchesSubmitted).Msg("All batches completed")
	}
	if len(sum.FailedFiles) > 0 {
		log.Warn().
			Int("count", len(sum.FailedFiles)).
			Strs("files", sum.FailedFiles).
			Msg("Receipts failed analysis and were moved to failed/")
	}
}
