package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expensomatic/internal/expense"
	"github.com/dvloznov/expensomatic/internal/filer"
	"github.com/dvloznov/expensomatic/internal/pipeline"
)

// fakeClassifier succeeds unless the file's base name is listed in failing.
type fakeClassifier struct {
	failing map[string]bool
	date    time.Time
	calls   []string
}

func (c *fakeClassifier) Classify(_ context.Context, path string) (*expense.Expense, error) {
	base := filepath.Base(path)
	c.calls = append(c.calls, base)
	if c.failing[base] {
		return nil, errors.New("extraction failed")
	}
	name, id := expense.ResolveCategory("Lunch")
	return &expense.Expense{
		Amount:      decimal.NewFromFloat(9.99),
		Currency:    "GBP",
		Category:    name,
		CategoryID:  id,
		Description: base,
		Date:        c.date,
		ReceiptPath: path,
	}, nil
}

// fakeSubmitter names claims sequentially and can fail on a given batch
// number (1-based).
type fakeSubmitter struct {
	batches     [][]string
	failOnBatch int
}

func (s *fakeSubmitter) Submit(_ context.Context, items []*expense.Expense, _ string) (string, error) {
	var names []string
	for _, e := range items {
		names = append(names, filepath.Base(e.ReceiptPath))
	}
	s.batches = append(s.batches, names)
	if s.failOnBatch == len(s.batches) {
		return "", errors.New("save step failed")
	}
	return fmt.Sprintf("October 15 14:30:%02d", len(s.batches)), nil
}

// fakeConfirmer counts prompts and can decline after a given number.
type fakeConfirmer struct {
	prompts      int
	declineAfter int // 0 = never decline
}

func (c *fakeConfirmer) Confirm(_ context.Context, _ int) error {
	c.prompts++
	if c.declineAfter > 0 && c.prompts >= c.declineAfter {
		return errors.New("operator stopped")
	}
	return nil
}

type fakeArchiver struct {
	dirs []string
}

func (a *fakeArchiver) ArchiveClaim(_ context.Context, dir string) error {
	a.dirs = append(a.dirs, dir)
	return nil
}

func seedReceipts(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("receipt-%03d.jpg", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o600))
	}
	return dir
}

func newRunner(dir string, c pipeline.Classifier, s pipeline.Submitter, conf pipeline.Confirmer) *pipeline.Runner {
	return &pipeline.Runner{
		ReceiptsDir:  dir,
		ProjectID:    "proj-1",
		MaxBatchSize: 15,
		Classifier:   c,
		Submitter:    s,
		Filer:        filer.New(dir),
		Confirmer:    conf,
	}
}

func rootFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

// Scenario A: 17 receipts, all classify → 2 batches (15+2), 2 claims,
// nothing in failed/, one checkpoint prompt.
func TestRun_TwoBatches(t *testing.T) {
	dir := seedReceipts(t, 17)
	cls := &fakeClassifier{}
	sub := &fakeSubmitter{}
	conf := &fakeConfirmer{}

	sum, err := newRunner(dir, cls, sub, conf).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 17, sum.FilesFound)
	assert.Equal(t, 2, sum.BatchesPlanned)
	assert.Equal(t, 2, sum.BatchesSubmitted)
	assert.Empty(t, sum.FailedFiles)
	assert.Equal(t, 1, conf.prompts, "one checkpoint between two batches")

	require.Len(t, sub.batches, 2)
	assert.Len(t, sub.batches[0], 15)
	assert.Len(t, sub.batches[1], 2)

	// Every receipt moved out of the root, none into failed/.
	assert.Empty(t, rootFiles(t, dir))
	_, err = os.Stat(filepath.Join(dir, filer.FailedDirName))
	assert.True(t, os.IsNotExist(err), "failed/ should not exist")

	// Claim folders are named after the sanitized claim names.
	first, err := os.ReadDir(filepath.Join(dir, "October 15 14-30-01"))
	require.NoError(t, err)
	assert.Len(t, first, 15)
	second, err := os.ReadDir(filepath.Join(dir, "October 15 14-30-02"))
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

// Scenario B: 5 receipts, 2 fail classification → 1 batch of 3 submitted,
// failures in failed/ and excluded from the claim folder.
func TestRun_PartialClassificationFailure(t *testing.T) {
	dir := seedReceipts(t, 5)
	cls := &fakeClassifier{failing: map[string]bool{
		"receipt-001.jpg": true,
		"receipt-003.jpg": true,
	}}
	sub := &fakeSubmitter{}
	conf := &fakeConfirmer{}

	sum, err := newRunner(dir, cls, sub, conf).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.BatchesSubmitted)
	assert.ElementsMatch(t, []string{"receipt-001.jpg", "receipt-003.jpg"}, sum.FailedFiles)
	assert.Equal(t, 0, conf.prompts, "no checkpoint after the final batch")

	require.Len(t, sub.batches, 1)
	assert.ElementsMatch(t, []string{"receipt-000.jpg", "receipt-002.jpg", "receipt-004.jpg"}, sub.batches[0])

	failed, err := os.ReadDir(filepath.Join(dir, filer.FailedDirName))
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	claim, err := os.ReadDir(filepath.Join(dir, "October 15 14-30-01"))
	require.NoError(t, err)
	assert.Len(t, claim, 3)
	for _, e := range claim {
		assert.NotContains(t, sum.FailedFiles, e.Name())
	}
}

// stuckFiler fails every failed-receipt move while filing submitted
// receipts normally.
type stuckFiler struct {
	*filer.Filer
}

func (stuckFiler) FileFailed(string) error { return errors.New("rename failed") }

func TestRun_FailedFilesListsOnlyMovedReceipts(t *testing.T) {
	dir := seedReceipts(t, 2)
	cls := &fakeClassifier{failing: map[string]bool{"receipt-000.jpg": true}}
	sub := &fakeSubmitter{}

	r := newRunner(dir, cls, sub, &fakeConfirmer{})
	r.Filer = stuckFiler{filer.New(dir)}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	// The move failed, so the receipt stays in the root and must not be
	// reported as filed under failed/.
	assert.Empty(t, sum.FailedFiles)
	assert.Contains(t, rootFiles(t, dir), "receipt-000.jpg")
	assert.Equal(t, 1, sum.BatchesSubmitted)
}

// Scenario C is covered at the classifier level (stale date clamping); here
// the run-level adjusted-date count is asserted.
func TestRun_CountsAdjustedDates(t *testing.T) {
	dir := seedReceipts(t, 2)
	cls := &adjustingClassifier{}
	sub := &fakeSubmitter{}

	sum, err := newRunner(dir, cls, sub, &fakeConfirmer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.DatesAdjusted)
}

type adjustingClassifier struct{}

func (adjustingClassifier) Classify(_ context.Context, path string) (*expense.Expense, error) {
	name, id := expense.ResolveCategory("Dinner")
	return &expense.Expense{
		Amount:       decimal.NewFromInt(10),
		Currency:     "GBP",
		Category:     name,
		CategoryID:   id,
		Description:  filepath.Base(path),
		Date:         time.Now().AddDate(0, 0, -30),
		DateAdjusted: true,
		ReceiptPath:  path,
	}, nil
}

// Scenario D: submission fails → run aborts, the batch's receipts remain
// unmoved (not prematurely filed as submitted).
func TestRun_SubmissionFailureAbortsRun(t *testing.T) {
	dir := seedReceipts(t, 10)
	cls := &fakeClassifier{}
	sub := &fakeSubmitter{failOnBatch: 1}
	conf := &fakeConfirmer{}

	sum, err := newRunner(dir, cls, sub, conf).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, sum.BatchesSubmitted)
	assert.Equal(t, 0, conf.prompts)

	// All ten receipts untouched in the root.
	assert.Len(t, rootFiles(t, dir), 10)
}

func TestRun_SecondBatchFailureKeepsFirstFiled(t *testing.T) {
	dir := seedReceipts(t, 17)
	cls := &fakeClassifier{}
	sub := &fakeSubmitter{failOnBatch: 2}

	sum, err := newRunner(dir, cls, sub, &fakeConfirmer{}).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, sum.BatchesSubmitted)

	first, err := os.ReadDir(filepath.Join(dir, "October 15 14-30-01"))
	require.NoError(t, err)
	assert.Len(t, first, 15)

	// The failed batch's two receipts stay in place.
	assert.Len(t, rootFiles(t, dir), 2)
}

func TestRun_EmptyDirectoryIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	sub := &fakeSubmitter{}

	sum, err := newRunner(dir, &fakeClassifier{}, sub, &fakeConfirmer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.FilesFound)
	assert.Equal(t, 0, sum.BatchesSubmitted)
	assert.Empty(t, sub.batches)
}

func TestRun_AllClassificationsFailSkipsSubmission(t *testing.T) {
	dir := seedReceipts(t, 3)
	cls := &fakeClassifier{failing: map[string]bool{
		"receipt-000.jpg": true,
		"receipt-001.jpg": true,
		"receipt-002.jpg": true,
	}}
	sub := &fakeSubmitter{}

	sum, err := newRunner(dir, cls, sub, &fakeConfirmer{}).Run(context.Background())
	require.NoError(t, err, "zero submissions is a reported outcome, not an error")
	assert.Equal(t, 0, sum.BatchesSubmitted)
	assert.Empty(t, sub.batches, "no empty claim is ever created")
}

func TestRun_DecliningCheckpointStopsCleanly(t *testing.T) {
	dir := seedReceipts(t, 17)
	cls := &fakeClassifier{}
	sub := &fakeSubmitter{}
	conf := &fakeConfirmer{declineAfter: 1}

	sum, err := newRunner(dir, cls, sub, conf).Run(context.Background())
	require.NoError(t, err, "stopping at the checkpoint is not a failure")
	assert.Equal(t, 1, sum.BatchesSubmitted)

	// First batch filed, remaining receipts untouched.
	assert.Len(t, rootFiles(t, dir), 2)
}

func TestRun_ArchiverReceivesClaimDir(t *testing.T) {
	dir := seedReceipts(t, 2)
	arch := &fakeArchiver{}
	r := newRunner(dir, &fakeClassifier{}, &fakeSubmitter{}, &fakeConfirmer{})
	r.Archiver = arch

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, arch.dirs, 1)
	assert.Equal(t, filepath.Join(dir, "October 15 14-30-01"), arch.dirs[0])
}

func TestRun_MissingReceiptsDirIsFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	_, err := newRunner(missing, &fakeClassifier{}, &fakeSubmitter{}, &fakeConfirmer{}).Run(context.Background())
	assert.Error(t, err)
}

func TestDiscover_OrderAndFiltering(t *testing.T) {
	dir := t.TempDir()
	names := []string{"B.PNG", "a.jpg", "c.pdf", "notes.txt", "z.webp", "Receipt.JPEG"}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "failed"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failed", "old.jpg"), []byte("x"), 0o600))

	files, err := pipeline.Discover(dir)
	require.NoError(t, err)

	var bases []string
	for _, f := range files {
		bases = append(bases, filepath.Base(f))
	}
	assert.Equal(t, []string{"a.jpg", "B.PNG", "c.pdf", "Receipt.JPEG", "z.webp"}, bases,
		"case-insensitive filename sort, subdirectories and non-receipt files excluded")
}

func TestDiscover_Deterministic(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("r%02d.jpg", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	first, err := pipeline.Discover(dir)
	require.NoError(t, err)
	second, err := pipeline.Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, len(first) == 20)
	for i := 1; i < len(first); i++ {
		assert.True(t, strings.ToLower(first[i-1]) < strings.ToLower(first[i]))
	}
}

func TestStdinConfirmer(t *testing.T) {
	var out strings.Builder

	c := &pipeline.StdinConfirmer{In: strings.NewReader("\n"), Out: &out}
	require.NoError(t, c.Confirm(context.Background(), 2))
	assert.Contains(t, out.String(), "Remaining: 2")

	c = &pipeline.StdinConfirmer{In: strings.NewReader(""), Out: &out}
	assert.Error(t, c.Confirm(context.Background(), 1), "EOF means the operator stopped")
}

func TestStdinConfirmer_ConsecutiveCheckpoints(t *testing.T) {
	// One confirmer must survive as many checkpoints as the input holds
	// newlines; piped (non-TTY) stdin buffers past the first line.
	c := &pipeline.StdinConfirmer{In: strings.NewReader("\n\n"), Out: &strings.Builder{}}

	require.NoError(t, c.Confirm(context.Background(), 2))
	require.NoError(t, c.Confirm(context.Background(), 1), "second acknowledgment must not be lost")
	assert.Error(t, c.Confirm(context.Background(), 0), "input exhausted")
}

func TestStdinConfirmer_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &pipeline.StdinConfirmer{In: strings.NewReader("\n"), Out: &strings.Builder{}}
	assert.Error(t, c.Confirm(ctx, 1))
}
