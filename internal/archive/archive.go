// Package archive uploads submitted claim folders to a GCS bucket, as an
// optional off-site copy of the filed receipts. Archiving runs after filing
// and its failures are best-effort: logged by the caller, never fatal.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
)

// Uploader uploads one local file to a bucket object. The interface exists
// so the archiver can be tested without a GCS client.
type Uploader interface {
	Upload(ctx context.Context, bucket, object, filePath string) error
}

// GCSUploader is the concrete Uploader backed by Google Cloud Storage.
// It assumes Application Default Credentials are configured.
type GCSUploader struct{}

// Upload writes the local file to gs://bucket/object.
func (GCSUploader) Upload(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Archiver copies claim folders into a bucket, one object per receipt,
// keyed by claim folder name.
type Archiver struct {
	bucket string
	up     Uploader
}

// New creates an Archiver for the given bucket.
func New(bucket string, up Uploader) *Archiver {
	return &Archiver{bucket: bucket, up: up}
}

// ArchiveClaim uploads every file directly inside claimDir under the
// claim folder's name. It keeps going past individual upload failures and
// returns the first error encountered, if any.
func (a *Archiver) ArchiveClaim(ctx context.Context, claimDir string) error {
	entries, err := os.ReadDir(claimDir)
	if err != nil {
		return fmt.Errorf("archive %q: %w", claimDir, err)
	}

	var firstErr error
	prefix := filepath.Base(claimDir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		object := path.Join(prefix, entry.Name())
		if err := a.up.Upload(ctx, a.bucket, object, filepath.Join(claimDir, entry.Name())); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("archive %q: %w", object, err)
			}
		}
	}
	return firstErr
}
