// Package filer performs the file-move bookkeeping that mirrors run
// outcomes: failed receipts into failed/, submitted receipts into a folder
// named after the claim. Moves happen exactly once, strictly after the
// corresponding outcome is final, and are never retried.
package filer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FailedDirName is the subdirectory of the receipts root that collects
// receipts which could not be classified.
const FailedDirName = "failed"

// Filer moves receipts inside a single receipts root.
type Filer struct {
	root string
}

// New creates a Filer rooted at the receipts directory.
func New(root string) *Filer {
	return &Filer{root: root}
}

// FileFailed moves a receipt into the failed/ subdirectory. Call it only
// after classification has definitively failed.
func (f *Filer) FileFailed(path string) error {
	return f.move(path, filepath.Join(f.root, FailedDirName))
}

// FileSubmitted moves a receipt into a subdirectory named after the claim.
// Call it only after the claim's save step has returned success.
func (f *Filer) FileSubmitted(path, claimName string) error {
	return f.move(path, f.ClaimDir(claimName))
}

// ClaimDir returns the destination directory for a claim's receipts.
func (f *Filer) ClaimDir(claimName string) string {
	return filepath.Join(f.root, SanitizeClaimName(claimName))
}

// SanitizeClaimName substitutes characters the filesystem rejects in claim
// names; the claim name format contains colons.
func SanitizeClaimName(name string) string {
	return strings.ReplaceAll(name, ":", "-")
}

func (f *Filer) move(path, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %q: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move %q to %q: %w", path, dest, err)
	}
	return nil
}
