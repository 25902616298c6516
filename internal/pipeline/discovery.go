package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// receiptExtensions is the fixed set of recognized receipt file types,
// matched case-insensitively.
var receiptExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// Discover lists the receipt files directly inside dir, sorted
// case-insensitively by filename. The ordering determines claim grouping,
// so it must be identical across runs regardless of filesystem enumeration
// order. Subdirectories (failed/, previous claim folders) are never
// descended into.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover receipts in %q: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !receiptExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Slice(files, func(i, j int) bool {
		a := strings.ToLower(filepath.Base(files[i]))
		b := strings.ToLower(filepath.Base(files[j]))
		if a == b {
			return filepath.Base(files[i]) < filepath.Base(files[j])
		}
		return a < b
	})

	return files, nil
}
