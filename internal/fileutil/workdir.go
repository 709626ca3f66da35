package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// RunWorkdir creates (if needed) and returns the temp directory for a single
// pipeline run, namespaced by run id so concurrent runs never collide.
func RunWorkdir(workRoot, runID string) (string, error) {
	if workRoot == "" {
		return "", fmt.Errorf("work root required")
	}
	if runID == "" {
		return "", fmt.Errorf("run id required")
	}
	dir := filepath.Join(workRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run workdir: %w", err)
	}
	return dir, nil
}

// RemoveRunWorkdir deletes a run's temp directory. Best effort; the caller
// decides whether a failure matters.
func RemoveRunWorkdir(workRoot, runID string) error {
	if workRoot == "" || runID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(workRoot, runID))
}

// SweepStale removes run workdirs whose newest entry is older than the
// retention window. A file lock serializes sweeps so concurrent processes do
// not race over the same directories; if the lock is held elsewhere the sweep
// is skipped rather than queued.
func SweepStale(workRoot string, retention time.Duration) (int, error) {
	if workRoot == "" || retention <= 0 {
		return 0, nil
	}
	lock := flock.New(filepath.Join(workRoot, ".sweep.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !locked {
		return 0, nil
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		return 0, fmt.Errorf("read work root: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(workRoot, entry.Name())
		if newestMtime(dir).After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}

func newestMtime(dir string) time.Time {
	newest := time.Time{}
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}
