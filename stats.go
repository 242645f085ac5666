package sizediff

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// CacheStats represents diff cache statistics.
type CacheStats struct {
	Entries     int   // Number of valid artifacts
	TotalSize   int64 // Total size of valid artifacts in bytes
	Orphans     int   // Temporary files left behind by interrupted runs
	OrphanBytes int64 // Total size of those temporary files
}

// Stats returns statistics about the cache directory.
func (c *DiffCache) Stats() (CacheStats, error) {
	infos, err := afero.ReadDir(c.fs, c.root)
	if err != nil {
		return CacheStats{}, &IOError{Op: "read cache directory", Path: c.root, Err: err}
	}

	stats := CacheStats{}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if isTemporary(info.Name()) {
			stats.Orphans++
			stats.OrphanBytes += info.Size()
			continue
		}
		stats.Entries++
		stats.TotalSize += info.Size()
	}
	return stats, nil
}

// PruneTemp removes temporary files older than the given duration.
// Valid artifacts are never touched. Returns the number of files removed.
func (c *DiffCache) PruneTemp(olderThan time.Duration) (int, error) {
	infos, err := afero.ReadDir(c.fs, c.root)
	if err != nil {
		return 0, &IOError{Op: "read cache directory", Path: c.root, Err: err}
	}

	cutoff := c.nowFunc().Add(-olderThan)
	count := 0
	for _, info := range infos {
		if info.IsDir() || !isTemporary(info.Name()) {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		name := filepath.Join(c.root, info.Name())
		if err := c.fs.Remove(name); err != nil {
			return count, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		count++
	}

	c.logger.Debug("pruned temporary artifacts", "removed", count)
	return count, nil
}

func isTemporary(name string) bool {
	return strings.Contains(name, tmpInfix)
}
