package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Usage summarises on-disk footprint of the database and index artifacts.
type Usage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	IndexBytes    int64 `json:"index_bytes"`
	IndexFiles    int   `json:"index_files"`
}

// DiskUsageBytes returns the total size in bytes of the given files or directories.
// Empty and missing paths count as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, _, err := walkSize(p, "")
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// MeasureUsage reports the size of the SQLite database (including WAL side files)
// and of the index directory, counting committed ".index" artifacts.
func MeasureUsage(dbPath, indexDir string) (Usage, error) {
	var u Usage
	if dbPath != "" && dbPath != ":memory:" {
		n, err := DiskUsageBytes(dbPath, dbPath+"-wal", dbPath+"-shm")
		if err != nil {
			return u, err
		}
		u.DatabaseBytes = n
	}
	if indexDir != "" {
		n, files, err := walkSize(indexDir, ".index")
		if err != nil {
			return u, err
		}
		u.IndexBytes = n
		u.IndexFiles = files
	}
	return u, nil
}

// walkSize sums regular file sizes under root and counts files ending in suffix.
func walkSize(root, suffix string) (int64, int, error) {
	var total int64
	var matched int
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		total += info.Size()
		if suffix != "" && strings.HasSuffix(path, suffix) {
			matched++
		}
		return nil
	})
	return total, matched, err
}
