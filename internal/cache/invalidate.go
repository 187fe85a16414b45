package cache

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes the blob at blobPath and its meta when the meta's
// SavedAt is older than maxAge. Without a readable meta the file's
// modification time is used. It reports whether anything was removed.
func PurgeByAge(blobPath string, maxAge time.Duration) (bool, error) {
	if maxAge <= 0 {
		return false, nil
	}
	info, err := os.Stat(blobPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	savedAt := info.ModTime().UTC()
	if b, err := os.ReadFile(metaPathFor(blobPath)); err == nil {
		var m Meta
		if json.Unmarshal(b, &m) == nil && !m.SavedAt.IsZero() {
			savedAt = m.SavedAt.UTC()
		}
	}
	if time.Now().UTC().Sub(savedAt) <= maxAge {
		return false, nil
	}
	if err := os.Remove(blobPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	_ = os.Remove(metaPathFor(blobPath))
	return true, nil
}
