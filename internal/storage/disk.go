// Package storage holds voice-recording blobs for sessions.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes blobs to a local directory and serves them under a
// public base URL (the directory is mounted as a file server by the
// entrypoint).
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("storage dir not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Save(name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return s.PublicURL(name), nil
}

// Remove deletes the named blobs. Already-missing blobs are not an error:
// a retried session delete must not fail on the second pass.
func (s *DiskStore) Remove(names []string) error {
	for _, name := range names {
		name = filepath.Base(name)
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Debug("blob already gone", "name", name)
				continue
			}
			return fmt.Errorf("remove blob %s: %w", name, err)
		}
	}
	return nil
}

func (s *DiskStore) PublicURL(name string) string {
	return s.baseURL + "/" + filepath.Base(name)
}
