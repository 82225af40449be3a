package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/trendrank/trendrank/pkg/types"
)

// FileStore owns the artifact file at a single path.
type FileStore struct {
	path   string
	rename func(oldpath, newpath string) error // injectable for crash tests
}

// NewFileStore returns a FileStore for path. Nothing is touched on disk until
// the first Write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, rename: os.Rename}
}

// Path returns the artifact location.
func (s *FileStore) Path() string { return s.path }

// ReadLast returns the currently published records. A missing, unreadable or
// malformed artifact yields an empty slice.
func (s *FileStore) ReadLast() []types.RankedRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("publish: previous artifact unreadable", "path", s.path, "err", err)
		}
		return []types.RankedRecord{}
	}

	var records []types.RankedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("publish: previous artifact malformed, ignoring", "path", s.path, "err", err)
		return []types.RankedRecord{}
	}
	if records == nil {
		return []types.RankedRecord{}
	}
	return records
}

// Write atomically replaces the artifact with records and returns the bytes
// written. On error the previous artifact is left as it was.
func (s *FileStore) Write(records []types.RankedRecord) ([]byte, error) {
	data, err := Encode(records)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(s.path, data, s.rename); err != nil {
		return nil, err
	}
	return data, nil
}

// Encode renders records in the artifact format: a two-space indented JSON
// array with non-ASCII characters (the momentum emoji) written literally.
func Encode(records []types.RankedRecord) ([]byte, error) {
	if records == nil {
		records = []types.RankedRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("publish: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteAtomic writes data to path through a temp file in the same directory
// and renames it into place, creating the directory if needed.
func WriteAtomic(path string, data []byte) error {
	return writeAtomic(path, data, os.Rename)
}

func writeAtomic(path string, data []byte, rename func(string, string) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("publish: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("publish: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("publish: write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("publish: sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("publish: close temp: %w", err)
	}
	// CreateTemp uses 0600; the artifact is served to readers.
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("publish: chmod temp: %w", err)
	}
	if err = rename(tmpName, path); err != nil {
		return fmt.Errorf("publish: rename: %w", err)
	}
	return nil
}
