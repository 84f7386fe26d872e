// Package localfs implements the durable store backend as one JSON file per
// record under a data directory.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
)

const tmpSuffix = ".tmp"

// Store keeps records at <dir>/<kind>/[<scope>/]<id>.json.
type Store struct {
	dir string
}

// New creates the data directory if needed and finishes writes interrupted by
// a crash.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("localfs: create data dir: %w", err)
	}
	if err := recoverInterruptedWrites(dir); err != nil {
		return nil, fmt.Errorf("localfs: recover writes: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Name implements objectstore.Backend.
func (s *Store) Name() string { return "local" }

func (s *Store) path(key objectstore.Key) string {
	return filepath.Join(s.dir, filepath.FromSlash(key.Path()))
}

// Put writes the record atomically (write-then-rename).
func (s *Store) Put(_ context.Context, rec objectstore.Record) error {
	mainPath := s.path(rec.Key)
	if err := os.MkdirAll(filepath.Dir(mainPath), 0o750); err != nil {
		return fmt.Errorf("localfs: create dir for %s: %w", rec.Key.Path(), err)
	}

	tmpPath := mainPath + tmpSuffix
	if err := os.WriteFile(tmpPath, rec.Data, 0o600); err != nil {
		return fmt.Errorf("localfs: write %s: %w", rec.Key.Path(), err)
	}
	if err := os.Rename(tmpPath, mainPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("localfs: rename %s: %w", rec.Key.Path(), err)
	}
	return nil
}

// Get reads one record.
func (s *Store) Get(_ context.Context, key objectstore.Key) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key.Path(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("localfs: read %s: %w", key.Path(), err)
	}
	return data, nil
}

// List reads every record file of a collection. Unreadable files are logged
// and skipped; a missing collection directory is an empty collection.
func (s *Store) List(ctx context.Context, kind objectstore.Kind, scope string) ([]objectstore.Record, error) {
	prefix := objectstore.CollectionPrefix(kind, scope)
	dir := filepath.Join(s.dir, filepath.FromSlash(prefix))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []objectstore.Record{}, nil
		}
		return nil, fmt.Errorf("localfs: read dir %s: %w", prefix, err)
	}

	out := make([]objectstore.Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := objectstore.ParsePath(kind, scope, prefix+e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			slog.WarnContext(ctx, "localfs: skipping unreadable record", "path", key.Path(), "error", err)
			continue
		}
		out = append(out, objectstore.Record{Key: key, Data: data})
	}
	return out, nil
}

// Delete removes one record file.
func (s *Store) Delete(_ context.Context, key objectstore.Key) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("localfs: delete %s: %w", key.Path(), err)
	}
	return nil
}

// recoverInterruptedWrites handles .tmp files left by crashed writes: an
// orphan next to its record is stale, an orphan without one is promoted.
func recoverInterruptedWrites(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json"+tmpSuffix) {
			return nil
		}
		mainPath := strings.TrimSuffix(path, tmpSuffix)
		if _, statErr := os.Stat(mainPath); statErr == nil {
			return os.Remove(path)
		}
		return os.Rename(path, mainPath)
	})
}
