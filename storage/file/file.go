// Package file is storing documents as files in a directory, the way the
// state is kept in a checked out state branch.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/storage"
	"golang.org/x/exp/slog"
)

var _ storage.DocumentStore = &Store{}

// Store is keeping every document in its own file.
type Store struct {
	dir    string
	names  map[string]string
	logger *slog.Logger
}

type Opt func(*Store)

// WithFileName sets the file name used for the document key.
// By default a document is stored in "<key>.json".
func WithFileName(key, name string) Opt {
	return func(s *Store) {
		s.names[key] = name
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns a Store keeping its files in dir.
func New(dir string, opts ...Opt) *Store {
	s := &Store{dir: dir, names: map[string]string{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("driver", "file"))
	return s
}

// Path returns the file path of the document key.
func (s *Store) Path(key string) string {
	name, ok := s.names[key]
	if !ok {
		name = key + ".json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Store.Get() - %s: %w", key, showwatch.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("Store.Get() - %w", err)
	}
	return doc, nil
}

// Put is replacing the file of key by writing to a temporary file and renaming it.
func (s *Store) Put(ctx context.Context, key string, doc []byte) error {
	path := s.Path(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("Store.Put() - %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("Store.Put() - %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("Store.Put() - %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("Store.Put() - %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("Store.Put() - %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("Store.Put() - %w", err)
	}

	s.logger.Debug("wrote document", "path", path, "bytes", len(doc))
	return nil
}
