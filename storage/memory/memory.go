package memory

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/storage"
	"golang.org/x/exp/slog"
)

// compiler check of interface implementation
var _ storage.DocumentStore = &DB{}

// DB is an in-memory implementation of storage.DocumentStore - mainly for testing and dry runs.
type DB struct {
	docs   map[string][]byte
	logger *slog.Logger
	mu     sync.Mutex
}

// New returns an empty DB.
func New(logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{docs: map[string][]byte{}, logger: logger.With(slog.String("driver", "memory"))}
}

// Get returns a copy of the document stored for key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	doc, ok := db.docs[key]
	if !ok {
		return nil, fmt.Errorf("DB.Get() - %s: %w", key, showwatch.ErrNotExist)
	}

	return append([]byte{}, doc...), nil
}

// Put is storing a copy of doc for key, replacing any previous document.
func (db *DB) Put(ctx context.Context, key string, doc []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.docs[key] = append([]byte{}, doc...)
	db.logger.Debug("stored document", "key", key, "bytes", len(doc))

	return nil
}

// Len returns the number of stored documents.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.docs)
}
