// Package storage is persisting snapshots as JSON documents in a DocumentStore.
package storage

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/snapshot"
	"golang.org/x/exp/slog"
)

const (
	ShowsKey = "shows"
	SeatsKey = "seats"
)

// DocumentStore is storing whole documents by key. Get returns
// showwatch.ErrNotExist if there is no document for key.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, doc []byte) error
}

// Codec is converting a snapshot from and to its persisted document.
type Codec[E snapshot.Entity] struct {
	Decode func(doc []byte) (*snapshot.Snapshot[E], error)
	Encode func(s *snapshot.Snapshot[E]) ([]byte, error)
}

// SnapshotStorage is loading and saving one snapshot document.
type SnapshotStorage[E snapshot.Entity] struct {
	store  DocumentStore
	key    string
	codec  Codec[E]
	logger *slog.Logger
}

type Opt func(*options)

type options struct {
	key    string
	logger *slog.Logger
}

// WithKey overrides the document key.
func WithKey(key string) Opt {
	return func(o *options) {
		o.key = key
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

func newSnapshotStorage[E snapshot.Entity](store DocumentStore, key string, codec Codec[E], opts ...Opt) *SnapshotStorage[E] {
	o := &options{key: key, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	return &SnapshotStorage[E]{
		store:  store,
		key:    o.key,
		codec:  codec,
		logger: o.logger.With(slog.String("document", o.key)),
	}
}

// NewShowStorage returns a storage for show snapshots kept under ShowsKey.
func NewShowStorage(store DocumentStore, opts ...Opt) *SnapshotStorage[*showwatch.Show] {
	return newSnapshotStorage(store, ShowsKey, Codec[*showwatch.Show]{Decode: DecodeShows, Encode: EncodeShows}, opts...)
}

// NewSeatStorage returns a storage for seat snapshots kept under SeatsKey.
func NewSeatStorage(store DocumentStore, opts ...Opt) *SnapshotStorage[*showwatch.Seat] {
	return newSnapshotStorage(store, SeatsKey, Codec[*showwatch.Seat]{Decode: DecodeSeats, Encode: EncodeSeats}, opts...)
}

// Key returns the key of the document.
func (s *SnapshotStorage[E]) Key() string {
	return s.key
}

// Load is loading the persisted snapshot. It returns showwatch.ErrNotExist
// when nothing was persisted yet.
func (s *SnapshotStorage[E]) Load(ctx context.Context) (*snapshot.Snapshot[E], error) {
	doc, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, showwatch.ErrNotExist) {
			s.logger.Error("loading snapshot failed", "error", err)
		}
		return snapshot.New[E](), fmt.Errorf("SnapshotStorage.Load() - %w", err)
	}

	snap, err := s.codec.Decode(doc)
	if err != nil {
		s.logger.Error("decoding snapshot failed", "error", err)
		return snapshot.New[E](), fmt.Errorf("SnapshotStorage.Load() - %w", err)
	}

	s.logger.Debug("loaded snapshot", "entities", snap.Len())
	return snap, nil
}

// Save is replacing the persisted snapshot with snap.
func (s *SnapshotStorage[E]) Save(ctx context.Context, snap *snapshot.Snapshot[E]) error {
	doc, err := s.codec.Encode(snap)
	if err != nil {
		return fmt.Errorf("SnapshotStorage.Save() - %w", err)
	}

	if err := s.store.Put(ctx, s.key, doc); err != nil {
		s.logger.Error("saving snapshot failed", "error", err)
		return fmt.Errorf("SnapshotStorage.Save() - %w", err)
	}

	s.logger.Debug("saved snapshot", "entities", snap.Len(), "bytes", len(doc))
	return nil
}
