// Package remote is reading documents over HTTP, e.g. the state files
// published on a raw content host. It can't write.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/storage"
	"golang.org/x/exp/slog"
)

var _ storage.DocumentStore = &Store{}

var ErrStatus = errors.New("HTTP status code not ok")

// Store is fetching the document of key from its url.
type Store struct {
	client *resty.Client
	base   string
	urls   map[string]string
	logger *slog.Logger
}

type Opt func(*Store)

// WithURL sets the url the document key is fetched from.
// Other keys are fetched from "<base>/<key>.json".
func WithURL(key, url string) Opt {
	return func(s *Store) {
		s.urls[key] = url
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(s *Store) {
		s.client.SetTimeout(timeout)
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns a Store fetching documents below base.
func New(base string, opts ...Opt) *Store {
	s := &Store{
		client: resty.New().SetTimeout(20 * time.Second),
		base:   strings.TrimSuffix(base, "/"),
		urls:   map[string]string{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("driver", "remote"))
	return s
}

// URL returns the url of the document key.
func (s *Store) URL(key string) string {
	if url, ok := s.urls[key]; ok {
		return url
	}
	return s.base + "/" + key + ".json"
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	url := s.URL(key)

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("Store.Get() - %w", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return nil, fmt.Errorf("Store.Get() - %s: %w", url, showwatch.ErrNotExist)
	case code >= 400:
		s.logger.Warn("remote fetch failed", "url", url, "status", code)
		return nil, fmt.Errorf("Store.Get() - status code %d: %w", code, ErrStatus)
	}

	s.logger.Debug("fetched document", "url", url, "bytes", len(resp.Body()))
	return resp.Body(), nil
}

// Put always fails with showwatch.ErrReadOnly.
func (s *Store) Put(ctx context.Context, key string, doc []byte) error {
	return fmt.Errorf("Store.Put() - %s: %w", key, showwatch.ErrReadOnly)
}
