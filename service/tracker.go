// Package service is running the show and the seat tracker: scrape, build a
// snapshot, compare it to the persisted one, notify and persist.
package service

import (
	"context"
	"errors"
	"time"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/notify"
	"gitlab.com/henri.philipps/showwatch/scraper"
	"gitlab.com/henri.philipps/showwatch/snapshot"
	"golang.org/x/exp/slog"
)

// Scraper is scraping pages for the trackers. It is implemented by *watcher.Watcher.
type Scraper interface {
	ScrapeListing(ctx context.Context, listingURL string) (*showwatch.Page, error)
	RunScrapers(ctx context.Context, targets []scraper.Target) ([]*showwatch.Page, error)
}

// SnapshotLoader is loading a persisted snapshot.
type SnapshotLoader[E snapshot.Entity] interface {
	Load(ctx context.Context) (*snapshot.Snapshot[E], error)
}

// SnapshotStore is loading and saving a persisted snapshot. It is implemented by *storage.SnapshotStorage.
type SnapshotStore[E snapshot.Entity] interface {
	SnapshotLoader[E]
	Save(ctx context.Context, s *snapshot.Snapshot[E]) error
}

// Report is the outcome of a tracker run.
type Report[E snapshot.Entity] struct {
	// Diff is the diff the messages were composed of.
	Diff     snapshot.Diff[E]
	FirstRun bool
	Messages []string

	// Persisted tells whether the snapshot was written, PersistErr why writing it failed.
	Persisted  bool
	PersistErr error

	// SendErr holds the errors of all messages which could not be delivered.
	SendErr error

	// Entities is the number of entities of the persisted snapshot.
	Entities int
}

// options shared by both trackers
type options struct {
	logger *slog.Logger
	now    func() time.Time
	dryRun bool
}

type Opt func(*options)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the source of the current time.
func WithClock(now func() time.Time) Opt {
	return func(o *options) {
		o.now = now
	}
}

// WithDryRun makes a tracker only log its messages, nothing is sent or persisted.
func WithDryRun(dryRun bool) Opt {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

func newOptions(loc *time.Location, opts []Opt) *options {
	if loc == nil {
		loc = time.UTC
	}
	o := &options{
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().In(loc) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// loadPrevious is loading the persisted snapshot. Any failure is an empty baseline.
func loadPrevious[E snapshot.Entity](ctx context.Context, store SnapshotLoader[E], logger *slog.Logger) *snapshot.Snapshot[E] {
	prev, err := store.Load(ctx)
	switch {
	case errors.Is(err, showwatch.ErrNotExist):
		logger.Info("no persisted snapshot found - starting with an empty baseline")
		return snapshot.New[E]()
	case err != nil:
		logger.Warn("loading persisted snapshot failed - starting with an empty baseline", "error", err)
		return snapshot.New[E]()
	}
	return prev
}

// finish is sending the messages and persisting cur if the gate says so.
func finish[E snapshot.Entity](ctx context.Context, o *options, publisher notify.Publisher, store SnapshotStore[E],
	report *Report[E], persist bool, cur *snapshot.Snapshot[E]) {

	logger := o.logger

	if o.dryRun {
		for _, msg := range report.Messages {
			logger.Info("dry run - not sending", "message", msg)
		}
		logger.Info("dry run - not persisting", "would_persist", persist, "entities", cur.Len())
		return
	}

	if len(report.Messages) > 0 {
		if err := notify.Send(ctx, publisher, report.Messages); err != nil {
			logger.Error("sending notifications failed", "error", err)
			report.SendErr = err
		} else {
			logger.Info("sent notifications", "messages", len(report.Messages))
		}
	}

	if !persist {
		logger.Info("nothing changed - not persisting")
		return
	}

	if err := store.Save(ctx, cur); err != nil {
		logger.Error("persisting snapshot failed", "error", err)
		report.PersistErr = err
		return
	}

	report.Persisted = true
	report.Entities = cur.Len()
	logger.Info("persisted snapshot", "entities", cur.Len())
}
