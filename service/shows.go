package service

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/link"
	"gitlab.com/henri.philipps/showwatch/notify"
	"gitlab.com/henri.philipps/showwatch/scraper"
	"gitlab.com/henri.philipps/showwatch/snapshot"
	"golang.org/x/exp/slog"
)

// ShowTracker is watching the listing for new shows and changed dates.
type ShowTracker struct {
	cfg        showwatch.Config
	scraper    Scraper
	store      SnapshotStore[*showwatch.Show]
	publisher  notify.Publisher
	composer   *notify.Composer
	normalizer *link.Normalizer
	showPages  bool
	opts       *options
}

// NewShowTracker returns a ShowTracker for the listing of cfg.
// With showPages every show page is scraped for additional dates.
func NewShowTracker(cfg showwatch.Config, s Scraper, store SnapshotStore[*showwatch.Show], publisher notify.Publisher,
	showPages bool, opts ...Opt) (*ShowTracker, error) {

	normalizer, err := link.NewNormalizer(cfg.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("NewShowTracker() - %w", err)
	}

	return &ShowTracker{
		cfg:        cfg,
		scraper:    s,
		store:      store,
		publisher:  publisher,
		composer:   notify.NewComposer(cfg),
		normalizer: normalizer,
		showPages:  showPages,
		opts:       newOptions(cfg.Location, opts),
	}, nil
}

// Run is doing one pass. It only fails when the listing could not be scraped,
// in which case nothing is notified or persisted.
func (t *ShowTracker) Run(ctx context.Context) (*Report[*showwatch.Show], error) {
	logger := t.opts.logger.With("tracker", "shows")
	now := t.opts.now()

	listing, err := t.scraper.ScrapeListing(ctx, t.cfg.ListingURL)
	if err != nil {
		logger.Error("scraping listing failed", "url", t.cfg.ListingURL, "error", err)
		return nil, fmt.Errorf("ShowTracker.Run() - %w: %w", showwatch.ErrScrape, err)
	}

	items := append([]showwatch.RawItem{}, listing.Items...)

	failed := []string{}
	if t.showPages {
		pageItems, missing, err := t.scrapeShowPages(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("ShowTracker.Run() - %w: %w", showwatch.ErrScrape, err)
		}
		items = append(items, pageItems...)
		failed = missing
	}

	prev := loadPrevious[*showwatch.Show](ctx, t.store, logger)

	cur := carryDates(prev, snapshot.BuildShows(items, t.normalizer, now), failed, logger)
	logger.Info("built show snapshot", "raw_items", len(items), "shows", cur.Len())

	d := snapshot.DiffShows(prev, cur)
	report := &Report[*showwatch.Show]{Diff: d, FirstRun: snapshot.FirstRun(prev), Messages: []string{}}

	logger.Info("compared shows", "new", len(d.New), "changed", len(d.Changed), "unchanged", len(d.Unchanged),
		"removed", len(d.Removed), "first_run", report.FirstRun)
	for _, ch := range d.Changed {
		logger.Info("dates changed", "link", ch.New.Link, "diff", DiffDates(ch.Old.Dates, ch.New.Dates))
	}

	if report.FirstRun {
		logger.Info("first run - persisting baseline without notifications")
	} else {
		report.Messages = t.composer.Shows(d)
	}

	finish(ctx, t.opts, t.publisher, t.store, report, snapshot.ShouldPersist(prev, cur, d, snapshot.ShowModified), cur)

	return report, nil
}

// scrapeShowPages is scraping the show pages of the listing items for their dates.
// It returns the items of all pages and the links of the pages which failed.
func (t *ShowTracker) scrapeShowPages(ctx context.Context, items []showwatch.RawItem) ([]showwatch.RawItem, []string, error) {
	targets := []scraper.Target{}
	for _, item := range items {
		if it, ok := item.(showwatch.RawLinkWithDates); ok {
			if l, ok := t.normalizer.Normalize(it.Link); ok {
				targets = append(targets, scraper.Target{URL: l, Kind: showwatch.ShowPage})
			}
		}
	}

	pages, err := t.scraper.RunScrapers(ctx, targets)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		t.opts.logger.Warn("scraping show pages failed", "error", err)
		pages = nil
	}

	scraped := link.NewSet[string]()
	pageItems := []showwatch.RawItem{}
	for _, p := range pages {
		scraped.Add(p.URL)
		pageItems = append(pageItems, p.Items...)
	}

	failed := []string{}
	for _, target := range targets {
		if !scraped.Contains(target.URL) {
			failed = append(failed, target.URL)
		}
	}

	return pageItems, failed, nil
}

// carryDates is keeping the previous dates of every show whose page could not be
// scraped, so dates only found on the show page don't look removed.
func carryDates(prev, cur *snapshot.Snapshot[*showwatch.Show], failed []string,
	logger *slog.Logger) *snapshot.Snapshot[*showwatch.Show] {

	shows := cur.Entities()
	carried := 0
	for _, l := range failed {
		if !cur.Has(l) {
			continue
		}
		if old, ok := prev.Get(l); ok {
			shows = append(shows, old)
			carried++
		}
	}

	if carried == 0 {
		return cur
	}
	logger.Warn("show pages failed - keeping previous dates", "pages", carried)
	return snapshot.Shows(shows)
}
