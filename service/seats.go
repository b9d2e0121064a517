package service

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/date"
	"gitlab.com/henri.philipps/showwatch/link"
	"gitlab.com/henri.philipps/showwatch/notify"
	"gitlab.com/henri.philipps/showwatch/scraper"
	"gitlab.com/henri.philipps/showwatch/snapshot"
	"golang.org/x/exp/slog"
)

// SeatTracker is watching the ticket vendor pages of all known shows for
// seats becoming available.
type SeatTracker struct {
	cfg        showwatch.Config
	scraper    Scraper
	store      SnapshotStore[*showwatch.Seat]
	shows      SnapshotLoader[*showwatch.Show]
	publisher  notify.Publisher
	composer   *notify.Composer
	matcher    link.TicketMatcher
	ticketURLs []string
	opts       *options
}

// NewSeatTracker returns a SeatTracker. Ticket pages are discovered through the show pages
// of the shows loaded from shows, unless ticketURLs is given, which skips the discovery.
func NewSeatTracker(cfg showwatch.Config, s Scraper, store SnapshotStore[*showwatch.Seat], shows SnapshotLoader[*showwatch.Show],
	publisher notify.Publisher, ticketURLs []string, opts ...Opt) (*SeatTracker, error) {

	matcher := link.TicketMatcher{Domain: cfg.TicketDomain, Endpoint: cfg.TicketEndpoint, Params: cfg.TicketParams}
	urls := matcher.TicketLinks(ticketURLs)

	if shows == nil && len(urls) == 0 {
		return nil, fmt.Errorf("NewSeatTracker() - neither a show source nor valid ticket urls given")
	}

	return &SeatTracker{
		cfg:        cfg,
		scraper:    s,
		store:      store,
		shows:      shows,
		publisher:  publisher,
		composer:   notify.NewComposer(cfg),
		matcher:    matcher,
		ticketURLs: urls,
		opts:       newOptions(cfg.Location, opts),
	}, nil
}

// Run is doing one pass. In weekend mode only ticket pages of the upcoming weekend
// are scraped, notified and overwritten, all other persisted records are kept.
func (t *SeatTracker) Run(ctx context.Context) (*Report[*showwatch.Seat], error) {
	now := t.opts.now()
	weekend := t.cfg.Weekend.Active(now)
	window := date.UpcomingWeekend(now)

	logger := t.opts.logger.With("tracker", "seats", "weekend", weekend)
	if weekend {
		logger = logger.With("window", window.Dates())
	}

	targets, err := t.discover(ctx, logger, weekend, window, now)
	if err != nil {
		return nil, fmt.Errorf("SeatTracker.Run() - %w", err)
	}
	if len(targets) == 0 && !weekend {
		// a full run without ticket pages would wipe all records
		return nil, fmt.Errorf("SeatTracker.Run() - %w: no ticket pages found", showwatch.ErrScrape)
	}
	logger.Info("scraping ticket pages", "targets", len(targets))

	pages, err := t.scraper.RunScrapers(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("SeatTracker.Run() - %w: %w", showwatch.ErrScrape, err)
	}

	items := []showwatch.RawItem{}
	for _, p := range pages {
		items = append(items, p.Items...)
	}

	prev := loadPrevious[*showwatch.Seat](ctx, t.store, logger)
	cur := carryForward(prev, snapshot.BuildSeats(items, t.cfg.PriceMarker, now), targets, logger)
	logger.Info("built seat snapshot", "pages", len(pages), "records", cur.Len())

	d := snapshot.DiffSeats(prev, cur)
	if weekend {
		cur = snapshot.MergeWindow(prev, cur, window)
		d = snapshot.DiffSeats(prev, cur)
	}

	report := &Report[*showwatch.Seat]{Diff: d, FirstRun: snapshot.FirstRun(prev), Messages: []string{}}
	if weekend {
		report.Diff = notify.FilterWindow(d, window)
	}

	logger.Info("compared seats", "new", len(report.Diff.New), "increased", len(report.Diff.Changed),
		"unchanged", len(d.Unchanged), "removed", len(d.Removed), "first_run", report.FirstRun)

	if report.FirstRun {
		logger.Info("first run - persisting baseline without notifications")
	} else {
		report.Messages = t.composer.Seats(report.Diff)
	}

	finish(ctx, t.opts, t.publisher, t.store, report, snapshot.ShouldPersist(prev, cur, d, snapshot.SeatModified), cur)

	return report, nil
}

// discover is returning the ticket pages to scrape, each with the date hint of its show if known.
func (t *SeatTracker) discover(ctx context.Context, logger *slog.Logger, weekend bool, window date.Window, now time.Time) ([]scraper.Target, error) {
	if len(t.ticketURLs) > 0 {
		targets := []scraper.Target{}
		for _, u := range t.ticketURLs {
			targets = append(targets, scraper.Target{URL: u, Kind: showwatch.TicketPage})
		}
		logger.Info("using configured ticket urls", "urls", len(targets))
		return targets, nil
	}

	shows, err := t.shows.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading shows failed: %w", err)
	}

	showTargets := []scraper.Target{}
	byLink := map[string]*showwatch.Show{}
	for _, show := range shows.Entities() {
		// shows without known dates might still play on the weekend
		if weekend && len(show.Dates) > 0 && !window.Intersects(show.Dates) {
			continue
		}
		showTargets = append(showTargets, scraper.Target{URL: show.Link, Kind: showwatch.ShowPage})
		byLink[show.Link] = show
	}
	logger.Info("scraping show pages for ticket links", "shows", shows.Len(), "targets", len(showTargets))

	if len(showTargets) == 0 {
		return []scraper.Target{}, nil
	}

	pages, err := t.scraper.RunScrapers(ctx, showTargets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", showwatch.ErrScrape, err)
	}

	seen := link.NewSet[string]()
	targets := []scraper.Target{}
	for _, p := range pages {
		hint := pageDate(p, now)
		if hint == "" {
			if show, ok := byLink[p.URL]; ok && len(show.Dates) == 1 && date.IsCanonical(show.Dates[0]) {
				hint = show.Dates[0]
			}
		}

		for _, u := range t.matcher.TicketLinks(p.TicketLinks) {
			if weekend && hint != "" && !window.Contains(hint) {
				logger.Debug("skipping ticket page outside of weekend", "url", u, "date", hint)
				continue
			}
			if !seen.Add(u) {
				continue
			}
			targets = append(targets, scraper.Target{URL: u, Kind: showwatch.TicketPage, ShowDate: hint})
		}
	}

	return targets, nil
}

// pageDate is returning the date of a show page if it names exactly one.
func pageDate(p *showwatch.Page, now time.Time) string {
	dates := link.NewSet[string]()
	for _, item := range p.Items {
		it, ok := item.(showwatch.RawLinkWithDates)
		if !ok {
			continue
		}
		for _, text := range it.DateTexts {
			if d, ok := date.ParseLocalized(text, now); ok {
				dates.Add(d)
			}
		}
	}
	if dates.Len() != 1 {
		return ""
	}
	return dates.Items()[0]
}

// carryForward is keeping the previous record of every target which could not be scraped,
// so a failing page is neither reported as removed nor as new once it recovers.
func carryForward(prev, cur *snapshot.Snapshot[*showwatch.Seat], targets []scraper.Target,
	logger *slog.Logger) *snapshot.Snapshot[*showwatch.Seat] {

	seats := cur.Entities()
	carried := 0
	for _, target := range targets {
		if cur.Has(target.URL) {
			continue
		}
		if old, ok := prev.Get(target.URL); ok {
			seats = append(seats, old)
			carried++
		}
	}

	if carried == 0 {
		return cur
	}
	logger.Warn("ticket pages failed - keeping previous records", "pages", carried)
	return snapshot.Seats(seats)
}
