package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/exporter"
	"gitlab.com/henri.philipps/showwatch/link"
	"gitlab.com/henri.philipps/showwatch/scraper"
	"golang.org/x/exp/slog"
)

// Watcher is scraping batches of pages with a pool of scrapers.
type Watcher struct {
	logger          *slog.Logger
	batchSize       int
	threads         int
	retries         uint
	scraperTimeout  time.Duration
	browserEndpoint string
	useChrome       bool
	matcher         link.TicketMatcher
	allowedDomains  []string
	rps             float64
}

// NewWatcher is returning a new Watcher instance.
func NewWatcher(opts ...Opt) *Watcher {
	watcher := &Watcher{
		logger:         slog.Default(),
		batchSize:      5,
		threads:        2,
		retries:        3,
		scraperTimeout: time.Minute,
	}

	for _, opt := range opts {
		opt(watcher)
	}

	if watcher.threads < 1 {
		watcher.threads = 1
	}
	if watcher.batchSize < 1 {
		watcher.batchSize = 1
	}

	return watcher
}

// Opt is a functional option for a watcher.
type Opt func(*Watcher)

// WithBrowserEndpoint configures a Watcher to connect to the given
// chrome instance for rendering websites.
func WithBrowserEndpoint(endpoint string) Opt {
	return func(w *Watcher) {
		w.browserEndpoint = endpoint
	}
}

// WithChrome makes all targets get rendered by the chrome instance.
func WithChrome(useChrome bool) Opt {
	return func(w *Watcher) {
		w.useChrome = useChrome
	}
}

// WithWorkers sets the number of parallel scrapers and the number of pages per scraper.
func WithWorkers(threads, batchSize int) Opt {
	return func(w *Watcher) {
		w.threads = threads
		w.batchSize = batchSize
	}
}

// WithRetries sets how often the listing page is tried to be scraped.
func WithRetries(retries uint) Opt {
	return func(w *Watcher) {
		w.retries = retries
	}
}

func WithScraperTimeout(timeout time.Duration) Opt {
	return func(w *Watcher) {
		w.scraperTimeout = timeout
	}
}

// WithMatcher sets the matcher for ticket links on show pages.
func WithMatcher(matcher link.TicketMatcher) Opt {
	return func(w *Watcher) {
		w.matcher = matcher
	}
}

// WithAllowedDomains restricts the scrapers to the given hosts. Empty allows any host.
func WithAllowedDomains(domains []string) Opt {
	return func(w *Watcher) {
		w.allowedDomains = domains
	}
}

// WithRequestsPerSecond limits the request rate of every scraper. Zero is unlimited.
func WithRequestsPerSecond(rps float64) Opt {
	return func(w *Watcher) {
		w.rps = rps
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// GenerateScrapeList is returning the targets deduplicated by url and kind,
// in order of first appearance.
func GenerateScrapeList(targets []scraper.Target) []scraper.Target {

	// set of unique targets for deduplication of scrape list
	targetSet := map[string]bool{}
	list := []scraper.Target{}

	for _, t := range targets {
		key := t.Kind.String() + " " + t.URL
		if t.URL == "" || targetSet[key] {
			continue
		}
		list = append(list, t)
		targetSet[key] = true
	}

	return list
}

// ScrapeListing is scraping the listing page. It is retried with exponential
// backoff when it fails or contains no shows, which usually means a
// bot-protection page was served.
func (w *Watcher) ScrapeListing(ctx context.Context, listingURL string) (*showwatch.Page, error) {
	attempt := 0

	operation := func() (*showwatch.Page, error) {
		attempt++
		pages, err := w.RunScrapers(ctx, []scraper.Target{{URL: listingURL, Kind: showwatch.ListingPage}})
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if len(pages) == 0 {
			w.logger.Warn("scraping listing failed", "url", listingURL, "attempt", attempt)
			return nil, showwatch.ErrScrape
		}
		if len(pages[0].Items) == 0 {
			w.logger.Warn("listing contained no shows", "url", listingURL, "attempt", attempt)
			return nil, showwatch.ErrEmptyListing
		}
		return pages[0], nil
	}

	page, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(max(w.retries, 1)),
	)
	if err != nil {
		return nil, fmt.Errorf("Watcher.ScrapeListing() - %w", err)
	}

	return page, nil
}

// RunScrapers is starting up worker threads to scrape the given targets and waits for them to finish.
// Pages which could not be scraped are missing from the result, pages are returned in target order.
func (w *Watcher) RunScrapers(ctx context.Context, targets []scraper.Target) ([]*showwatch.Page, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := &sync.WaitGroup{}

	collector := exporter.NewCollector(ctx, w.logger)
	exporters := []exporter.Interface{collector}
	batches := make(chan []scraper.Target, w.threads)

	// spin up workers
	for i := 0; i < w.threads; i++ {

		// capture loop var for use in closure
		n := i

		wg.Add(1)
		w.logger.Debug("watcher: starting worker", "worker", i)
		go func() {
			defer wg.Done()
			for {
				w.logger.Debug("watcher: waiting for next batch of targets to process", "worker", n)
				select {
				case batch, ok := <-batches:
					if !ok {
						w.logger.Debug("watcher: no more targets to process - worker shutting down", "worker", n)
						return
					}

					w.logger.Debug("watcher: scraper starting", "worker", n, "targets", len(batch))
					scraper.NewScraper(batch,
						scraper.WithExporters(exporters),
						scraper.WithBrowserEndpoint(w.browserEndpoint),
						scraper.WithLogger(w.logger),
						scraper.WithTimeout(w.scraperTimeout),
						scraper.WithMatcher(w.matcher),
						scraper.WithAllowedDomains(w.allowedDomains),
						scraper.WithRequestsPerSecond(w.rps),
					).Start()
					w.logger.Debug("watcher: scraper finished", "worker", n)

				case <-ctx.Done():
					w.logger.Debug("watcher: worker canceled - shutting down", "worker", n, "error", ctx.Err())
					return
				}
			}
		}()
	}

	targets = GenerateScrapeList(targets)
	batch := []scraper.Target{}
	last := len(targets) - 1

	// send batches of targets to workers for scraping
	for i, target := range targets {
		if w.useChrome {
			target.UseChrome = true
		}
		batch = append(batch, target)
		if len(batch) == w.batchSize || i == last {
			select {
			case batches <- batch:
			case <-ctx.Done():
				w.logger.Debug("watcher: RunScrapers() canceled", "error", ctx.Err())
				close(batches)
				wg.Wait()
				return nil, ctx.Err()
			}
			batch = []scraper.Target{}
		}
	}

	close(batches)

	w.logger.Debug("watcher: waiting for workers to finish")
	wg.Wait()
	w.logger.Debug("watcher: all workers finished")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return ordered(targets, collector.Pages()), nil
}

// ordered is sorting pages into the order of their targets.
func ordered(targets []scraper.Target, pages []*showwatch.Page) []*showwatch.Page {
	byTarget := map[string]*showwatch.Page{}
	for _, p := range pages {
		byTarget[p.Kind.String()+" "+p.URL] = p
	}

	result := make([]*showwatch.Page, 0, len(pages))
	for _, t := range targets {
		if p, ok := byTarget[t.Kind.String()+" "+t.URL]; ok {
			result = append(result, p)
		}
	}
	return result
}
