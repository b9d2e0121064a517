package scraper

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/geziyor/geziyor"
	"github.com/geziyor/geziyor/client"
	"github.com/geziyor/geziyor/export"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/link"
	"golang.org/x/exp/slog"
)

// Target is a page to be scraped.
type Target struct {
	URL  string
	Kind showwatch.PageKind

	// UseChrome is rendering the page in a headless chrome before extraction.
	UseChrome bool

	// ShowDate is the canonical date of the show a ticket page was found on, if unambiguous.
	ShowDate string
}

// Scraper is used to scrape the pages of the theater and the ticket vendor.
type Scraper struct {
	*geziyor.Geziyor

	Targets []Target
	Logger  *slog.Logger

	// Matcher is selecting the ticket links embedded into show pages.
	Matcher link.TicketMatcher

	/*** Geziyor Opts ***/

	// AllowedDomains is domains that are allowed to make requests
	// If empty, any domain is allowed
	AllowedDomains []string

	// Chrome headless browser WS endpoint.
	// If you want to run your own Chrome browser runner, provide its endpoint in here
	// For example: ws://localhost:3000
	BrowserEndpoint string

	// For extracting data
	Exporters []export.Exporter

	// Max body reading size in bytes. Default: 1GB
	MaxBodySize int64

	// RequestsPerSecond limits requests that is made per seconds. Default: No limit
	RequestsPerSecond float64

	// Timeout is global request timeout
	Timeout time.Duration

	// User Agent.
	UserAgent string
}

// DefaultUserAgent looks like a desktop browser, the ticket vendor is blocking obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// newParseFunc is returning a new parser func, setup to extract the given target
// and send the results as *showwatch.Page to the Exports channel.
func newParseFunc(target Target, matcher link.TicketMatcher, logger *slog.Logger) func(*geziyor.Geziyor, *client.Response) {
	return func(g *geziyor.Geziyor, r *client.Response) {
		if r.Response.StatusCode >= http.StatusBadRequest {
			logger.Warn("got error status code", "code", r.Response.StatusCode, "url", target.URL)
			return
		}

		doc := r.HTMLDoc
		if doc == nil {
			var err error
			if doc, err = goquery.NewDocumentFromReader(bytes.NewReader(r.Body)); err != nil {
				logger.Error("parsing html failed", "url", target.URL, "error", err)
				return
			}
		}

		page := &showwatch.Page{URL: target.URL, Kind: target.Kind, CheckedAt: time.Now()}

		switch target.Kind {
		case showwatch.ListingPage:
			page.Items = ExtractListing(doc)
		case showwatch.ShowPage:
			item, tickets := ExtractShowPage(doc, target.URL, matcher)
			page.Items = []showwatch.RawItem{item}
			page.TicketLinks = tickets
		case showwatch.TicketPage:
			summary := ExtractTicketPage(doc, target.URL)
			summary.ShowDate = target.ShowDate
			page.Items = []showwatch.RawItem{summary}
		default:
			logger.Error("unknown page kind", "kind", target.Kind, "url", target.URL)
			return
		}

		logger.Debug("scraped page", "url", target.URL, "kind", target.Kind, "items", len(page.Items),
			"ticket_links", len(page.TicketLinks))

		g.Exports <- page
	}
}

// NewScraper is returning a new Scraper to scrape the given targets.
func NewScraper(targets []Target, opts ...Opt) *Scraper {

	scraper := &Scraper{
		Targets:   targets,
		Logger:    slog.Default(),
		UserAgent: DefaultUserAgent,
	}

	for _, o := range opts {
		o(scraper)
	}

	gcfg := geziyor.Options{
		AllowedDomains:    scraper.AllowedDomains,
		BrowserEndpoint:   scraper.BrowserEndpoint,
		Exporters:         scraper.Exporters,
		MaxBodySize:       scraper.MaxBodySize,
		RequestsPerSecond: scraper.RequestsPerSecond,
		Timeout:           scraper.Timeout,
		UserAgent:         scraper.UserAgent,

		// we do our own deduplication in the watcher
		URLRevisitEnabled: true,

		// we log through slog
		LogDisabled: true,
	}

	gcfg.StartRequestsFunc = func(g *geziyor.Geziyor) {
		for _, target := range scraper.Targets {
			parse := newParseFunc(target, scraper.Matcher, scraper.Logger)
			if target.UseChrome {
				// using external chrome browser for rendering java script
				g.GetRendered(target.URL, parse)
			} else {
				// directly scrape the plain page content without rendering JS
				g.Get(target.URL, parse)
			}
		}
	}

	scraper.Geziyor = geziyor.NewGeziyor(&gcfg)

	return scraper
}

// Opt is a type representing functional Scraper options.
type Opt func(*Scraper)

// WithAllowedDomains is white-listing only the given domains for scraping.
func WithAllowedDomains(domains []string) Opt {
	return func(s *Scraper) {
		s.AllowedDomains = domains
	}
}

// WithBrowserEndpoint is configuring the endpoint for connecting to a chrome
// browser instance for rendering the web site.
func WithBrowserEndpoint(endpoint string) Opt {
	return func(s *Scraper) {
		s.BrowserEndpoint = endpoint
	}
}

// WithTimeout is setting the client timeout of the scraper.
func WithTimeout(timeout time.Duration) Opt {
	return func(s *Scraper) {
		s.Timeout = timeout
	}
}

// WithExporters is adding exporters to export the scraped pages.
func WithExporters(exporters []export.Exporter) Opt {
	return func(s *Scraper) {
		s.Exporters = exporters
	}
}

// WithMatcher sets the matcher for ticket links on show pages.
func WithMatcher(matcher link.TicketMatcher) Opt {
	return func(s *Scraper) {
		s.Matcher = matcher
	}
}

// WithRequestsPerSecond is limiting the request rate.
func WithRequestsPerSecond(rps float64) Opt {
	return func(s *Scraper) {
		s.RequestsPerSecond = rps
	}
}

// WithLogger configures the Logger.
func WithLogger(logger *slog.Logger) Opt {
	return func(s *Scraper) {
		s.Logger = logger
	}
}
