package exporter

import (
	"context"
	"fmt"
	"sync"

	"github.com/geziyor/geziyor/export"
	"gitlab.com/henri.philipps/showwatch"
	"golang.org/x/exp/slog"
)

// wrapping geziyor export.Exporter to avoid needing to import it in depending packages
type Interface = export.Exporter

var _ Interface = &Collector{}

// Collector is implementing exporter.Interface and collecting the scraped pages in memory.
// It can be shared by multiple scrapers.
type Collector struct {
	ctx    context.Context
	pages  []*showwatch.Page
	logger *slog.Logger
	mu     sync.Mutex
}

func NewCollector(ctx context.Context, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{ctx: ctx, logger: logger.WithGroup("exporter")}
}

func (c *Collector) Export(exports chan interface{}) error {
	for res := range exports {

		page, ok := res.(*showwatch.Page)
		if !ok {
			return fmt.Errorf("expected response of type *showwatch.Page, got %T", res)
		}

		c.mu.Lock()
		c.pages = append(c.pages, page)
		c.mu.Unlock()

		select {
		case <-c.ctx.Done():
			c.logger.Warn("was signaled to stop via context - some scraped pages might not have been collected")
			return c.ctx.Err()
		default:
		}
	}

	return nil
}

// Pages returns the collected pages in order of arrival.
func (c *Collector) Pages() []*showwatch.Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*showwatch.Page{}, c.pages...)
}
