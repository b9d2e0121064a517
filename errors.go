package showwatch

import (
	"errors"
)

var ErrNotExist = errors.New("the item could not be found")

// ErrReadOnly is returned by storage backends which can only be read from.
var ErrReadOnly = errors.New("the storage is read-only")

// ErrEmptyListing is returned when a listing page was loaded but contained no shows,
// which usually means we got served a bot-protection page instead.
var ErrEmptyListing = errors.New("the listing page contained no shows")

// ErrScrape marks a failed scrape: no new data is available for this run.
var ErrScrape = errors.New("scrape failed")
