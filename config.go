package showwatch

import (
	"fmt"
	"strings"
	"time"
)

// UnknownTitle is used for ticket pages without a recognizable heading.
const UnknownTitle = "Unknown Show"

// WeekendMode selects whether a seat run is restricted to the upcoming weekend.
type WeekendMode string

const (
	WeekendOff    WeekendMode = "off"
	WeekendOn     WeekendMode = "on"
	WeekendFriday WeekendMode = "friday" // weekend-only on fridays, full runs otherwise
)

// ParseWeekendMode is parsing the string representation of a WeekendMode.
func ParseWeekendMode(s string) (WeekendMode, error) {
	switch m := WeekendMode(strings.ToLower(strings.TrimSpace(s))); m {
	case WeekendOff, WeekendOn, WeekendFriday:
		return m, nil
	case "":
		return WeekendOff, nil
	default:
		return "", fmt.Errorf("weekend mode %q not supported", s)
	}
}

// Active is reporting whether a run started at now is a weekend-only run.
func (m WeekendMode) Active(now time.Time) bool {
	switch m {
	case WeekendOn:
		return true
	case WeekendFriday:
		return now.Weekday() == time.Friday
	default:
		return false
	}
}

// Config is holding all values the trackers depend on. It is built once at
// process start and passed down explicitly.
type Config struct {
	// ListingURL is the theater's listing page, relative show links are resolved against it.
	ListingURL string

	// TicketDomain, TicketEndpoint and TicketParams describe a valid ticket vendor link.
	TicketDomain   string
	TicketEndpoint string
	TicketParams   []string

	// PriceMarker is the text a seat tooltip must contain for the seat to be purchasable.
	PriceMarker string

	// MessageLimit is the maximum length of a single notification message.
	MessageLimit int

	// Groups with more than ConciseLimit entities are summarized to their first SummaryHead entries.
	ConciseLimit int
	SummaryHead  int

	Weekend  WeekendMode
	Location *time.Location
}

// DefaultConfig returns the configuration for puppet-minsk.by and the tce.by ticket vendor.
func DefaultConfig() Config {
	return Config{
		ListingURL:     "https://puppet-minsk.by/afisha",
		TicketDomain:   "tce.by",
		TicketEndpoint: "shows.html",
		TicketParams:   []string{"base", "data"},
		PriceMarker:    "Цена",
		MessageLimit:   4000,
		ConciseLimit:   10,
		SummaryHead:    5,
		Weekend:        WeekendOff,
		Location:       time.UTC,
	}
}
