package showwatch

import (
	"fmt"
	"time"
)

// RawItem is a single unprocessed record produced by a scraper.
// It is one of RawLinkOnly, RawLinkWithDates or RawTicketSummary.
type RawItem interface {
	rawItem()
}

// RawLinkOnly is a bare link as found in the page.
type RawLinkOnly struct {
	Link string
}

// RawLinkWithDates is a link with an optional title and the free text date strings
// found for it.
type RawLinkWithDates struct {
	Link      string
	Title     string
	DateTexts []string
}

// RawTicketSummary is the content of a ticket page relevant for seat availability.
type RawTicketSummary struct {
	URL        string
	Heading    string
	DateText   string
	ShowDate   string // canonical date of the show the ticket page was found on, if unambiguous
	SeatTitles []string
}

func (RawLinkOnly) rawItem()      {}
func (RawLinkWithDates) rawItem() {}
func (RawTicketSummary) rawItem() {}

// PageKind tells which kind of page was scraped.
type PageKind int

const (
	ListingPage PageKind = iota + 1
	ShowPage
	TicketPage
)

func (k PageKind) String() string {
	switch k {
	case ListingPage:
		return "listing"
	case ShowPage:
		return "show"
	case TicketPage:
		return "ticket"
	default:
		return fmt.Sprintf("PageKind(%d)", int(k))
	}
}

// Page is holding everything extracted from one scraped page.
type Page struct {
	URL         string
	Kind        PageKind
	Items       []RawItem
	TicketLinks []string
	CheckedAt   time.Time
}
