package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/link"
)

// Selectors of the theater and the ticket vendor pages.
const (
	ListingItemSelector  = ".afisha_item"
	ListingTitleSelector = ".afisha_item-title"
	ListingLinkSelector  = "a.afisha_item-hover"
	ListingDateSelector  = ".afisha_item-date"

	ShowTitleSelector = "h1"
	ShowDateSelector  = ".afisha_item-date, .date, time, [class*='date']"

	HallSeatSelector = "table#myHall td.place"
	AnySeatSelector  = "td.place"
)

// Selectors tried in order for the heading and the date of a ticket page.
var (
	TicketHeadSelectors = []string{"h1", ".show-title", "title"}
	TicketDateSelectors = []string{".show-date", ".date", "time"}
)

// ExtractListing returns one item per show block of the listing page.
// Blocks without a link are kept as items with an empty link, so they
// are counted as blocks but dropped by the snapshot builder.
func ExtractListing(doc *goquery.Document) []showwatch.RawItem {
	items := []showwatch.RawItem{}

	doc.Find(ListingItemSelector).Each(func(_ int, block *goquery.Selection) {
		href, _ := block.Find(ListingLinkSelector).First().Attr("href")

		items = append(items, showwatch.RawLinkWithDates{
			Link:      strings.TrimSpace(href),
			Title:     text(block.Find(ListingTitleSelector).First()),
			DateTexts: texts(block.Find(ListingDateSelector)),
		})
	})

	return items
}

// ExtractShowPage returns the show page as item carrying all date texts
// found on it, and the ticket links embedded into the page.
func ExtractShowPage(doc *goquery.Document, pageURL string, matcher link.TicketMatcher) (showwatch.RawItem, []string) {
	item := showwatch.RawLinkWithDates{
		Link:      pageURL,
		Title:     text(doc.Find(ShowTitleSelector).First()),
		DateTexts: leafTexts(doc.Selection, ShowDateSelector),
	}

	marker := matcher.Domain + "/" + matcher.Endpoint
	raw := []string{}
	collect := func(attr string) func(int, *goquery.Selection) {
		return func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				raw = append(raw, resolve(pageURL, v))
			}
		}
	}
	doc.Find("a[href*='" + marker + "']").Each(collect("href"))
	doc.Find("iframe[src*='" + marker + "']").Each(collect("src"))

	return item, matcher.TicketLinks(raw)
}

// ExtractTicketPage returns the seat titles, the heading and the date text of a ticket page.
func ExtractTicketPage(doc *goquery.Document, pageURL string) showwatch.RawTicketSummary {
	seats := doc.Find(HallSeatSelector)
	if seats.Length() == 0 {
		seats = doc.Find(AnySeatSelector)
	}

	titles := []string{}
	seats.Each(func(_ int, s *goquery.Selection) {
		if t, ok := s.Attr("title"); ok && strings.TrimSpace(t) != "" {
			titles = append(titles, strings.TrimSpace(t))
		}
	})

	heading := firstText(doc, TicketHeadSelectors)

	dateText := firstText(doc, TicketDateSelectors)
	if dateText == "" {
		// the vendor sometimes puts the date into the heading
		dateText = heading
	}

	return showwatch.RawTicketSummary{
		URL:        pageURL,
		Heading:    heading,
		DateText:   dateText,
		SeatTitles: titles,
	}
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// texts returns the non-empty, deduplicated texts of all selected elements.
func texts(s *goquery.Selection) []string {
	set := link.NewSet[string]()
	s.Each(func(_ int, e *goquery.Selection) {
		if t := text(e); t != "" {
			set.Add(t)
		}
	})
	return set.Items()
}

// leafTexts is like texts, but skips elements containing other selected elements,
// e.g. a date list wrapping the single dates.
func leafTexts(s *goquery.Selection, selector string) []string {
	return texts(s.Find(selector).FilterFunction(func(_ int, e *goquery.Selection) bool {
		return e.Find(selector).Length() == 0
	}))
}

// firstText returns the first non-empty text of the first selector matching any.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := texts(doc.Find(sel)); len(t) > 0 {
			return t[0]
		}
	}
	return ""
}

// resolve is making ref absolute relative to base, keeping ref if either can't be parsed.
func resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
