package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/link"
)

const listingHTML = `<html><body>
<div class="afisha_item">
	<a class="afisha_item-hover" href="/spektakli/kolobok"></a>
	<div class="afisha_item-title">
		Колобок
	</div>
	<div class="afisha_item-date">11 октября, суббота, 11:00</div>
	<div class="afisha_item-date">12 октября, воскресенье, 12:00</div>
</div>
<div class="afisha_item">
	<a class="afisha_item-hover" href="https://puppet-minsk.by/spektakli/repka"></a>
	<div class="afisha_item-title">Репка</div>
</div>
<div class="afisha_item">
	<div class="afisha_item-title">Без ссылки</div>
</div>
</body></html>`

const showHTML = `<html><body>
<h1>Колобок</h1>
<div class="show-dates">
	<span class="date">11 октября, суббота, 11:00</span>
	<span class="date">11 октября, суббота, 11:00</span>
</div>
<a href="https://tce.by/shows.html?base=abc&data=1#seats">Купить</a>
<a href="https://tce.by/shows.html?base=abc&data=1">Купить</a>
<a href="https://tce.by/shows.html?base=abc">Без data</a>
<iframe src="https://tce.by/shows.html?base=abc&data=2"></iframe>
<a href="https://example.com/tce.by/shows.html?base=abc&data=3">Чужой</a>
</body></html>`

const ticketHTML = `<html><head><title>Колобок - tce.by</title></head><body>
<h1>Колобок</h1>
<div class="show-date">18 октября, суббота, 11:00</div>
<table id="myHall">
	<tr>
		<td class="place" title="Ряд 1, Место 1, Цена: 15 BYN"></td>
		<td class="place" title="Ряд 1, Место 2"></td>
		<td class="place" title=" "></td>
		<td class="place"></td>
	</tr>
</table>
<table id="other"><tr><td class="place" title="Ряд 9, Цена: 1 BYN"></td></tr></table>
</body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("NewDocumentFromReader() failed: %v", err)
	}
	return doc
}

var matcher = link.TicketMatcher{Domain: "tce.by", Endpoint: "shows.html", Params: []string{"base", "data"}}

func TestExtractListing(t *testing.T) {
	want := []showwatch.RawItem{
		showwatch.RawLinkWithDates{Link: "/spektakli/kolobok", Title: "Колобок",
			DateTexts: []string{"11 октября, суббота, 11:00", "12 октября, воскресенье, 12:00"}},
		showwatch.RawLinkWithDates{Link: "https://puppet-minsk.by/spektakli/repka", Title: "Репка", DateTexts: []string{}},
		showwatch.RawLinkWithDates{Link: "", Title: "Без ссылки", DateTexts: []string{}},
	}

	if diff := cmp.Diff(want, ExtractListing(parse(t, listingHTML))); diff != "" {
		t.Errorf("ExtractListing() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractListing_NoBlocks(t *testing.T) {
	if got := ExtractListing(parse(t, `<html><body>Checking your browser...</body></html>`)); len(got) != 0 {
		t.Errorf("Expected no items, got %v", got)
	}
}

func TestExtractShowPage(t *testing.T) {
	item, tickets := ExtractShowPage(parse(t, showHTML), "https://puppet-minsk.by/spektakli/kolobok", matcher)

	wantItem := showwatch.RawLinkWithDates{
		Link:      "https://puppet-minsk.by/spektakli/kolobok",
		Title:     "Колобок",
		DateTexts: []string{"11 октября, суббота, 11:00"},
	}
	if diff := cmp.Diff(wantItem, item); diff != "" {
		t.Errorf("ExtractShowPage() item mismatch (-want +got):\n%s", diff)
	}

	wantTickets := []string{
		"https://tce.by/shows.html?base=abc&data=1",
		"https://tce.by/shows.html?base=abc&data=2",
	}
	if diff := cmp.Diff(wantTickets, tickets); diff != "" {
		t.Errorf("ExtractShowPage() tickets mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTicketPage(t *testing.T) {
	got := ExtractTicketPage(parse(t, ticketHTML), "https://tce.by/shows.html?base=abc&data=1")

	want := showwatch.RawTicketSummary{
		URL:        "https://tce.by/shows.html?base=abc&data=1",
		Heading:    "Колобок",
		DateText:   "18 октября, суббота, 11:00",
		SeatTitles: []string{"Ряд 1, Место 1, Цена: 15 BYN", "Ряд 1, Место 2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractTicketPage() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTicketPage_Fallbacks(t *testing.T) {
	html := `<html><body><h2>x</h2><h1>Репка 19 октября</h1><table><tr><td class="place" title="Цена: 5 BYN"></td></tr></table></body></html>`

	got := ExtractTicketPage(parse(t, html), "u")

	if want, got := "Репка 19 октября", got.DateText; want != got {
		t.Errorf("Expected the heading as date text, got %q", got)
	}
	if want, got := 1, len(got.SeatTitles); want != got {
		t.Errorf("Expected %d seat outside of the hall table, got %d", want, got)
	}
}
