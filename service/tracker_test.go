package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/scraper"
	"gitlab.com/henri.philipps/showwatch/snapshot"
	"gitlab.com/henri.philipps/showwatch/storage"
	"gitlab.com/henri.philipps/showwatch/storage/memory"
)

const listingURL = "https://puppet-minsk.by/afisha"

// fakeScraper is serving prepared pages. Targets without a page are failed scrapes.
type fakeScraper struct {
	listing    *showwatch.Page
	listingErr error
	pages      map[string]*showwatch.Page

	mu      sync.Mutex
	scraped []scraper.Target
}

func (s *fakeScraper) ScrapeListing(ctx context.Context, url string) (*showwatch.Page, error) {
	if s.listingErr != nil {
		return nil, s.listingErr
	}
	return s.listing, nil
}

func (s *fakeScraper) RunScrapers(ctx context.Context, targets []scraper.Target) ([]*showwatch.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages := []*showwatch.Page{}
	for _, t := range targets {
		s.scraped = append(s.scraped, t)
		if p, ok := s.pages[t.URL]; ok {
			page := *p
			// the scraper attaches the date hint to the summary
			for i, item := range page.Items {
				if sum, ok := item.(showwatch.RawTicketSummary); ok {
					sum.ShowDate = t.ShowDate
					page.Items[i] = sum
				}
			}
			pages = append(pages, &page)
		}
	}
	return pages, nil
}

func (s *fakeScraper) scrapedURLs(kind showwatch.PageKind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := []string{}
	for _, t := range s.scraped {
		if t.Kind == kind {
			urls = append(urls, t.URL)
		}
	}
	return urls
}

// recorder is a notify.Publisher remembering all messages.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Publish(ctx context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.msgs...)
}

// failingStore is loading prev but can't save.
type failingStore[E snapshot.Entity] struct {
	prev *snapshot.Snapshot[E]
}

func (s *failingStore[E]) Load(ctx context.Context) (*snapshot.Snapshot[E], error) {
	return s.prev, nil
}

func (s *failingStore[E]) Save(ctx context.Context, snap *snapshot.Snapshot[E]) error {
	return errors.New("disk full")
}

func listing(items ...showwatch.RawLinkWithDates) *showwatch.Page {
	page := &showwatch.Page{URL: listingURL, Kind: showwatch.ListingPage}
	for _, it := range items {
		page.Items = append(page.Items, it)
	}
	return page
}

// wednesday 15.05.2024, the upcoming weekend is 18.05. and 19.05.
func wednesday() time.Time {
	return time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)
}

func TestShowTracker_Run(t *testing.T) {
	ctx := context.Background()
	db := memory.New(nil)
	store := storage.NewShowStorage(db)
	rec := &recorder{}

	s := &fakeScraper{listing: listing(
		showwatch.RawLinkWithDates{Link: "/spektakli/kolobok", Title: "Колобок", DateTexts: []string{"18 мая, суббота"}},
		showwatch.RawLinkWithDates{Link: "/spektakli/repka", Title: "Репка", DateTexts: []string{"19 мая"}},
	)}

	tracker, err := NewShowTracker(showwatch.DefaultConfig(), s, store, rec, false, WithClock(wednesday))
	if err != nil {
		t.Fatalf("NewShowTracker() failed: %v", err)
	}

	// first run is a silent baseline
	report, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	if !report.FirstRun || !report.Persisted {
		t.Errorf("first Run() want first run persisted, got first run %v persisted %v", report.FirstRun, report.Persisted)
	}
	if want, got := 0, len(rec.messages()); want != got {
		t.Errorf("first Run() want %d messages, got %d", want, got)
	}

	// a new show and a new date
	s.listing = listing(
		showwatch.RawLinkWithDates{Link: "/spektakli/kolobok", Title: "Колобок", DateTexts: []string{"18 мая", "25 мая"}},
		showwatch.RawLinkWithDates{Link: "/spektakli/repka", Title: "Репка", DateTexts: []string{"19 мая"}},
		showwatch.RawLinkWithDates{Link: "/spektakli/teremok", Title: "Теремок", DateTexts: []string{"26 мая"}},
	)

	report, err = tracker.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if report.FirstRun || !report.Persisted {
		t.Errorf("second Run() want persisted non first run, got first run %v persisted %v", report.FirstRun, report.Persisted)
	}

	want := []string{
		"New shows:\nТеремок: https://puppet-minsk.by/spektakli/teremok (26.05.2024)",
		"Updated dates:\nКолобок: https://puppet-minsk.by/spektakli/kolobok (18.05.2024, 25.05.2024)",
	}
	if diff := cmp.Diff(want, rec.messages()); diff != "" {
		t.Errorf("second Run() messages mismatch (-want +got):\n%s", diff)
	}

	// nothing changed, nothing written
	report, err = tracker.Run(ctx)
	if err != nil {
		t.Fatalf("third Run() failed: %v", err)
	}
	if report.Persisted || len(report.Messages) != 0 {
		t.Errorf("third Run() want no-op, got persisted %v messages %d", report.Persisted, len(report.Messages))
	}

	stored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want, got := 3, stored.Len(); want != got {
		t.Errorf("want %d stored shows, got %d", want, got)
	}
}

func TestShowTracker_ScrapeFailed(t *testing.T) {
	ctx := context.Background()
	db := memory.New(nil)
	rec := &recorder{}
	s := &fakeScraper{listingErr: showwatch.ErrEmptyListing}

	tracker, err := NewShowTracker(showwatch.DefaultConfig(), s, storage.NewShowStorage(db), rec, false)
	if err != nil {
		t.Fatalf("NewShowTracker() failed: %v", err)
	}

	_, err = tracker.Run(ctx)
	if !errors.Is(err, showwatch.ErrScrape) || !errors.Is(err, showwatch.ErrEmptyListing) {
		t.Errorf("Run() want ErrScrape wrapping ErrEmptyListing, got %v", err)
	}
	if want, got := 0, db.Len(); want != got {
		t.Errorf("want %d documents, got %d", want, got)
	}
}

func TestShowTracker_ShowPages(t *testing.T) {
	ctx := context.Background()
	kolobok := "https://puppet-minsk.by/spektakli/kolobok"
	prev := snapshot.Shows([]*showwatch.Show{{Link: kolobok, Title: "Колобок", Dates: []string{"18.05.2024"}}})
	store := &failingStore[*showwatch.Show]{prev: prev}
	rec := &recorder{}

	s := &fakeScraper{
		listing: listing(showwatch.RawLinkWithDates{Link: "/spektakli/kolobok", Title: "Колобок", DateTexts: []string{"18 мая"}}),
		pages: map[string]*showwatch.Page{
			kolobok: {URL: kolobok, Kind: showwatch.ShowPage, Items: []showwatch.RawItem{
				showwatch.RawLinkWithDates{Link: kolobok, Title: "Колобок", DateTexts: []string{"1 июня"}},
			}},
		},
	}

	tracker, err := NewShowTracker(showwatch.DefaultConfig(), s, store, rec, true, WithClock(wednesday))
	if err != nil {
		t.Fatalf("NewShowTracker() failed: %v", err)
	}

	report, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if diff := cmp.Diff([]string{kolobok}, s.scrapedURLs(showwatch.ShowPage)); diff != "" {
		t.Errorf("scraped show pages mismatch (-want +got):\n%s", diff)
	}

	want := []string{"Updated dates:\nКолобок: " + kolobok + " (18.05.2024, 01.06.2024)"}
	if diff := cmp.Diff(want, report.Messages); diff != "" {
		t.Errorf("Run() messages mismatch (-want +got):\n%s", diff)
	}

	// a failed write doesn't change what is notified
	if report.Persisted || report.PersistErr == nil {
		t.Errorf("Run() want persist error, got persisted %v error %v", report.Persisted, report.PersistErr)
	}
	if diff := cmp.Diff(want, rec.messages()); diff != "" {
		t.Errorf("sent messages mismatch (-want +got):\n%s", diff)
	}
}

func TestShowTracker_DryRun(t *testing.T) {
	ctx := context.Background()
	db := memory.New(nil)
	rec := &recorder{}
	s := &fakeScraper{listing: listing(showwatch.RawLinkWithDates{Link: "/spektakli/kolobok", Title: "Колобок"})}

	tracker, err := NewShowTracker(showwatch.DefaultConfig(), s, storage.NewShowStorage(db), rec, false, WithDryRun(true))
	if err != nil {
		t.Fatalf("NewShowTracker() failed: %v", err)
	}

	report, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if report.Persisted {
		t.Error("Run() want nothing persisted in dry run")
	}
	if want, got := 0, db.Len(); want != got {
		t.Errorf("want %d documents, got %d", want, got)
	}
}

const (
	ticket1 = "https://tce.by/shows.html?base=x&data=1"
	ticket2 = "https://tce.by/shows.html?base=x&data=2"
	ticket3 = "https://tce.by/shows.html?base=x&data=3"
)

func ticketPage(url, heading, dateText string, priced int) *showwatch.Page {
	titles := []string{"Ряд 1, Место 1 занято"}
	for i := 0; i < priced; i++ {
		titles = append(titles, "Ряд 2, Цена 15 руб.")
	}
	return &showwatch.Page{URL: url, Kind: showwatch.TicketPage, Items: []showwatch.RawItem{
		showwatch.RawTicketSummary{URL: url, Heading: heading, DateText: dateText, SeatTitles: titles},
	}}
}

func TestSeatTracker_Run(t *testing.T) {
	ctx := context.Background()
	db := memory.New(nil)
	store := storage.NewSeatStorage(db)

	prev := snapshot.Seats([]*showwatch.Seat{
		{URL: ticket1, Title: "Колобок", Count: 3, Date: "18.05.2024"},
		{URL: ticket2, Title: "Репка", Count: 4, Date: "19.05.2024"},
		{URL: ticket3, Title: "Теремок", Count: 1, Date: "20.05.2024"},
	})
	if err := store.Save(ctx, prev); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// ticket3 fails to scrape
	s := &fakeScraper{pages: map[string]*showwatch.Page{
		ticket1: ticketPage(ticket1, "Колобок", "18 мая", 5),
		ticket2: ticketPage(ticket2, "Репка", "19 мая", 2),
	}}
	rec := &recorder{}

	tracker, err := NewSeatTracker(showwatch.DefaultConfig(), s, store, nil, rec,
		[]string{ticket1, ticket2 + "#top", ticket3, "https://tce.by/other.html?base=x&data=1"}, WithClock(wednesday))
	if err != nil {
		t.Fatalf("NewSeatTracker() failed: %v", err)
	}

	report, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if diff := cmp.Diff([]string{ticket1, ticket2, ticket3}, s.scrapedURLs(showwatch.TicketPage)); diff != "" {
		t.Errorf("scraped ticket pages mismatch (-want +got):\n%s", diff)
	}

	want := []string{"Tickets available: Колобок\nDate: 18.05.2024\nSeats: 5 (+2)\n" + ticket1}
	if diff := cmp.Diff(want, rec.messages()); diff != "" {
		t.Errorf("Run() messages mismatch (-want +got):\n%s", diff)
	}
	if !report.Persisted {
		t.Error("Run() want persisted")
	}

	stored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	counts := map[string]int{}
	for _, seat := range stored.Entities() {
		counts[seat.URL] = seat.Count
	}
	// decreases are stored, the failed page keeps its previous record
	wantCounts := map[string]int{ticket1: 5, ticket2: 2, ticket3: 1}
	if diff := cmp.Diff(wantCounts, counts); diff != "" {
		t.Errorf("stored counts mismatch (-want +got):\n%s", diff)
	}
}

func TestSeatTracker_Weekend(t *testing.T) {
	ctx := context.Background()
	kolobok := "https://puppet-minsk.by/spektakli/kolobok"
	repka := "https://puppet-minsk.by/spektakli/repka"
	teremok := "https://puppet-minsk.by/spektakli/teremok"

	shows := storage.NewShowStorage(memory.New(nil))
	err := shows.Save(ctx, snapshot.Shows([]*showwatch.Show{
		{Link: kolobok, Title: "Колобок", Dates: []string{"18.05.2024"}},
		{Link: repka, Title: "Репка", Dates: []string{"25.05.2024"}},
		{Link: teremok, Title: "Теремок", Dates: []string{"19.05.2024", "26.05.2024"}},
	}))
	if err != nil {
		t.Fatalf("Save() shows failed: %v", err)
	}

	store := storage.NewSeatStorage(memory.New(nil))
	err = store.Save(ctx, snapshot.Seats([]*showwatch.Seat{
		{URL: ticket1, Title: "Колобок", Count: 1, Date: "18.05.2024"},
		{URL: ticket2, Title: "Репка", Count: 2, Date: "25.05.2024"},
		{URL: ticket3 + "&old", Title: "Теремок", Count: 6, Date: "19.05.2024"},
	}))
	if err != nil {
		t.Fatalf("Save() seats failed: %v", err)
	}

	s := &fakeScraper{pages: map[string]*showwatch.Page{
		kolobok: {URL: kolobok, Kind: showwatch.ShowPage, TicketLinks: []string{ticket1},
			Items: []showwatch.RawItem{showwatch.RawLinkWithDates{Link: kolobok}}},
		teremok: {URL: teremok, Kind: showwatch.ShowPage, TicketLinks: []string{ticket3},
			Items: []showwatch.RawItem{showwatch.RawLinkWithDates{Link: teremok, DateTexts: []string{"26 мая"}}}},
		ticket1: ticketPage(ticket1, "Колобок", "", 4),
		ticket3: ticketPage(ticket3, "Теремок", "26 мая", 9),
	}}
	rec := &recorder{}

	cfg := showwatch.DefaultConfig()
	cfg.Weekend = showwatch.WeekendOn

	tracker, err := NewSeatTracker(cfg, s, store, shows, rec, nil, WithClock(wednesday))
	if err != nil {
		t.Fatalf("NewSeatTracker() failed: %v", err)
	}

	report, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	// repka doesn't play on the weekend, the teremok ticket page is dated 26.05.
	if diff := cmp.Diff([]string{kolobok, teremok}, s.scrapedURLs(showwatch.ShowPage)); diff != "" {
		t.Errorf("scraped show pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{ticket1}, s.scrapedURLs(showwatch.TicketPage)); diff != "" {
		t.Errorf("scraped ticket pages mismatch (-want +got):\n%s", diff)
	}

	want := []string{"Tickets available: Колобок\nDate: 18.05.2024\nSeats: 4 (+3)\n" + ticket1}
	if diff := cmp.Diff(want, report.Messages); diff != "" {
		t.Errorf("Run() messages mismatch (-want +got):\n%s", diff)
	}

	stored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	got := []string{}
	for _, seat := range stored.Entities() {
		got = append(got, seat.URL+" "+seat.Date)
	}
	// records outside the weekend are kept, the unseen weekend record is dropped
	wantStored := []string{ticket1 + " 18.05.2024", ticket2 + " 25.05.2024"}
	if diff := cmp.Diff(wantStored, got); diff != "" {
		t.Errorf("stored seats mismatch (-want +got):\n%s", diff)
	}
}

func TestSeatTracker_FirstRun(t *testing.T) {
	ctx := context.Background()
	db := memory.New(nil)
	rec := &recorder{}
	s := &fakeScraper{pages: map[string]*showwatch.Page{ticket1: ticketPage(ticket1, "Колобок", "18 мая", 5)}}

	tracker, err := NewSeatTracker(showwatch.DefaultConfig(), s, storage.NewSeatStorage(db), nil, rec, []string{ticket1},
		WithClock(wednesday))
	if err != nil {
		t.Fatalf("NewSeatTracker() failed: %v", err)
	}

	report, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !report.FirstRun || !report.Persisted || len(rec.messages()) != 0 {
		t.Errorf("Run() want silent persisted first run, got first run %v persisted %v messages %d",
			report.FirstRun, report.Persisted, len(rec.messages()))
	}
	if !strings.Contains(string(mustGet(t, db, storage.SeatsKey)), ticket1) {
		t.Error("stored document doesn't contain the ticket url")
	}
}

func TestNewSeatTracker(t *testing.T) {
	_, err := NewSeatTracker(showwatch.DefaultConfig(), &fakeScraper{}, nil, nil, &recorder{}, []string{"https://example.com"})
	if err == nil {
		t.Error("NewSeatTracker() want error without shows and valid ticket urls")
	}
}

func mustGet(t *testing.T, db *memory.DB, key string) []byte {
	t.Helper()
	doc, err := db.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	return doc
}

func TestSeatTracker_DecreaseThenIncrease(t *testing.T) {
	ctx := context.Background()
	store := storage.NewSeatStorage(memory.New(nil))

	err := store.Save(ctx, snapshot.Seats([]*showwatch.Seat{{URL: ticket1, Title: "Колобок", Count: 5, Date: "18.05.2024"}}))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	s := &fakeScraper{pages: map[string]*showwatch.Page{}}
	rec := &recorder{}

	tracker, err := NewSeatTracker(showwatch.DefaultConfig(), s, store, nil, rec, []string{ticket1}, WithClock(wednesday))
	if err != nil {
		t.Fatalf("NewSeatTracker() failed: %v", err)
	}

	tests := []struct {
		name          string
		count         int
		wantPersisted bool
		wantMessages  []string
	}{
		{name: "decrease is stored silently", count: 3, wantPersisted: true, wantMessages: []string{}},
		{name: "increase below the old maximum", count: 4, wantPersisted: true,
			wantMessages: []string{"Tickets available: Колобок\nDate: 18.05.2024\nSeats: 4 (+1)\n" + ticket1}},
		{name: "no change", count: 4, wantPersisted: false, wantMessages: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.pages[ticket1] = ticketPage(ticket1, "Колобок", "18 мая", tt.count)

			report, err := tracker.Run(ctx)
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			if want, got := tt.wantPersisted, report.Persisted; want != got {
				t.Errorf("Run() want persisted %v, got %v", want, got)
			}
			if diff := cmp.Diff(tt.wantMessages, report.Messages); diff != "" {
				t.Errorf("Run() messages mismatch (-want +got):\n%s", diff)
			}

			stored, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			seat, ok := stored.Get(ticket1)
			if !ok {
				t.Fatalf("stored record missing")
			}
			if want, got := tt.count, seat.Count; want != got {
				t.Errorf("want stored count %d, got %d", want, got)
			}
		})
	}
}

func TestShowTracker_ShowPageFailed(t *testing.T) {
	ctx := context.Background()
	kolobok := "https://puppet-minsk.by/spektakli/kolobok"
	store := storage.NewShowStorage(memory.New(nil))

	err := store.Save(ctx, snapshot.Shows([]*showwatch.Show{
		{Link: kolobok, Title: "Колобок", Dates: []string{"18.05.2024", "01.06.2024"}},
	}))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// the show page is missing, only the listing date is known
	s := &fakeScraper{
		listing: listing(showwatch.RawLinkWithDates{Link: "/spektakli/kolobok", Title: "Колобок", DateTexts: []string{"18 мая"}}),
		pages:   map[string]*showwatch.Page{},
	}
	rec := &recorder{}

	tracker, err := NewShowTracker(showwatch.DefaultConfig(), s, store, rec, true, WithClock(wednesday))
	if err != nil {
		t.Fatalf("NewShowTracker() failed: %v", err)
	}

	report, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if want, got := 0, len(rec.messages()); want != got {
		t.Errorf("Run() want %d messages, got %d: %v", want, got, rec.messages())
	}
	if report.Persisted {
		t.Error("Run() want nothing persisted")
	}

	stored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	show, _ := stored.Get(kolobok)
	if diff := cmp.Diff([]string{"18.05.2024", "01.06.2024"}, show.Dates); diff != "" {
		t.Errorf("stored dates mismatch (-want +got):\n%s", diff)
	}
}
