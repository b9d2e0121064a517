package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/snapshot"
)

// DecodeShows is decoding a JSON array of shows. Bare strings in the array
// are taken as links without title and dates. An empty document is an empty snapshot.
func DecodeShows(doc []byte) (*snapshot.Snapshot[*showwatch.Show], error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return snapshot.New[*showwatch.Show](), nil
	}

	raw := []json.RawMessage{}
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decoding shows: %w", err)
	}

	shows := make([]*showwatch.Show, 0, len(raw))
	for _, r := range raw {
		var link string
		if err := json.Unmarshal(r, &link); err == nil {
			shows = append(shows, &showwatch.Show{Link: link, Dates: []string{}})
			continue
		}

		show := &showwatch.Show{}
		if err := json.Unmarshal(r, show); err != nil {
			// entries of an unknown shape are skipped
			continue
		}
		if show.Dates == nil {
			show.Dates = []string{}
		}
		shows = append(shows, show)
	}

	return snapshot.Shows(shows), nil
}

// EncodeShows is encoding shows as an indented JSON array in snapshot order.
func EncodeShows(s *snapshot.Snapshot[*showwatch.Show]) ([]byte, error) {
	return marshal(s.Entities())
}

// DecodeSeats is decoding a JSON object mapping ticket urls to seat records.
// Records are ordered by url, a record's url is taken from its key.
func DecodeSeats(doc []byte) (*snapshot.Snapshot[*showwatch.Seat], error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return snapshot.New[*showwatch.Seat](), nil
	}

	records := map[string]*showwatch.Seat{}
	if err := json.Unmarshal(doc, &records); err != nil {
		return nil, fmt.Errorf("decoding seats: %w", err)
	}

	urls := make([]string, 0, len(records))
	for url := range records {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	seats := make([]*showwatch.Seat, 0, len(urls))
	for _, url := range urls {
		seat := records[url]
		if seat == nil {
			seat = &showwatch.Seat{}
		}
		seat.URL = url
		if seat.Title == "" {
			seat.Title = showwatch.UnknownTitle
		}
		if seat.Count < 0 {
			seat.Count = 0
		}
		seats = append(seats, seat)
	}

	return snapshot.Seats(seats), nil
}

// EncodeSeats is encoding seat records as an indented JSON object keyed by url.
func EncodeSeats(s *snapshot.Snapshot[*showwatch.Seat]) ([]byte, error) {
	records := make(map[string]*showwatch.Seat, s.Len())
	for _, seat := range s.Entities() {
		records[seat.URL] = seat
	}
	return marshal(records)
}

// marshal is writing indented JSON without escaping html characters in links.
func marshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
