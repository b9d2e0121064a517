package showwatch

// Show is a show found on the listing page. It is identified by its normalized link.
type Show struct {
	Link  string   `json:"link"`
	Title string   `json:"title,omitempty"`
	Dates []string `json:"dates"`
}

// Key returns the link identifying the show within a snapshot.
func (s *Show) Key() string {
	return s.Link
}

// Clone returns a deep copy of the show.
func (s *Show) Clone() *Show {
	c := *s
	c.Dates = append([]string{}, s.Dates...)
	return &c
}

// Seat is the seat availability of a single ticket page.
type Seat struct {
	URL   string   `json:"url"`
	Title string   `json:"title"`
	Count int      `json:"count"`
	Date  string   `json:"date,omitempty"`
	Seats []string `json:"seats,omitempty"`
}

// Key returns the ticket page url identifying the seat record within a snapshot.
func (s *Seat) Key() string {
	return s.URL
}

// Clone returns a deep copy of the seat record.
func (s *Seat) Clone() *Seat {
	c := *s
	if s.Seats != nil {
		c.Seats = append([]string{}, s.Seats...)
	}
	return &c
}
