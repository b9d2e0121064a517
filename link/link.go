// Package link canonicalizes raw links scraped from pages into absolute,
// comparable identifiers.
package link

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalizer resolves raw links against the listing page and filters out
// everything which can't be a show link.
type Normalizer struct {
	base        *url.URL
	listingPath string
}

// NewNormalizer is returning a Normalizer resolving relative links against listingURL.
// The path of listingURL is excluded from all normalized results.
func NewNormalizer(listingURL string) (*Normalizer, error) {
	base, err := url.Parse(strings.TrimSpace(listingURL))
	if err != nil {
		return nil, fmt.Errorf("url.Parse() - %w", err)
	}
	if !isHTTP(base.Scheme) || base.Host == "" {
		return nil, fmt.Errorf("listing url %q must be an absolute http(s) url", listingURL)
	}

	return &Normalizer{base: base, listingPath: cleanPath(base.Path)}, nil
}

// Normalize is returning the absolute form of raw, or false if raw is empty,
// malformed, not an http(s) link or points at the listing page itself.
//
// Absolute http(s) links are returned as they are, so normalized links are a
// fixed point of Normalize.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	// the listing page itself is checked before and after resolving
	if n.IsListing(u) {
		return "", false
	}

	if u.Scheme != "" {
		if !isHTTP(u.Scheme) || u.Host == "" {
			return "", false
		}
		return raw, true
	}

	abs := n.base.ResolveReference(u)
	if abs.Host == "" || n.IsListing(abs) {
		return "", false
	}

	return abs.String(), true
}

// IsListing is reporting whether u points at the listing page. Only the path is compared,
// relative links are compared as they are.
func (n *Normalizer) IsListing(u *url.URL) bool {
	if u.Path == "" {
		return false
	}
	return cleanPath(u.Path) == n.listingPath
}

// StripFragment is removing the fragment of a link. The fragment carries no
// identity for ticket pages.
func StripFragment(link string) string {
	link, _, _ = strings.Cut(link, "#")
	return link
}

// TicketMatcher validates links into the ticket vendor's show page.
type TicketMatcher struct {
	Domain   string
	Endpoint string
	Params   []string
}

// IsTicketLink is reporting whether link is a ticket vendor show page: its host contains the
// vendor domain, its path ends with the show endpoint and all required query parameters are present.
func (m TicketMatcher) IsTicketLink(link string) bool {
	if link == "" {
		return false
	}

	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}

	if !strings.Contains(strings.ToLower(u.Host), strings.ToLower(m.Domain)) {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(u.Path), strings.ToLower(m.Endpoint)) {
		return false
	}

	query := u.Query()
	for _, p := range m.Params {
		if !query.Has(p) {
			return false
		}
	}

	return true
}

// TicketLinks is returning the valid, fragment stripped and deduplicated
// ticket links of the given raw links in order of first appearance.
func (m TicketMatcher) TicketLinks(raw []string) []string {
	set := NewSet[string]()
	for _, l := range raw {
		l = StripFragment(strings.TrimSpace(l))
		if m.IsTicketLink(l) {
			set.Add(l)
		}
	}
	return set.Items()
}

func isHTTP(scheme string) bool {
	scheme = strings.ToLower(scheme)
	return scheme == "http" || scheme == "https"
}

func cleanPath(p string) string {
	p = strings.TrimRight(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.ToLower(p)
}
