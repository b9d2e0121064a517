package notify

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Split is splitting text into parts of at most limit characters. Parts are
// only split at line boundaries and prefixed with a "Part i/N" line. Lines which
// don't fit into a part on their own are cut into pieces.
// A text within the limit is returned as it is.
func Split(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	lines := strings.Split(text, "\n")

	// the header grows with the number of digits of N
	for digits := 1; ; digits++ {
		budget := limit - headerLen(digits)
		if budget < 1 {
			// limit too small for any header, fall back to plain pieces
			return cut(text, max(limit, 1))
		}

		bodies := pack(lines, budget)
		if len(fmt.Sprint(len(bodies))) > digits {
			continue
		}

		parts := make([]string, 0, len(bodies))
		for i, body := range bodies {
			parts = append(parts, fmt.Sprintf("Part %d/%d\n%s", i+1, len(bodies), body))
		}
		return parts
	}
}

// headerLen returns the length of "Part i/N\n" for i and N with the given number of digits.
func headerLen(digits int) int {
	return len("Part /\n") + 2*digits
}

// pack is greedily joining lines into bodies of at most budget characters.
func pack(lines []string, budget int) []string {
	bodies := []string{}
	var cur []string
	size := 0

	flush := func() {
		if cur != nil {
			bodies = append(bodies, strings.Join(cur, "\n"))
			cur, size = nil, 0
		}
	}

	for _, line := range lines {
		for _, piece := range cut(line, budget) {
			n := utf8.RuneCountInString(piece)
			sep := 0
			if cur != nil {
				sep = 1
			}
			if cur != nil && size+sep+n > budget {
				flush()
				sep = 0
			}
			cur = append(cur, piece)
			size += sep + n
		}
	}
	flush()

	return bodies
}

// cut is cutting s into pieces of at most n runes. An empty s is one empty piece.
func cut(s string, n int) []string {
	if utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	pieces := []string{}
	runes := []rune(s)
	for len(runes) > n {
		pieces = append(pieces, string(runes[:n]))
		runes = runes[n:]
	}
	return append(pieces, string(runes))
}
