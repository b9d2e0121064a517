package service

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// stripStringsBuilder is stripping whitespace from the given string.
func stripStringsBuilder(str string) string {
	var builder strings.Builder
	builder.Grow(len(str))
	for _, rune := range str {
		if !unicode.IsSpace(rune) {
			builder.WriteRune(rune)
		}
	}
	return builder.String()
}

// DiffPrintAsText is printing insertions as "+[...]" and deletions as "-[...]", leaving out equal text.
func DiffPrintAsText(diffs []diffmatchpatch.Diff) string {
	parts := []string{}
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			parts = append(parts, "+["+diff.Text+"]")
		case diffmatchpatch.DiffDelete:
			parts = append(parts, "-["+diff.Text+"]")
		case diffmatchpatch.DiffEqual:
		}
	}

	return strings.Join(parts, " ")
}

// DiffText is a helper function for comparing two texts for logging.
// Whitespace-only changes are no changes.
func DiffText(str1, str2 string) string {
	if stripStringsBuilder(str1) == stripStringsBuilder(str2) {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(str1, str2, false)
	return DiffPrintAsText(dmp.DiffCleanupSemantic(diffs))
}

// DiffDates is the DiffText of two date lists, one date per line.
func DiffDates(old, cur []string) string {
	return DiffText(strings.Join(old, "\n")+"\n", strings.Join(cur, "\n")+"\n")
}
