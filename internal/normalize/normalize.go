// Package normalize provides the text normalization shared by profile
// de-duplication, library search, and category statistics.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a label to a URL-safe slug.
// "Science Fiction" -> "science-fiction".
// "Sci-Fi/Fantasy" -> "sci-fi-fantasy".
// "Café Noir" -> "cafe-noir".
func Slugify(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Fold returns s with Unicode case folding applied, for caseless comparison.
// A Caser holds state, so each call gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr occurs in s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// Dedupe trims values, drops empties, and removes later values whose key
// matches an earlier one. Order of first occurrences is kept.
func Dedupe(values []string, key func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := key(v)
		if k == "" {
			k = v
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Labels de-duplicates genre-like labels by slug.
func Labels(values []string) []string {
	return Dedupe(values, Slugify)
}

// Names de-duplicates people and titles case-insensitively.
func Names(values []string) []string {
	return Dedupe(values, Fold)
}
