// Package color picks avatar colors for readers.
package color

import "slices"

// Palette lists the avatar colors a profile may use, by name.
var Palette = []string{
	"purple", "blue", "green", "red", "yellow",
	"pink", "teal", "indigo", "rose", "orange",
}

// ForReader returns a palette color derived from the reader ID.
// The same reader always gets the same color.
func ForReader(readerID string) string {
	var h uint32
	for _, c := range readerID {
		h = 31*h + uint32(c)
	}
	return Palette[h%uint32(len(Palette))]
}

// Valid reports whether name is a palette color.
func Valid(name string) bool {
	return slices.Contains(Palette, name)
}
