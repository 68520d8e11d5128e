package catalog

import (
	"strings"

	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
)

// NormalizeIdentifier strips the separators scanners and people insert into
// ISBNs and upper-cases a trailing check digit X. Identifiers that look like
// an ISBN must carry a valid checksum; anything else is passed through, since
// QR and Code128 payloads are legitimate scan results.
func NormalizeIdentifier(raw string) (string, error) {
	id := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t', '\n', '\r':
			return -1
		case 'x':
			return 'X'
		}
		return r
	}, raw)

	if id == "" {
		return "", domainerrors.Validation("identifier is required")
	}

	switch {
	case looksLikeISBN13(id):
		if !validISBN13(id) {
			return "", domainerrors.Validationf("invalid ISBN-13 checksum: %s", id)
		}
	case looksLikeISBN10(id):
		if !validISBN10(id) {
			return "", domainerrors.Validationf("invalid ISBN-10 checksum: %s", id)
		}
	}
	return id, nil
}

func looksLikeISBN13(id string) bool {
	return len(id) == 13 && allDigits(id) && (strings.HasPrefix(id, "978") || strings.HasPrefix(id, "979"))
}

func looksLikeISBN10(id string) bool {
	return len(id) == 10 && allDigits(id[:9]) && (isDigit(id[9]) || id[9] == 'X')
}

func validISBN13(id string) bool {
	sum := 0
	for i := range 13 {
		d := int(id[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

func validISBN10(id string) bool {
	sum := 0
	for i := range 10 {
		var d int
		if id[i] == 'X' {
			d = 10
		} else {
			d = int(id[i] - '0')
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func allDigits(s string) bool {
	for i := range len(s) {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
