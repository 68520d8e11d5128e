package googlebooks

import (
	"strings"

	"github.com/bookscanapp/bookscan-server/internal/domain"
)

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Description         string   `json:"description"`
	Categories          []string `json:"categories"`
	PublishedDate       string   `json:"publishedDate"`
	PageCount           int      `json:"pageCount"`
	AverageRating       float64  `json:"averageRating"`
	RatingsCount        int      `json:"ratingsCount"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
}

// toRecord converts a volume to a BookRecord keyed by the scanned isbn, with
// catalog defaults applied.
func (v volumeInfo) toRecord(isbn string) domain.BookRecord {
	thumb := v.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = v.ImageLinks.SmallThumbnail
	}

	rec := domain.BookRecord{
		ISBN:          isbn,
		Title:         strings.TrimSpace(v.Title),
		Authors:       nonBlank(v.Authors),
		Description:   htmlToMarkdown(strings.TrimSpace(v.Description)),
		Categories:    nonBlank(v.Categories),
		Thumbnail:     secureURL(thumb),
		PublishedDate: v.PublishedDate,
		PageCount:     v.PageCount,
		AverageRating: v.AverageRating,
		RatingsCount:  v.RatingsCount,
	}
	return rec.WithDefaults()
}

// secureURL upgrades Google's http cover links, which mixed-content rules
// would block.
func secureURL(u string) string {
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "https://" + rest
	}
	return u
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
