package domain

// BookRecord is the catalog metadata for one edition, resolved from its ISBN.
// Records are immutable once resolved.
type BookRecord struct {
	ISBN          string   `json:"isbn"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories,omitempty"`
	Thumbnail     string   `json:"thumbnail"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	AverageRating float64  `json:"averageRating,omitempty"`
	RatingsCount  int      `json:"ratingsCount,omitempty"`
}

// Catalog defaults applied when a volume lacks a field.
const (
	UnknownTitle         = "Unknown title"
	UnknownAuthor        = "Unknown author"
	NoDescription        = "No description."
	PlaceholderThumbnail = "https://via.placeholder.com/128x192?text=No+Cover"
)

// WithDefaults fills the fields readers always expect to be present.
func (b BookRecord) WithDefaults() BookRecord {
	if b.Title == "" {
		b.Title = UnknownTitle
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{UnknownAuthor}
	}
	if b.Description == "" {
		b.Description = NoDescription
	}
	if b.Thumbnail == "" {
		b.Thumbnail = PlaceholderThumbnail
	}
	return b
}
