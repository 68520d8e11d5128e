package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookscanapp/bookscan-server/internal/catalog"
	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/service"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/library",
		Summary:     "List library",
		Description: "Returns the reader's library entries, optionally filtered by title or author and sorted",
		Tags:        []string{"Library"},
	}, s.handleListLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShelves",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/shelves",
		Summary:     "Get shelves",
		Description: "Returns the reader's library grouped by reading status",
		Tags:        []string{"Library"},
	}, s.handleGetShelves)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReadingStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/stats",
		Summary:     "Get reading stats",
		Description: "Returns counts, rating averages, yearly goal progress, and top categories",
		Tags:        []string{"Library"},
	}, s.handleGetStats)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addLibraryEntry",
		Method:        http.MethodPost,
		Path:          "/api/v1/library",
		Summary:       "Add entry",
		Description:   "Adds a book to the reader's library without scanning it",
		Tags:          []string{"Library"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateLibraryEntry",
		Method:      http.MethodPatch,
		Path:        "/api/v1/library/{identifier}/{scannedAt}",
		Summary:     "Update entry",
		Description: "Changes reading status, rating, or review. The frozen recommendation never changes.",
		Tags:        []string{"Library"},
	}, s.handleUpdateEntry)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeLibraryEntry",
		Method:        http.MethodDelete,
		Path:          "/api/v1/library/{identifier}/{scannedAt}",
		Summary:       "Remove entry",
		Description:   "Removes one scan of a book. Removing a missing entry succeeds.",
		Tags:          []string{"Library"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveEntry)
}

// ListLibraryInput filters and sorts the library.
type ListLibraryInput struct {
	ReaderInput
	Query string `query:"q" maxLength:"200" doc:"Case-insensitive match on title or author"`
	Sort  string `query:"sort" enum:"date,title,rating" default:"date" doc:"Sort order"`
}

// LibraryResponse is a list of entries.
type LibraryResponse struct {
	Entries []domain.LibraryEntry `json:"entries" doc:"Matching entries"`
	Total   int                   `json:"total" doc:"Number of matching entries"`
}

// LibraryOutput wraps the library response for Huma.
type LibraryOutput struct {
	Body LibraryResponse
}

// ShelvesOutput wraps the shelves response for Huma.
type ShelvesOutput struct {
	Body domain.Shelves
}

// StatsOutput wraps the reading stats for Huma.
type StatsOutput struct {
	Body service.ReadingStats
}

// AddEntryRequest describes a book added by hand.
type AddEntryRequest struct {
	ISBN          string               `json:"isbn" minLength:"1" doc:"ISBN-10, ISBN-13, or another barcode"`
	Title         string               `json:"title" minLength:"1" maxLength:"500" doc:"Book title"`
	Authors       []string             `json:"authors,omitempty" doc:"Book authors"`
	Description   string               `json:"description,omitempty" doc:"Book description"`
	Categories    []string             `json:"categories,omitempty" doc:"Catalog categories"`
	Thumbnail     string               `json:"thumbnail,omitempty" doc:"Cover image URL"`
	ReadingStatus domain.ReadingStatus `json:"readingStatus,omitempty" enum:"reading,want-to-read,read" doc:"Defaults to want-to-read"`
	UserRating    int                  `json:"userRating,omitempty" minimum:"0" maximum:"5" doc:"1-5, 0 for unrated"`
	UserReview    string               `json:"userReview,omitempty" maxLength:"5000" doc:"Free-form review"`
	ScannedAt     *time.Time           `json:"scannedAt,omitempty" doc:"Defaults to now"`
}

// AddEntryInput is the request for adding an entry.
type AddEntryInput struct {
	ReaderInput
	Body AddEntryRequest
}

// EntryOutput wraps one entry for Huma.
type EntryOutput struct {
	Body domain.LibraryEntry
}

// EntryPathInput addresses one entry.
type EntryPathInput struct {
	ReaderInput
	Identifier string `path:"identifier" doc:"Entry ISBN"`
	ScannedAt  string `path:"scannedAt" doc:"Entry scan time, RFC 3339 with nanoseconds"`
}

func (in EntryPathInput) key() (domain.EntryKey, error) {
	isbn, err := catalog.NormalizeIdentifier(in.Identifier)
	if err != nil {
		return domain.EntryKey{}, err
	}
	key, err := domain.ParseEntryKey(isbn, in.ScannedAt)
	if err != nil {
		return domain.EntryKey{}, domainerrors.Validation(err.Error())
	}
	return key, nil
}

// UpdateEntryInput is the request for editing an entry.
type UpdateEntryInput struct {
	EntryPathInput
	Body domain.EntryPatch
}

func (s *Server) handleListLibrary(ctx context.Context, input *ListLibraryInput) (*LibraryOutput, error) {
	entries, err := s.services.Library.Query(ctx, input.ReaderID, input.Query, library.ParseSortKey(input.Sort))
	if err != nil {
		return nil, err
	}
	return &LibraryOutput{Body: LibraryResponse{Entries: entries, Total: len(entries)}}, nil
}

func (s *Server) handleGetShelves(ctx context.Context, input *ListLibraryInput) (*ShelvesOutput, error) {
	shelves, err := s.services.Library.Shelves(ctx, input.ReaderID, input.Query, library.ParseSortKey(input.Sort))
	if err != nil {
		return nil, err
	}
	return &ShelvesOutput{Body: shelves}, nil
}

func (s *Server) handleGetStats(ctx context.Context, input *ReaderInput) (*StatsOutput, error) {
	stats, err := s.services.Stats.Get(ctx, input.ReaderID)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: stats}, nil
}

func (s *Server) handleAddEntry(ctx context.Context, input *AddEntryInput) (*EntryOutput, error) {
	isbn, err := catalog.NormalizeIdentifier(input.Body.ISBN)
	if err != nil {
		return nil, err
	}

	scannedAt := time.Now().UTC()
	if input.Body.ScannedAt != nil {
		scannedAt = input.Body.ScannedAt.UTC()
	}

	entry := domain.LibraryEntry{
		BookRecord: domain.BookRecord{
			ISBN:        isbn,
			Title:       input.Body.Title,
			Authors:     input.Body.Authors,
			Description: input.Body.Description,
			Categories:  input.Body.Categories,
			Thumbnail:   input.Body.Thumbnail,
		}.WithDefaults(),
		ReadingStatus: input.Body.ReadingStatus,
		UserRating:    input.Body.UserRating,
		UserReview:    input.Body.UserReview,
		ScannedAt:     scannedAt,
	}

	added, err := s.services.Library.Add(ctx, input.ReaderID, entry)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: added}, nil
}

func (s *Server) handleUpdateEntry(ctx context.Context, input *UpdateEntryInput) (*EntryOutput, error) {
	key, err := input.key()
	if err != nil {
		return nil, err
	}
	updated, err := s.services.Library.Update(ctx, input.ReaderID, key, input.Body)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: updated}, nil
}

func (s *Server) handleRemoveEntry(ctx context.Context, input *EntryPathInput) (*struct{}, error) {
	key, err := input.key()
	if err != nil {
		return nil, err
	}
	if err := s.services.Library.Remove(ctx, input.ReaderID, key); err != nil {
		return nil, err
	}
	return nil, nil
}
