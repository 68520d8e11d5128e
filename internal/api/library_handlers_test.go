package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/service"
)

func addEntry(t *testing.T, ts *apiTestServer, req AddEntryRequest) domain.LibraryEntry {
	t.Helper()
	resp := ts.api.Post("/api/v1/library", readerA, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeData[domain.LibraryEntry](t, resp)
}

func entryPath(e domain.LibraryEntry) string {
	return "/api/v1/library/" + e.Key().String()
}

func TestAddEntry_DefaultsAndNormalizes(t *testing.T) {
	ts := setupTestServer(t, Options{})

	entry := addEntry(t, ts, AddEntryRequest{ISBN: "978-0-441-01359-3", Title: "Dune"})

	assert.Equal(t, duneISBN, entry.ISBN)
	assert.Equal(t, domain.StatusWantToRead, entry.ReadingStatus)
	assert.Equal(t, []string{domain.UnknownAuthor}, entry.Authors)
	assert.False(t, entry.ScannedAt.IsZero())
	assert.Nil(t, entry.Recommendation)
}

func TestAddEntry_Rejections(t *testing.T) {
	ts := setupTestServer(t, Options{})
	scannedAt := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)
	addEntry(t, ts, AddEntryRequest{ISBN: duneISBN, Title: "Dune", ScannedAt: &scannedAt})

	t.Run("duplicate identity", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/library", readerA, AddEntryRequest{ISBN: duneISBN, Title: "Dune", ScannedAt: &scannedAt})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("bad checksum", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/library", readerA, AddEntryRequest{ISBN: "9780441013594", Title: "Dune"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
	})

	t.Run("rating out of range", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/library", readerA, AddEntryRequest{ISBN: duneISBN, Title: "Dune", UserRating: 6})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("same book scanned again", func(t *testing.T) {
		later := scannedAt.Add(time.Nanosecond)
		resp := ts.api.Post("/api/v1/library", readerA, AddEntryRequest{ISBN: duneISBN, Title: "Dune", ScannedAt: &later})
		assert.Equal(t, http.StatusCreated, resp.Code)
	})
}

func TestListLibrary_FilterAndSort(t *testing.T) {
	ts := setupTestServer(t, Options{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first, second := base, base.Add(time.Hour)
	addEntry(t, ts, AddEntryRequest{ISBN: duneISBN, Title: "Dune", Authors: []string{"Frank Herbert"}, ScannedAt: &first})
	addEntry(t, ts, AddEntryRequest{ISBN: "9780316015844", Title: "Twilight", Authors: []string{"Stephenie Meyer"}, ScannedAt: &second})

	all := decodeData[LibraryResponse](t, ts.api.Get("/api/v1/library", readerA))
	require.Equal(t, 2, all.Total)
	assert.Equal(t, "Twilight", all.Entries[0].Title, "date sort is newest first")

	byTitle := decodeData[LibraryResponse](t, ts.api.Get("/api/v1/library?sort=title", readerA))
	assert.Equal(t, "Dune", byTitle.Entries[0].Title)

	filtered := decodeData[LibraryResponse](t, ts.api.Get("/api/v1/library?q=HERBERT", readerA))
	require.Equal(t, 1, filtered.Total)
	assert.Equal(t, "Dune", filtered.Entries[0].Title)

	empty := decodeData[LibraryResponse](t, ts.api.Get("/api/v1/library", readerB))
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Entries)
}

func TestUpdateEntry(t *testing.T) {
	ts := setupTestServer(t, Options{})
	entry := addEntry(t, ts, AddEntryRequest{ISBN: duneISBN, Title: "Dune"})

	read := domain.StatusRead
	rating := 5
	resp := ts.api.Patch(entryPath(entry), readerA, domain.EntryPatch{ReadingStatus: &read, UserRating: &rating})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decodeData[domain.LibraryEntry](t, resp)
	assert.Equal(t, domain.StatusRead, updated.ReadingStatus)
	assert.Equal(t, 5, updated.UserRating)
	assert.NotNil(t, updated.ReviewDate)
	assert.True(t, entry.ScannedAt.Equal(updated.ScannedAt))

	t.Run("invalid rating", func(t *testing.T) {
		bad := 9
		resp := ts.api.Patch(entryPath(entry), readerA, domain.EntryPatch{UserRating: &bad})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("unknown entry", func(t *testing.T) {
		resp := ts.api.Patch("/api/v1/library/"+duneISBN+"/2001-01-01T00:00:00Z", readerA, domain.EntryPatch{UserRating: &rating})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("hyphenated identifier", func(t *testing.T) {
		path := "/api/v1/library/978-0-441-01359-3/" + entry.ScannedAt.UTC().Format(time.RFC3339Nano)
		resp := ts.api.Patch(path, readerA, domain.EntryPatch{UserRating: &rating})
		assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	})

	t.Run("bad checksum", func(t *testing.T) {
		path := "/api/v1/library/9780441013590/" + entry.ScannedAt.UTC().Format(time.RFC3339Nano)
		resp := ts.api.Patch(path, readerA, domain.EntryPatch{UserRating: &rating})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		resp := ts.api.Patch("/api/v1/library/"+duneISBN+"/yesterday", readerA, domain.EntryPatch{UserRating: &rating})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("other reader", func(t *testing.T) {
		resp := ts.api.Patch(entryPath(entry), readerB, domain.EntryPatch{UserRating: &rating})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestRemoveEntry(t *testing.T) {
	ts := setupTestServer(t, Options{})
	entry := addEntry(t, ts, AddEntryRequest{ISBN: duneISBN, Title: "Dune"})

	resp := ts.api.Delete("/api/v1/library/978-0441013593/"+entry.ScannedAt.UTC().Format(time.RFC3339Nano), readerA)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	again := ts.api.Delete(entryPath(entry), readerA)
	assert.Equal(t, http.StatusNoContent, again.Code)

	list := decodeData[LibraryResponse](t, ts.api.Get("/api/v1/library", readerA))
	assert.Equal(t, 0, list.Total)
}

func TestShelvesAndStats(t *testing.T) {
	ts := setupTestServer(t, Options{})
	now := time.Now().UTC()
	addEntry(t, ts, AddEntryRequest{ISBN: duneISBN, Title: "Dune", ReadingStatus: domain.StatusRead, UserRating: 5, Categories: []string{"Fiction"}, ScannedAt: &now})
	addEntry(t, ts, AddEntryRequest{ISBN: "9780316015844", Title: "Twilight", ReadingStatus: domain.StatusReading})

	shelves := decodeData[domain.Shelves](t, ts.api.Get("/api/v1/library/shelves", readerA))
	assert.Len(t, shelves.Read, 1)
	assert.Len(t, shelves.Reading, 1)
	assert.Empty(t, shelves.WantToRead)

	stats := decodeData[service.ReadingStats](t, ts.api.Get("/api/v1/library/stats", readerA))
	assert.Equal(t, 2, stats.TotalBooks)
	assert.Equal(t, 1, stats.ByStatus.Read)
	assert.Equal(t, 1, stats.RatedBooks)
	assert.InDelta(t, 5.0, stats.MeanUserRating, 0.001)
	assert.Equal(t, 1, stats.ReadThisYear)
	assert.Equal(t, 12, stats.ReadingGoal)
}
