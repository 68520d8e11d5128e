package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/library"
)

func statsEntry(isbn string, status domain.ReadingStatus, rating int, affinity float64, finished time.Time, categories ...string) domain.LibraryEntry {
	e := domain.LibraryEntry{
		BookRecord:    domain.BookRecord{ISBN: isbn, Title: isbn, Categories: categories},
		ReadingStatus: status,
		UserRating:    rating,
		ScannedAt:     finished,
	}
	if affinity > 0 {
		e.Recommendation = &domain.Prediction{Rating: affinity}
	}
	return e
}

func TestSummarize(t *testing.T) {
	thisYear := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)

	entries := []domain.LibraryEntry{
		statsEntry("1", domain.StatusRead, 5, 4.5, thisYear, "Fiction", "Science Fiction"),
		statsEntry("2", domain.StatusRead, 2, 3.0, lastYear, "fiction"),
		statsEntry("3", domain.StatusRead, 4, 0, thisYear, "Fantasy", "Fiction", "FICTION"),
		statsEntry("4", domain.StatusReading, 0, 2.0, thisYear, "Romance"),
		statsEntry("5", "", 0, 0, thisYear),
	}

	st := Summarize(entries, 2024)

	assert.Equal(t, 5, st.TotalBooks)
	assert.Equal(t, StatusCounts{Reading: 1, WantToRead: 1, Read: 3}, st.ByStatus)
	assert.Equal(t, 3, st.RatedBooks)
	assert.InDelta(t, 3.7, st.MeanUserRating, 1e-9)
	assert.InDelta(t, 4.0, st.MedianUserRating, 1e-9)
	assert.InDelta(t, 3.2, st.MeanAffinity, 1e-9)
	assert.Equal(t, 2, st.ReadThisYear)
	assert.Equal(t, []CategoryCount{
		{Name: "Fiction", Count: 3},
		{Name: "Science Fiction", Count: 1},
		{Name: "Fantasy", Count: 1},
	}, st.TopCategories)
}

func TestSummarize_Empty(t *testing.T) {
	st := Summarize(nil, 2024)
	assert.Zero(t, st.TotalBooks)
	assert.Zero(t, st.MeanUserRating)
	assert.Zero(t, st.MedianUserRating)
	assert.NotNil(t, st.TopCategories)
}

func TestStatsService_Get(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	lib := library.NewManager(st, discardLogger())
	svc := NewStatsService(lib, st, discardLogger())
	svc.now = func() time.Time { return time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC) }

	finished := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, isbn := range []string{"1", "2", "3"} {
		_, err := lib.Add(ctx, "r1", statsEntry(isbn, domain.StatusRead, 4, 0, finished))
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultReadingGoal, got.ReadingGoal)
	assert.InDelta(t, 25.0, got.GoalProgress, 1e-9)

	require.NoError(t, st.SaveProfile(ctx, "r1", domain.ReaderProfile{Name: "Ada", ReadingGoal: 4}))
	got, err = svc.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.ReadingGoal)
	assert.InDelta(t, 75.0, got.GoalProgress, 1e-9)
}
