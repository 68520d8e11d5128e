package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/normalize"
)

// maxTopCategories bounds ReadingStats.TopCategories.
const maxTopCategories = 5

// StatusCounts counts library entries per reading status.
type StatusCounts struct {
	Reading    int `json:"reading"`
	WantToRead int `json:"want-to-read"`
	Read       int `json:"read"`
}

// CategoryCount is how many read books carry a category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ReadingStats summarizes a reader's library.
type ReadingStats struct {
	TotalBooks       int             `json:"totalBooks"`
	ByStatus         StatusCounts    `json:"byStatus"`
	RatedBooks       int             `json:"ratedBooks"`
	MeanUserRating   float64         `json:"meanUserRating"`
	MedianUserRating float64         `json:"medianUserRating"`
	MeanAffinity     float64         `json:"meanAffinity"`
	ReadThisYear     int             `json:"readThisYear"`
	ReadingGoal      int             `json:"readingGoal"`
	GoalProgress     float64         `json:"goalProgress"` // percent, may exceed 100
	TopCategories    []CategoryCount `json:"topCategories"`
}

// LibrarySource provides library snapshots.
type LibrarySource interface {
	Collection(ctx context.Context, readerID string) (library.Collection, error)
}

// ProfileSource provides reader profiles.
type ProfileSource interface {
	LoadProfile(ctx context.Context, readerID string) (domain.ReaderProfile, error)
}

// StatsService computes reading statistics.
type StatsService struct {
	library  LibrarySource
	profiles ProfileSource
	now      func() time.Time
	logger   *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(lib LibrarySource, profiles ProfileSource, logger *slog.Logger) *StatsService {
	return &StatsService{
		library:  lib,
		profiles: profiles,
		now:      time.Now,
		logger:   logger.With("component", "stats"),
	}
}

// Get computes statistics for the reader's current library.
func (s *StatsService) Get(ctx context.Context, readerID string) (ReadingStats, error) {
	c, err := s.library.Collection(ctx, readerID)
	if err != nil {
		return ReadingStats{}, err
	}

	goal := domain.DefaultReadingGoal
	profile, err := s.profiles.LoadProfile(ctx, readerID)
	switch {
	case err == nil:
		if profile.ReadingGoal > 0 {
			goal = profile.ReadingGoal
		}
	case errors.Is(err, domainerrors.ErrNotFound):
	default:
		return ReadingStats{}, err
	}

	st := Summarize(c.Entries(), s.now().Year())
	st.ReadingGoal = goal
	st.GoalProgress = round1(float64(st.ReadThisYear) / float64(goal) * 100)

	s.logger.Debug("stats computed", "reader_id", readerID, "total", st.TotalBooks, "rated", st.RatedBooks)
	return st, nil
}

// Summarize computes everything in ReadingStats except the goal fields.
// year selects which books count as read this year.
func Summarize(entries []domain.LibraryEntry, year int) ReadingStats {
	st := ReadingStats{TotalBooks: len(entries), TopCategories: []CategoryCount{}}

	var ratings, affinities []float64
	for _, e := range entries {
		switch e.Status() {
		case domain.StatusReading:
			st.ByStatus.Reading++
		case domain.StatusRead:
			st.ByStatus.Read++
			if finishedAt(e).Year() == year {
				st.ReadThisYear++
			}
		default:
			st.ByStatus.WantToRead++
		}
		if e.UserRating > 0 {
			ratings = append(ratings, float64(e.UserRating))
		}
		if e.Recommendation != nil {
			affinities = append(affinities, e.Recommendation.Rating)
		}
	}

	st.RatedBooks = len(ratings)
	// stats returns ErrEmptyInput for empty slices; zero is the right answer.
	if mean, err := stats.Mean(ratings); err == nil {
		st.MeanUserRating = round1(mean)
	}
	if median, err := stats.Median(ratings); err == nil {
		st.MedianUserRating = round1(median)
	}
	if mean, err := stats.Mean(affinities); err == nil {
		st.MeanAffinity = round1(mean)
	}

	st.TopCategories = topCategories(entries)
	return st
}

// finishedAt approximates when a read book was finished: the last review
// edit, or the scan if it was never edited.
func finishedAt(e domain.LibraryEntry) time.Time {
	if e.ReviewDate != nil {
		return *e.ReviewDate
	}
	return e.ScannedAt
}

func topCategories(entries []domain.LibraryEntry) []CategoryCount {
	counts := make(map[string]*CategoryCount)
	var order []string
	for _, e := range entries {
		if e.Status() != domain.StatusRead {
			continue
		}
		// A book listing a category twice counts once.
		for _, name := range normalize.Labels(e.Categories) {
			slug := normalize.Slugify(name)
			if slug == "" {
				slug = name
			}
			if c, ok := counts[slug]; ok {
				c.Count++
				continue
			}
			counts[slug] = &CategoryCount{Name: name, Count: 1}
			order = append(order, slug)
		}
	}

	out := make([]CategoryCount, 0, len(order))
	for _, slug := range order {
		out = append(out, *counts[slug])
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(out) > maxTopCategories {
		out = out[:maxTopCategories]
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
