package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bookscanapp/bookscan-server/internal/color"
	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/normalize"
	"github.com/bookscanapp/bookscan-server/internal/validation"
)

// ProfileRepository loads and saves reader profiles.
type ProfileRepository interface {
	LoadProfile(ctx context.Context, readerID string) (domain.ReaderProfile, error)
	SaveProfile(ctx context.Context, readerID string, profile domain.ReaderProfile) error
}

// ProfileService manages reader profiles.
type ProfileService struct {
	repo      ProfileRepository
	validator *validation.Validator
	now       func() time.Time
	logger    *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(repo ProfileRepository, validator *validation.Validator, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		repo:      repo,
		validator: validator,
		now:       time.Now,
		logger:    logger.With("component", "profile"),
	}
}

// Get returns the reader's profile. A reader who never saved one gets a
// NOT_FOUND error.
func (s *ProfileService) Get(ctx context.Context, readerID string) (domain.ReaderProfile, error) {
	return s.repo.LoadProfile(ctx, readerID)
}

// Save replaces the reader's profile wholesale and returns what was stored.
//
// Text is trimmed and list fields are de-duplicated, first occurrence wins:
// genres and vibes by slug, authors and books ignoring case. An empty avatar
// color is derived from the reader ID, and a zero reading goal gets the
// default.
func (s *ProfileService) Save(ctx context.Context, readerID string, profile domain.ReaderProfile) (domain.ReaderProfile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Bio = strings.TrimSpace(profile.Bio)
	profile.AvatarColor = strings.ToLower(strings.TrimSpace(profile.AvatarColor))
	profile.FavoriteGenres = normalize.Labels(profile.FavoriteGenres)
	profile.Vibes = normalize.Labels(profile.Vibes)
	profile.FavoriteAuthors = normalize.Names(profile.FavoriteAuthors)
	profile.FavoriteBooks = normalize.Names(profile.FavoriteBooks)

	if profile.AvatarColor == "" {
		profile.AvatarColor = color.ForReader(readerID)
	}
	if profile.ReadingGoal == 0 {
		profile.ReadingGoal = domain.DefaultReadingGoal
	}

	if err := s.validator.Validate(profile); err != nil {
		return domain.ReaderProfile{}, err
	}

	updated := s.now().UTC()
	profile.UpdatedAt = &updated

	if err := s.repo.SaveProfile(ctx, readerID, profile); err != nil {
		return domain.ReaderProfile{}, err
	}

	s.logger.Info("profile saved",
		"reader_id", readerID,
		"completeness", profile.Completeness(),
		"genres", len(profile.FavoriteGenres),
		"authors", len(profile.FavoriteAuthors),
	)
	return profile, nil
}
