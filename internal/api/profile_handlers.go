package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookscanapp/bookscan-server/internal/domain"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile",
		Summary:     "Get profile",
		Description: "Returns the reader's profile and how complete it is",
		Tags:        []string{"Profile"},
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "putProfile",
		Method:      http.MethodPut,
		Path:        "/api/v1/profile",
		Summary:     "Save profile",
		Description: "Replaces the reader's profile. Lists are de-duplicated and an empty avatar color is derived from the reader ID.",
		Tags:        []string{"Profile"},
	}, s.handlePutProfile)
}

// ProfileRequest is the editable part of a profile.
type ProfileRequest struct {
	Name            string   `json:"name" maxLength:"80" doc:"Display name"`
	AvatarColor     string   `json:"avatarColor,omitempty" doc:"Palette color name such as teal; derived from the reader ID when empty"`
	Bio             string   `json:"bio,omitempty" maxLength:"500" doc:"Short bio"`
	FavoriteGenres  []string `json:"favoriteGenres,omitempty" maxItems:"30" doc:"Favorite genres"`
	FavoriteAuthors []string `json:"favoriteAuthors,omitempty" maxItems:"30" doc:"Favorite authors"`
	FavoriteBooks   []string `json:"favoriteBooks,omitempty" maxItems:"30" doc:"Favorite books"`
	Vibes           []string `json:"vibes,omitempty" maxItems:"30" doc:"Moods and themes the reader enjoys"`
	ReadingGoal     int      `json:"readingGoal,omitempty" minimum:"0" maximum:"1000" doc:"Books per year; 0 means the default"`
}

func (r ProfileRequest) toDomain() domain.ReaderProfile {
	return domain.ReaderProfile{
		Name:            r.Name,
		AvatarColor:     r.AvatarColor,
		Bio:             r.Bio,
		FavoriteGenres:  r.FavoriteGenres,
		FavoriteAuthors: r.FavoriteAuthors,
		FavoriteBooks:   r.FavoriteBooks,
		Vibes:           r.Vibes,
		ReadingGoal:     r.ReadingGoal,
	}
}

// ProfileResponse is a stored profile plus its completeness score.
type ProfileResponse struct {
	domain.ReaderProfile
	Completeness int `json:"completeness" doc:"How much of the profile is filled in, 0-100"`
}

// ProfileOutput wraps the profile response for Huma.
type ProfileOutput struct {
	Body ProfileResponse
}

// PutProfileInput is the request for saving a profile.
type PutProfileInput struct {
	ReaderInput
	Body ProfileRequest
}

func (s *Server) handleGetProfile(ctx context.Context, input *ReaderInput) (*ProfileOutput, error) {
	profile, err := s.services.Profiles.Get(ctx, input.ReaderID)
	if err != nil {
		return nil, err
	}
	return profileOutput(profile), nil
}

func (s *Server) handlePutProfile(ctx context.Context, input *PutProfileInput) (*ProfileOutput, error) {
	profile, err := s.services.Profiles.Save(ctx, input.ReaderID, input.Body.toDomain())
	if err != nil {
		return nil, err
	}
	return profileOutput(profile), nil
}

func profileOutput(p domain.ReaderProfile) *ProfileOutput {
	return &ProfileOutput{Body: ProfileResponse{ReaderProfile: p, Completeness: p.Completeness()}}
}
