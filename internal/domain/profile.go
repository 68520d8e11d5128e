package domain

import "time"

// DefaultReadingGoal is the yearly book target a new profile starts with.
const DefaultReadingGoal = 12

// ReaderProfile is the reader's declared taste. It is replaced wholesale on save.
type ReaderProfile struct {
	Name            string     `json:"name" validate:"required,max=80"`
	AvatarColor     string     `json:"avatarColor,omitempty" validate:"omitempty,avatarcolor"`
	Bio             string     `json:"bio,omitempty" validate:"max=500"`
	FavoriteGenres  []string   `json:"favoriteGenres" validate:"max=30,dive,required,max=60"`
	FavoriteAuthors []string   `json:"favoriteAuthors" validate:"max=30,dive,required,max=120"`
	FavoriteBooks   []string   `json:"favoriteBooks" validate:"max=30,dive,required,max=200"`
	Vibes           []string   `json:"vibes" validate:"max=30,dive,required,max=60"`
	ReadingGoal     int        `json:"readingGoal" validate:"gte=0,lte=1000"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// Preferences is the slice of the profile the predictor sees.
type Preferences struct {
	FavoriteGenres  []string `json:"favoriteGenres"`
	FavoriteAuthors []string `json:"favoriteAuthors"`
	FavoriteBooks   []string `json:"favoriteBooks"`
	Vibes           []string `json:"vibes"`
}

// Preferences returns a copy of the profile's taste lists.
func (p ReaderProfile) Preferences() Preferences {
	return Preferences{
		FavoriteGenres:  cloneStrings(p.FavoriteGenres),
		FavoriteAuthors: cloneStrings(p.FavoriteAuthors),
		FavoriteBooks:   cloneStrings(p.FavoriteBooks),
		Vibes:           cloneStrings(p.Vibes),
	}
}

// Completeness scores how much of the profile is filled in, from 0 to 100.
func (p ReaderProfile) Completeness() int {
	score := 0
	if p.Name != "" {
		score += 20
	}
	if len(p.FavoriteGenres) > 0 {
		score += 20
	}
	if len(p.FavoriteAuthors) > 0 {
		score += 15
	}
	if len(p.FavoriteBooks) > 0 {
		score += 15
	}
	if len(p.Vibes) > 0 {
		score += 15
	}
	if p.Bio != "" {
		score += 15
	}
	return min(score, 100)
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
