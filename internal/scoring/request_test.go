package scoring

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/domain"
)

func TestTruncateRunes_KeepsValidUTF8(t *testing.T) {
	// 600 three-byte runes; a byte cut at 500 would split one.
	desc := strings.Repeat("世", 600)

	got, truncated := TruncateRunes(desc, MaxDescriptionRunes)

	assert.True(t, truncated)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxDescriptionRunes, utf8.RuneCountInString(got))
}

func TestTruncateRunes_ShortInputUnchanged(t *testing.T) {
	got, truncated := TruncateRunes("Arrakis", MaxDescriptionRunes)
	assert.False(t, truncated)
	assert.Equal(t, "Arrakis", got)

	got, truncated = TruncateRunes(strings.Repeat("a", MaxDescriptionRunes), MaxDescriptionRunes)
	assert.False(t, truncated)
	assert.Len(t, got, MaxDescriptionRunes)
}

func TestTruncateRunes_RepairsInvalidInput(t *testing.T) {
	got, _ := TruncateRunes("ok\xffok", 10)
	assert.True(t, utf8.ValidString(got))
}

func TestNewRequest_SnapshotsInputs(t *testing.T) {
	profile := domain.ReaderProfile{FavoriteGenres: []string{"sci-fi"}}
	samples := []domain.HistorySample{{Title: "Dune", UserRating: 5}}
	book := domain.BookRecord{Title: "Hyperion", Authors: []string{"Dan Simmons"}, Description: "Pilgrims."}

	req := NewRequest(profile, samples, book)
	profile.FavoriteGenres[0] = "romance"
	samples[0].UserRating = 1
	book.Authors[0] = "Someone Else"

	assert.Equal(t, []string{"sci-fi"}, req.UserPreferences.FavoriteGenres)
	assert.Equal(t, 5, req.ReadingHistory[0].UserRating)
	assert.Equal(t, []string{"Dan Simmons"}, req.Book.Authors)
}

func TestRenderPrompt(t *testing.T) {
	req := Request{
		Book: BookInput{Title: "Dune", Authors: []string{"Frank Herbert"}, Description: strings.Repeat("a", MaxDescriptionRunes) + "TAIL"},
		UserPreferences: domain.Preferences{
			FavoriteGenres: []string{"science fiction", "fantasy"},
			Vibes:          []string{"epic"},
		},
		ReadingHistory: []domain.HistorySample{{Title: "Foundation", UserRating: 5}, {Title: "Twilight", UserRating: 1}},
	}

	prompt, err := RenderPrompt(req)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Title: Dune")
	assert.Contains(t, prompt, "Authors: Frank Herbert")
	assert.Contains(t, prompt, `- "Foundation": 5/5`)
	assert.Contains(t, prompt, `- "Twilight": 1/5`)
	assert.Contains(t, prompt, "Favorite genres: science fiction, fantasy")
	assert.Contains(t, prompt, "Favorite authors: none given")
	assert.Contains(t, prompt, "outweighs declared preferences")
	assert.Contains(t, prompt, strings.Repeat("a", MaxDescriptionRunes)+"...")
	assert.NotContains(t, prompt, "TAIL")
}

func TestRenderPrompt_EmptyHistoryAndCappedHistory(t *testing.T) {
	prompt, err := RenderPrompt(Request{Book: BookInput{Title: "Emma"}})
	require.NoError(t, err)
	assert.Contains(t, prompt, "No rated books yet.")

	var many []domain.HistorySample
	for i := range 15 {
		many = append(many, domain.HistorySample{Title: fmt.Sprintf("Book %d", i), UserRating: 3})
	}
	prompt, err = RenderPrompt(Request{ReadingHistory: many})
	require.NoError(t, err)
	assert.Contains(t, prompt, `"Book 9"`)
	assert.NotContains(t, prompt, `"Book 10"`)
}
