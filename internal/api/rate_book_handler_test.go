package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/http/response"
)

const rateBookBody = `{
	"book": {"title": "Dune", "authors": ["Frank Herbert"], "description": "Spice and sand."},
	"userPreferences": {"favoriteGenres": ["science fiction"], "favoriteAuthors": [], "favoriteBooks": ["Foundation"], "vibes": ["epic"]},
	"readingHistory": [{"title": "Foundation", "userRating": 5}]
}`

func TestRateBook_ReturnsRawPrediction(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/rate-book", jsonHeader, strings.NewReader(rateBookBody))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Empty(t, resp.Header().Get(FallbackHeaderName))

	var pred domain.Prediction
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &pred))
	assert.InDelta(t, 4.5, pred.Rating, 0.001)
	assert.Equal(t, "You loved Foundation.", pred.ShortReasoning)
	assert.NotContains(t, resp.Body.String(), `"success"`)
}

func TestRateBook_FallbackHeader(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.predictor.set(badReply, nil)

	resp := ts.api.Post("/api/rate-book", jsonHeader, strings.NewReader(rateBookBody))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "true", resp.Header().Get(FallbackHeaderName))

	var pred domain.Prediction
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &pred))
	assert.Equal(t, domain.FallbackPrediction(), pred)
}

func TestRateBook_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		header string
		status int
		msg    string
	}{
		{"missing book", `{"userPreferences": {}}`, jsonHeader, http.StatusBadRequest, "book is required"},
		{"missing preferences", `{"book": {"title": "Dune"}}`, jsonHeader, http.StatusBadRequest, "userPreferences is required"},
		{"malformed", `{"book": `, jsonHeader, http.StatusBadRequest, "malformed JSON body"},
		{"not json", `title=Dune`, "Content-Type: application/x-www-form-urlencoded", http.StatusUnsupportedMediaType, "content type must be application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t, Options{})

			resp := ts.api.Post("/api/rate-book", tt.header, strings.NewReader(tt.body))

			assert.Equal(t, tt.status, resp.Code)
			var body response.ErrorBody
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}

func TestRateBook_BodyTooLarge(t *testing.T) {
	ts := setupTestServer(t, Options{})

	var buf bytes.Buffer
	buf.WriteString(`{"book": {"title": "Dune", "description": "`)
	buf.WriteString(strings.Repeat("a", maxRateBookBody))
	buf.WriteString(`"}, "userPreferences": {}}`)

	resp := ts.api.Post("/api/rate-book", jsonHeader, &buf)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}
