package scoring

import (
	"math"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
)

// wirePrediction distinguishes absent fields from zero values.
type wirePrediction struct {
	Rating         *float64  `json:"rating"`
	ShortReasoning *string   `json:"short_reasoning"`
	PositivePoints *[]string `json:"positive_points"`
	NegativePoints *[]string `json:"negative_points"`
}

// ExtractPrediction pulls the prediction object out of free-form model output.
// The first balanced {...} span is decoded; prose or code fences around it
// are ignored. Any failure is a PREDICTION_FORMAT error carrying raw.
func ExtractPrediction(raw string) (domain.Prediction, error) {
	span, ok := firstObjectSpan(raw)
	if !ok {
		return domain.Prediction{}, domainerrors.PredictionFormat("no JSON object in predictor output", raw)
	}

	var w wirePrediction
	if err := json.Unmarshal([]byte(span), &w); err != nil {
		return domain.Prediction{}, domainerrors.PredictionFormat("predictor output is not a valid prediction object", raw).WithCause(err)
	}

	var missing []string
	if w.Rating == nil {
		missing = append(missing, "rating")
	}
	if w.ShortReasoning == nil {
		missing = append(missing, "short_reasoning")
	}
	if w.PositivePoints == nil {
		missing = append(missing, "positive_points")
	}
	if w.NegativePoints == nil {
		missing = append(missing, "negative_points")
	}
	if len(missing) > 0 {
		return domain.Prediction{}, domainerrors.PredictionFormat("prediction is missing "+strings.Join(missing, ", "), raw)
	}

	rating := *w.Rating
	if math.IsNaN(rating) || rating < domain.MinRating || rating > domain.MaxRating {
		return domain.Prediction{}, domainerrors.PredictionFormat("prediction rating is outside 1.0 to 5.0", raw)
	}

	return domain.Prediction{
		Rating:         rating,
		ShortReasoning: strings.TrimSpace(*w.ShortReasoning),
		PositivePoints: nonNil(*w.PositivePoints),
		NegativePoints: nonNil(*w.NegativePoints),
	}, nil
}

// firstObjectSpan returns the first top-level {...} span of s. Braces inside
// JSON strings, including escaped quotes, do not count.
func firstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
