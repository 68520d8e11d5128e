package domain

// Prediction bounds.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// FallbackReasoning is the short_reasoning of the neutral prediction.
const FallbackReasoning = "unable to generate a personalized prediction"

// Prediction is the affinity estimate for one reader and one book.
// Field names follow the predictor's wire format.
type Prediction struct {
	Rating         float64  `json:"rating"`
	ShortReasoning string   `json:"short_reasoning"`
	PositivePoints []string `json:"positive_points"`
	NegativePoints []string `json:"negative_points"`
}

// FallbackPrediction is returned whenever scoring fails for any reason.
func FallbackPrediction() Prediction {
	return Prediction{
		Rating:         3.0,
		ShortReasoning: FallbackReasoning,
		PositivePoints: []string{},
		NegativePoints: []string{},
	}
}
