package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/logger"
	"github.com/bookscanapp/bookscan-server/internal/predictor/gemini"
	"github.com/bookscanapp/bookscan-server/internal/predictor/openai"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
)

// predictorClient is a language model client that owns background resources.
type predictorClient interface {
	scoring.Predictor
	Close()
}

// PredictorHandle wraps the configured language model client.
type PredictorHandle struct {
	predictorClient
}

// Shutdown implements do.Shutdownable.
func (h *PredictorHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvidePredictor provides the language model client for the configured provider.
func ProvidePredictor(i do.Injector) (*PredictorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Predictor.APIKey == "" {
		log.Warn("PREDICTOR_API_KEY is not set, every prediction will fall back")
	}

	var client predictorClient
	switch cfg.Predictor.Provider {
	case config.ProviderOpenAI:
		client = openai.New(openai.Options{
			APIKey:      cfg.Predictor.APIKey,
			Model:       cfg.Predictor.Model,
			BaseURL:     cfg.Predictor.BaseURL,
			Temperature: cfg.Predictor.Temperature,
		}, log.Logger)
	default:
		c, err := gemini.New(context.Background(), gemini.Options{
			APIKey:      cfg.Predictor.APIKey,
			Model:       cfg.Predictor.Model,
			BaseURL:     cfg.Predictor.BaseURL,
			Temperature: cfg.Predictor.Temperature,
		}, log.Logger)
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &PredictorHandle{predictorClient: client}, nil
}

// ProvideScoringEngine provides the scoring engine.
func ProvideScoringEngine(i do.Injector) (*scoring.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	predictorHandle := do.MustInvoke[*PredictorHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return scoring.NewEngine(predictorHandle, scoring.Options{
		Provider:   cfg.Predictor.Provider,
		Timeout:    cfg.Predictor.Timeout,
		MaxRetries: cfg.Predictor.MaxRetries,
	}, log.Logger), nil
}
