// Package main resolves one barcode and scores it without running the server.
//
// Usage:
//
//	PREDICTOR_API_KEY=... go run ./cmd/scan-test 9780441013593
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bookscanapp/bookscan-server/internal/catalog"
	"github.com/bookscanapp/bookscan-server/internal/catalog/googlebooks"
	"github.com/bookscanapp/bookscan-server/internal/config"
	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/predictor/gemini"
	"github.com/bookscanapp/bookscan-server/internal/predictor/openai"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: scan-test <isbn> [flags]")
		os.Exit(1)
	}

	cfg, err := config.Load(append([]string{"-store", config.BackendMemory}, os.Args[2:]...))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	isbn, err := catalog.NormalizeIdentifier(os.Args[1])
	if err != nil {
		logger.Error("bad identifier", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	books := googlebooks.New(googlebooks.Options{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: cfg.Catalog.Timeout,
	}, logger)
	defer books.Close()

	book, err := books.Resolve(ctx, isbn)
	if err != nil {
		logger.Error("resolve failed", "isbn", isbn, "error", err)
		os.Exit(1)
	}
	fmt.Printf("=== %s ===\n", book.Title)
	fmt.Printf("Authors: %v\n", book.Authors)
	fmt.Printf("Categories: %v\n\n", book.Categories)

	var p scoring.Predictor
	switch cfg.Predictor.Provider {
	case config.ProviderOpenAI:
		c := openai.New(openai.Options{APIKey: cfg.Predictor.APIKey, Model: cfg.Predictor.Model, BaseURL: cfg.Predictor.BaseURL, Temperature: cfg.Predictor.Temperature}, logger)
		defer c.Close()
		p = c
	default:
		c, err := gemini.New(ctx, gemini.Options{APIKey: cfg.Predictor.APIKey, Model: cfg.Predictor.Model, BaseURL: cfg.Predictor.BaseURL, Temperature: cfg.Predictor.Temperature}, logger)
		if err != nil {
			logger.Error("create gemini client", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		p = c
	}

	engine := scoring.NewEngine(p, scoring.Options{
		Provider:   cfg.Predictor.Provider,
		Timeout:    cfg.Predictor.Timeout,
		MaxRetries: cfg.Predictor.MaxRetries,
	}, logger)

	// A reader with some taste but no library.
	profile := domain.ReaderProfile{
		FavoriteGenres:  []string{"science fiction"},
		FavoriteAuthors: []string{"Ursula K. Le Guin"},
		FavoriteBooks:   []string{"Foundation"},
		Vibes:           []string{"epic"},
	}

	res := engine.Score(ctx, profile, nil, book)

	out, _ := json.MarshalIndent(res.Prediction, "", "  ")
	fmt.Println(string(out))
	if res.Fallback {
		fmt.Printf("\n(fallback: %s)\n", res.FallbackReason)
	}
}
