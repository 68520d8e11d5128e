// Package main provides a tool to seed the database with a demo reader.
//
// It writes a profile and a library of rated books so the stats, shelves,
// and history-aware predictions have something to work with.
//
// Usage:
//
//	DATA_PATH=~/BookScan/data go run ./cmd/seed
//	DATA_PATH=~/BookScan/data go run ./cmd/seed --reader demo --reset
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/service"
	"github.com/bookscanapp/bookscan-server/internal/store"
	"github.com/bookscanapp/bookscan-server/internal/validation"
)

var (
	readerID = flag.String("reader", "demo", "Reader ID to seed")
	reset    = flag.Bool("reset", false, "Remove the reader's existing library first")
)

type seedBook struct {
	isbn       string
	title      string
	author     string
	category   string
	status     domain.ReadingStatus
	userRating int
}

var books = []seedBook{
	{"9780441013593", "Dune", "Frank Herbert", "Fiction", domain.StatusRead, 5},
	{"9780553293357", "Foundation", "Isaac Asimov", "Fiction", domain.StatusRead, 5},
	{"9780547928227", "The Hobbit", "J.R.R. Tolkien", "Fantasy", domain.StatusRead, 4},
	{"9780316015844", "Twilight", "Stephenie Meyer", "Young Adult Fiction", domain.StatusRead, 1},
	{"9780062315007", "The Alchemist", "Paulo Coelho", "Fiction", domain.StatusRead, 2},
	{"9780765326355", "The Way of Kings", "Brandon Sanderson", "Fantasy", domain.StatusRead, 5},
	{"9780441478125", "The Left Hand of Darkness", "Ursula K. Le Guin", "Fiction", domain.StatusRead, 4},
	{"9780143111597", "The Nickel Boys", "Colson Whitehead", "Fiction", domain.StatusReading, 0},
	{"9780593135204", "Project Hail Mary", "Andy Weir", "Fiction", domain.StatusReading, 0},
	{"9780316769488", "The Catcher in the Rye", "J.D. Salinger", "Fiction", domain.StatusWantToRead, 0},
	{"9780812550702", "Ender's Game", "Orson Scott Card", "Fiction", domain.StatusWantToRead, 0},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/BookScan/data")
	}

	fmt.Printf("Opening database at: %s\n", dataPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	backend, err := store.OpenBadger(dataPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	st := store.New(backend, logger)
	defer st.Close()

	ctx := context.Background()

	profiles := service.NewProfileService(st, validation.New(), logger)
	profile, err := profiles.Save(ctx, *readerID, domain.ReaderProfile{
		Name:            "Demo Reader",
		Bio:             "Reads mostly science fiction, the longer the better.",
		FavoriteGenres:  []string{"Science Fiction", "Epic Fantasy"},
		FavoriteAuthors: []string{"Frank Herbert", "Ursula K. Le Guin"},
		FavoriteBooks:   []string{"Dune", "Foundation"},
		Vibes:           []string{"epic", "thought-provoking"},
		ReadingGoal:     24,
	})
	if err != nil {
		log.Fatalf("Failed to save profile: %v", err)
	}
	fmt.Printf("Saved profile for %s (%d%% complete)\n", *readerID, profile.Completeness())

	if *reset {
		if err := st.SaveLibrary(ctx, *readerID, nil); err != nil {
			log.Fatalf("Failed to reset library: %v", err)
		}
	}

	lib := library.NewManager(st, logger)
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	now := time.Now().UTC()

	added := 0
	for _, b := range books {
		// Spread scans over the last 90 days.
		scannedAt := now.Add(-time.Duration(rng.IntN(90*24)) * time.Hour).Add(time.Duration(rng.IntN(1e9)))

		_, err := lib.Add(ctx, *readerID, domain.LibraryEntry{
			BookRecord: domain.BookRecord{
				ISBN:       b.isbn,
				Title:      b.title,
				Authors:    []string{b.author},
				Categories: []string{b.category},
			}.WithDefaults(),
			ReadingStatus: b.status,
			UserRating:    b.userRating,
			ScannedAt:     scannedAt,
		})
		if err != nil {
			if errors.Is(err, domainerrors.ErrValidation) {
				fmt.Printf("  Skipped %s: %v\n", b.title, err)
				continue
			}
			log.Fatalf("Failed to add %s: %v", b.title, err)
		}
		added++
	}

	fmt.Printf("Added %d books to %s's library\n", added, *readerID)
}
