// Package main prints a summary of a BookScan Badger database.
//
// Usage:
//
//	DATA_PATH=~/BookScan/data go run ./cmd/dbinspect
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/bookscanapp/bookscan-server/internal/domain"
)

type readerSummary struct {
	entries     int
	byStatus    map[domain.ReadingStatus]int
	rated       int
	recommended int
	hasProfile  bool
}

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/BookScan/data")
	}

	opts := badger.DefaultOptions(dataPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	readers := make(map[string]*readerSummary)
	summary := func(id string) *readerSummary {
		r, ok := readers[id]
		if !ok {
			r = &readerSummary{byStatus: make(map[domain.ReadingStatus]int)}
			readers[id] = r
		}
		return r
	}
	cachedBooks := 0

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			prefix, id, ok := strings.Cut(key, ":")
			if !ok {
				continue
			}

			switch prefix {
			case "catalog":
				cachedBooks++
			case "profile":
				summary(id).hasProfile = true
			case "library":
				err := item.Value(func(val []byte) error {
					var entries []domain.LibraryEntry
					if err := json.Unmarshal(val, &entries); err != nil {
						return err
					}
					r := summary(id)
					for _, e := range entries {
						r.entries++
						r.byStatus[e.Status()]++
						if e.UserRating > 0 {
							r.rated++
						}
						if e.Recommendation != nil {
							r.recommended++
						}
					}
					return nil
				})
				if err != nil {
					log.Printf("Error reading %s: %v", key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	for id, r := range readers {
		fmt.Printf("Reader: %s\n", id)
		fmt.Printf("  Profile: %t\n", r.hasProfile)
		fmt.Printf("  Entries: %d (reading %d, want-to-read %d, read %d)\n",
			r.entries,
			r.byStatus[domain.StatusReading],
			r.byStatus[domain.StatusWantToRead],
			r.byStatus[domain.StatusRead])
		fmt.Printf("  Rated: %d, with recommendation: %d\n", r.rated, r.recommended)
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Readers: %d\n", len(readers))
	fmt.Printf("Cached catalog records: %d\n", cachedBooks)
}
