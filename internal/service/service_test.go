package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/catalog"
	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
	"github.com/bookscanapp/bookscan-server/internal/sse"
	"github.com/bookscanapp/bookscan-server/internal/store"
)

const (
	duneISBN     = "9780441013593"
	twilightISBN = "9780316015844"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeResolver struct {
	books map[string]domain.BookRecord
}

func (f fakeResolver) Resolve(_ context.Context, isbn string) (domain.BookRecord, error) {
	b, ok := f.books[isbn]
	if !ok {
		return domain.BookRecord{}, catalog.ErrNotFound
	}
	return b, nil
}

func testResolver() fakeResolver {
	return fakeResolver{books: map[string]domain.BookRecord{
		duneISBN:     {ISBN: duneISBN, Title: "Dune", Authors: []string{"Frank Herbert"}, Categories: []string{"Fiction"}},
		twilightISBN: {ISBN: twilightISBN, Title: "Twilight", Authors: []string{"Stephenie Meyer"}},
	}}
}

type scoreCall struct {
	profile domain.ReaderProfile
	samples []domain.HistorySample
	book    domain.BookRecord
}

// gatedScorer blocks each Score call until released, then answers with
// result. A nil gate answers immediately.
type gatedScorer struct {
	mu     sync.Mutex
	gate   chan struct{}
	result scoring.Result
	calls  []scoreCall
}

func (g *gatedScorer) Score(ctx context.Context, profile domain.ReaderProfile, samples []domain.HistorySample, book domain.BookRecord) scoring.Result {
	g.mu.Lock()
	g.calls = append(g.calls, scoreCall{profile, samples, book})
	gate, result := g.gate, g.result
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return scoring.Result{Prediction: domain.FallbackPrediction(), Fallback: true, FallbackReason: scoring.ReasonCanceled}
		}
	}
	return result
}

func (g *gatedScorer) lastCall() scoreCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

type fixture struct {
	store   *store.Store
	library *library.Manager
	scorer  *gatedScorer
	scans   *ScanService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newTestStore(t)
	lib := library.NewManager(st, discardLogger())
	scorer := &gatedScorer{result: scoring.Result{Prediction: domain.Prediction{
		Rating:         4.6,
		ShortReasoning: "Loved epic science fiction before.",
		PositivePoints: []string{"worldbuilding"},
		NegativePoints: []string{},
	}}}
	scans := NewScanService(testResolver(), st, lib, scorer, time.Hour, discardLogger())
	t.Cleanup(scans.Close)

	return &fixture{store: st, library: lib, scorer: scorer, scans: scans}
}

type emitted struct {
	readerID string
	typ      sse.EventType
	data     any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) EmitToReader(readerID string, t sse.EventType, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{readerID: readerID, typ: t, data: data})
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.typ
	}
	return out
}

// newTestStore returns a Store over an in-memory Badger database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	backend, err := store.OpenBadgerInMemory(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	st := store.New(backend, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func requireReady(t *testing.T, f *fixture, readerID, candidateID string) Candidate {
	t.Helper()
	c, err := f.scans.Wait(waitCtx(t), readerID, candidateID)
	require.NoError(t, err)
	require.Equal(t, CandidateReady, c.Status)
	return c
}
