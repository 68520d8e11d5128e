package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
	"github.com/bookscanapp/bookscan-server/internal/id"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/metrics"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
	"github.com/bookscanapp/bookscan-server/internal/sse"
)

func TestScan_ResolveAndScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.scans.Scan(ctx, "r1", "978-0-441-01359-3")
	require.NoError(t, err)
	assert.True(t, id.HasPrefix(c.ID, id.PrefixScan))
	assert.Equal(t, "Dune", c.Book.Title)
	assert.False(t, c.ScannedAt.IsZero())
	assert.Equal(t, c.ScannedAt.Add(time.Hour), c.ExpiresAt)

	ready := requireReady(t, f, "r1", c.ID)
	require.NotNil(t, ready.Prediction)
	assert.InDelta(t, 4.6, ready.Prediction.Rating, 1e-9)
	assert.False(t, ready.LowConfidence)

	got, err := f.scans.Get("r1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, ready, got)
}

func TestScan_ReturnsPendingImmediately(t *testing.T) {
	f := newFixture(t)
	f.scorer.gate = make(chan struct{})

	c, err := f.scans.Scan(context.Background(), "r1", duneISBN)
	require.NoError(t, err)
	assert.Equal(t, CandidatePending, c.Status)
	assert.Nil(t, c.Prediction)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	pending, err := f.scans.Wait(ctx, "r1", c.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, CandidatePending, pending.Status)

	close(f.scorer.gate)
	requireReady(t, f, "r1", c.ID)
}

func TestScan_ScoringSurvivesRequestCancellation(t *testing.T) {
	f := newFixture(t)
	f.scorer.gate = make(chan struct{})

	reqCtx, cancel := context.WithCancel(context.Background())
	c, err := f.scans.Scan(reqCtx, "r1", duneISBN)
	require.NoError(t, err)
	cancel()
	close(f.scorer.gate)

	ready := requireReady(t, f, "r1", c.ID)
	assert.False(t, ready.LowConfidence)
}

func TestScan_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scans.Scan(ctx, "r1", "9780441013594")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = f.scans.Scan(ctx, "r1", "9780000000002")
	assert.ErrorIs(t, err, domainerrors.ErrResolution)

	_, err = f.scans.Get("r1", "scan-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestScan_SnapshotsProfileAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile := domain.ReaderProfile{Name: "Ada", FavoriteGenres: []string{"Science Fiction"}}
	require.NoError(t, f.store.SaveProfile(ctx, "r1", profile))

	reviewed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.library.Add(ctx, "r1", domain.LibraryEntry{
		BookRecord:    domain.BookRecord{ISBN: "1", Title: "Hyperion"},
		ReadingStatus: domain.StatusRead,
		UserRating:    5,
		ReviewDate:    &reviewed,
		ScannedAt:     reviewed,
	})
	require.NoError(t, err)

	c, err := f.scans.Scan(ctx, "r1", duneISBN)
	require.NoError(t, err)
	requireReady(t, f, "r1", c.ID)

	call := f.scorer.lastCall()
	assert.Equal(t, "Ada", call.profile.Name)
	assert.Equal(t, []domain.HistorySample{{Title: "Hyperion", UserRating: 5}}, call.samples)
	assert.Equal(t, "Dune", call.book.Title)
}

func TestScan_MissingProfileScoresWithEmptyProfile(t *testing.T) {
	f := newFixture(t)

	c, err := f.scans.Scan(context.Background(), "nobody", duneISBN)
	require.NoError(t, err)
	requireReady(t, f, "nobody", c.ID)
	assert.Equal(t, domain.ReaderProfile{}, f.scorer.lastCall().profile)
}

func TestScan_CandidatesAreReaderScoped(t *testing.T) {
	f := newFixture(t)

	c, err := f.scans.Scan(context.Background(), "r1", duneISBN)
	require.NoError(t, err)

	_, err = f.scans.Get("r2", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = f.scans.Accept(context.Background(), "r2", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestScan_NewScanSupersedesPrevious(t *testing.T) {
	f := newFixture(t)
	f.scorer.gate = make(chan struct{})
	ctx := context.Background()
	supersededBefore := testutil.ToFloat64(metrics.ScanCandidates.WithLabelValues("superseded"))

	first, err := f.scans.Scan(ctx, "r1", duneISBN)
	require.NoError(t, err)
	second, err := f.scans.Scan(ctx, "r1", twilightISBN)
	require.NoError(t, err)

	_, err = f.scans.Get("r1", first.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Equal(t, supersededBefore+1, testutil.ToFloat64(metrics.ScanCandidates.WithLabelValues("superseded")))

	close(f.scorer.gate)
	ready := requireReady(t, f, "r1", second.ID)
	assert.Equal(t, "Twilight", ready.Book.Title)

	// Other readers keep their own candidate.
	other, err := f.scans.Scan(ctx, "r2", duneISBN)
	require.NoError(t, err)
	_, err = f.scans.Get("r1", second.ID)
	assert.NoError(t, err)
	requireReady(t, f, "r2", other.ID)
}

func TestScan_AcceptFreezesRecommendation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.scans.Scan(ctx, "r1", duneISBN)
	require.NoError(t, err)

	entry, err := f.scans.Accept(waitCtx(t), "r1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWantToRead, entry.ReadingStatus)
	assert.True(t, entry.ScannedAt.Equal(c.ScannedAt))
	require.NotNil(t, entry.Recommendation)
	assert.InDelta(t, 4.6, entry.Recommendation.Rating, 1e-9)

	entries, err := f.library.Query(ctx, "r1", "", library.SortDate)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Dune", entries[0].Title)

	// The candidate is gone once accepted.
	_, err = f.scans.Get("r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = f.scans.Accept(ctx, "r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	// Editing the entry later leaves the recommendation alone.
	rating := 2
	updated, err := f.library.Update(ctx, "r1", entry.Key(), domain.EntryPatch{UserRating: &rating})
	require.NoError(t, err)
	assert.InDelta(t, 4.6, updated.AffinityRating(), 1e-9)
}

func TestScan_AcceptWaitsForPrediction(t *testing.T) {
	f := newFixture(t)
	f.scorer.gate = make(chan struct{})

	c, err := f.scans.Scan(context.Background(), "r1", duneISBN)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.scans.Accept(short, "r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	still, err := f.scans.Get("r1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, CandidatePending, still.Status)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(f.scorer.gate)
	}()
	entry, err := f.scans.Accept(waitCtx(t), "r1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", entry.Title)
}

func TestScan_AcceptKeepsLowConfidenceFallback(t *testing.T) {
	f := newFixture(t)
	f.scorer.result = scoring.Result{Prediction: domain.FallbackPrediction(), Fallback: true, FallbackReason: scoring.ReasonTimeout}

	c, err := f.scans.Scan(context.Background(), "r1", duneISBN)
	require.NoError(t, err)

	ready := requireReady(t, f, "r1", c.ID)
	assert.True(t, ready.LowConfidence)
	assert.Equal(t, scoring.ReasonTimeout, ready.FallbackReason)

	entry, err := f.scans.Accept(waitCtx(t), "r1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackPrediction(), *entry.Recommendation)
}

func TestScan_DiscardIsIdempotentAndDropsResult(t *testing.T) {
	f := newFixture(t)
	f.scorer.gate = make(chan struct{})
	defer close(f.scorer.gate)

	c, err := f.scans.Scan(context.Background(), "r1", duneISBN)
	require.NoError(t, err)

	require.NoError(t, f.scans.Discard("r1", c.ID))
	require.NoError(t, f.scans.Discard("r1", c.ID))
	require.NoError(t, f.scans.Discard("r1", "scan-never-existed"))

	_, err = f.scans.Get("r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = f.scans.Accept(context.Background(), "r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	entries, err := f.library.Query(context.Background(), "r1", "", library.SortDate)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScan_CandidatesExpire(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	f.scans.now = func() time.Time { return now }
	expiredBefore := testutil.ToFloat64(metrics.ScanCandidates.WithLabelValues("expired"))

	c, err := f.scans.Scan(context.Background(), "r1", duneISBN)
	require.NoError(t, err)
	requireReady(t, f, "r1", c.ID)

	now = now.Add(59 * time.Minute)
	_, err = f.scans.Get("r1", c.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = f.scans.Get("r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Equal(t, expiredBefore+1, testutil.ToFloat64(metrics.ScanCandidates.WithLabelValues("expired")))
}

func TestScan_ExpiredCandidateCannotBeAccepted(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	f.scans.now = func() time.Time { return now }
	ctx := context.Background()

	c, err := f.scans.Scan(ctx, "r1", duneISBN)
	require.NoError(t, err)
	_, err = f.scans.Wait(waitCtx(t), "r1", c.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = f.scans.Accept(waitCtx(t), "r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = f.scans.Wait(waitCtx(t), "r1", c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	entries, err := f.library.Query(ctx, "r1", "", library.SortDate)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScan_ConcurrentScansLeaveOneCandidate(t *testing.T) {
	f := newFixture(t)
	f.scorer.gate = make(chan struct{})
	defer close(f.scorer.gate)

	var wg sync.WaitGroup
	for i := range 8 {
		isbn := duneISBN
		if i%2 == 1 {
			isbn = twilightISBN
		}
		wg.Go(func() {
			_, err := f.scans.Scan(context.Background(), "r1", isbn)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Equal(t, 1, f.scans.candidates.Len())
	live, ok := f.scans.active.Load("r1")
	require.True(t, ok)
	_, err := f.scans.Get("r1", live)
	assert.NoError(t, err)
}

func TestScan_EmitsCandidateEvents(t *testing.T) {
	f := newFixture(t)
	events := &recordingEmitter{}
	f.scans.SetEventEmitter(events)
	ctx := context.Background()

	first, err := f.scans.Scan(ctx, "r1", duneISBN)
	require.NoError(t, err)
	requireReady(t, f, "r1", first.ID)

	second, err := f.scans.Scan(ctx, "r1", twilightISBN)
	require.NoError(t, err)
	_, err = f.scans.Accept(waitCtx(t), "r1", second.ID)
	require.NoError(t, err)

	assert.Equal(t, []sse.EventType{
		sse.EventScanStarted,
		sse.EventScanReady,
		sse.EventScanDiscarded,
		sse.EventScanStarted,
		sse.EventScanReady,
		sse.EventScanAccepted,
	}, events.types())

	events.mu.Lock()
	defer events.mu.Unlock()
	for _, e := range events.events {
		assert.Equal(t, "r1", e.readerID)
	}
	assert.Equal(t, sse.DiscardedData{CandidateID: first.ID, Reason: "superseded"}, events.events[2].data)
	started, ok := events.events[0].data.(Candidate)
	require.True(t, ok)
	assert.Equal(t, CandidatePending, started.Status)
}
