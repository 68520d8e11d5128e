package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bookscanapp/bookscan-server/internal/catalog"
	"github.com/bookscanapp/bookscan-server/internal/domain"
	domainerrors "github.com/bookscanapp/bookscan-server/internal/errors"
	"github.com/bookscanapp/bookscan-server/internal/history"
	"github.com/bookscanapp/bookscan-server/internal/id"
	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/metrics"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
	"github.com/bookscanapp/bookscan-server/internal/sse"
	"github.com/bookscanapp/bookscan-server/internal/syncmap"
)

// DefaultCandidateTTL is how long an unaccepted candidate is kept.
const DefaultCandidateTTL = 30 * time.Minute

// CandidateStatus is the lifecycle state of a scan candidate.
type CandidateStatus string

const (
	CandidatePending   CandidateStatus = "pending"   // prediction still running
	CandidateReady     CandidateStatus = "ready"     // prediction available
	CandidateDiscarded CandidateStatus = "discarded" // dropped by the reader, a newer scan, or expiry
	CandidateAccepted  CandidateStatus = "accepted"  // inserted into the library
)

// Candidate is a resolved book waiting for the reader to keep or drop it.
type Candidate struct {
	ID             string             `json:"id"`
	ReaderID       string             `json:"-"`
	Book           domain.BookRecord  `json:"book"`
	ScannedAt      time.Time          `json:"scannedAt"`
	ExpiresAt      time.Time          `json:"expiresAt"`
	Status         CandidateStatus    `json:"status"`
	Prediction     *domain.Prediction `json:"prediction,omitempty"`
	LowConfidence  bool               `json:"low_confidence"`
	FallbackReason string             `json:"fallbackReason,omitempty"`
}

// Scorer produces affinity predictions.
type Scorer interface {
	Score(ctx context.Context, profile domain.ReaderProfile, samples []domain.HistorySample, book domain.BookRecord) scoring.Result
}

// ScanLibrary is the part of the library the scan pipeline needs.
type ScanLibrary interface {
	Collection(ctx context.Context, readerID string) (library.Collection, error)
	Add(ctx context.Context, readerID string, entry domain.LibraryEntry) (domain.LibraryEntry, error)
}

// EventEmitter publishes candidate changes to the reader's open streams.
type EventEmitter interface {
	EmitToReader(readerID string, t sse.EventType, data any)
}

type noopEmitter struct{}

func (noopEmitter) EmitToReader(string, sse.EventType, any) {}

// scan is the mutable state behind a Candidate.
type scan struct {
	mu     sync.Mutex
	c      Candidate
	done   chan struct{} // closed when scoring finishes
	cancel context.CancelFunc
}

func (s *scan) view() Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.c
	if c.Prediction != nil {
		p := *c.Prediction
		c.Prediction = &p
	}
	return c
}

// ScanService runs the scan pipeline: resolve the identifier, snapshot the
// reader's profile and history, and score in the background while the
// reader looks at the book.
//
// Each reader has at most one active candidate. A newer scan supersedes the
// older one; the older prediction keeps running but its result is dropped.
type ScanService struct {
	resolver catalog.Resolver
	profiles ProfileSource
	library  ScanLibrary
	scorer   Scorer
	events   EventEmitter
	ttl      time.Duration

	candidates *syncmap.Map[string, *scan] // by candidate ID
	active     *syncmap.Map[string, string] // reader ID -> candidate ID
	wg         sync.WaitGroup

	now    func() time.Time
	logger *slog.Logger
}

// NewScanService creates a new scan service.
func NewScanService(
	resolver catalog.Resolver,
	profiles ProfileSource,
	lib ScanLibrary,
	scorer Scorer,
	ttl time.Duration,
	logger *slog.Logger,
) *ScanService {
	if ttl <= 0 {
		ttl = DefaultCandidateTTL
	}
	return &ScanService{
		resolver:   resolver,
		profiles:   profiles,
		library:    lib,
		scorer:     scorer,
		events:     noopEmitter{},
		ttl:        ttl,
		candidates: syncmap.New[string, *scan](),
		active:     syncmap.New[string, string](),
		now:        time.Now,
		logger:     logger.With("component", "scan"),
	}
}

// SetEventEmitter sets where candidate changes are published.
func (s *ScanService) SetEventEmitter(e EventEmitter) {
	s.events = e
}

// Scan resolves rawIdentifier and starts scoring it for the reader. The
// returned candidate is pending; poll Get or block in Wait for the result.
func (s *ScanService) Scan(ctx context.Context, readerID, rawIdentifier string) (Candidate, error) {
	s.sweep()

	isbn, err := catalog.NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return Candidate{}, err
	}

	book, err := s.resolver.Resolve(ctx, isbn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Candidate{}, ctxErr
		}
		s.logger.Info("identifier did not resolve", "reader_id", readerID, "isbn", isbn, "error", err)
		return Candidate{}, domainerrors.Resolutionf("no catalog record for %s", isbn).WithCause(err)
	}

	profile, err := s.profiles.LoadProfile(ctx, readerID)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return Candidate{}, err
	}
	coll, err := s.library.Collection(ctx, readerID)
	if err != nil {
		return Candidate{}, err
	}
	samples := history.Select(coll.Entries())

	candidateID, err := id.NewScanID()
	if err != nil {
		return Candidate{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate candidate id")
	}

	now := s.now().UTC()
	scoreCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sc := &scan{
		c: Candidate{
			ID:        candidateID,
			ReaderID:  readerID,
			Book:      book,
			ScannedAt: now,
			ExpiresAt: now.Add(s.ttl),
			Status:    CandidatePending,
		},
		done:   make(chan struct{}),
		cancel: cancel,
	}

	s.candidates.Store(candidateID, sc)
	metrics.ActiveCandidates.Inc()
	// Concurrent scans for one reader each displace exactly one predecessor.
	if prev, ok := s.active.Swap(readerID, candidateID); ok {
		s.drop(prev, "superseded")
	}
	started := sc.view()
	s.events.EmitToReader(readerID, sse.EventScanStarted, started)

	s.wg.Go(func() {
		s.score(scoreCtx, sc, profile, samples, book)
	})

	s.logger.Info("scan started",
		"reader_id", readerID,
		"candidate_id", candidateID,
		"isbn", isbn,
		"title", book.Title,
		"history_samples", len(samples),
	)
	return started, nil
}

func (s *ScanService) score(ctx context.Context, sc *scan, profile domain.ReaderProfile, samples []domain.HistorySample, book domain.BookRecord) {
	defer close(sc.done)
	defer sc.cancel()

	res := s.scorer.Score(ctx, profile, samples, book)

	sc.mu.Lock()
	if sc.c.Status != CandidatePending {
		sc.mu.Unlock()
		s.logger.Debug("dropping stale prediction", "candidate_id", sc.c.ID, "status", sc.c.Status)
		return
	}
	pred := res.Prediction
	sc.c.Prediction = &pred
	sc.c.LowConfidence = res.Fallback
	sc.c.FallbackReason = res.FallbackReason
	sc.c.Status = CandidateReady
	readerID := sc.c.ReaderID
	sc.mu.Unlock()

	s.events.EmitToReader(readerID, sse.EventScanReady, sc.view())
}

// Get returns the reader's candidate.
func (s *ScanService) Get(readerID, candidateID string) (Candidate, error) {
	s.sweep()

	sc, err := s.lookup(readerID, candidateID)
	if err != nil {
		return Candidate{}, err
	}
	return sc.view(), nil
}

// Wait blocks until the candidate's prediction is ready or ctx ends. When
// ctx ends first the pending candidate is returned with ctx's error.
func (s *ScanService) Wait(ctx context.Context, readerID, candidateID string) (Candidate, error) {
	sc, err := s.lookup(readerID, candidateID)
	if err != nil {
		return Candidate{}, err
	}

	select {
	case <-sc.done:
		return sc.view(), nil
	case <-ctx.Done():
		return sc.view(), ctx.Err()
	}
}

// Accept waits for the prediction, then adds the book to the reader's
// library with the prediction frozen as its recommendation. If ctx ends
// while the prediction is pending the candidate stays pending and a
// CONFLICT error is returned.
func (s *ScanService) Accept(ctx context.Context, readerID, candidateID string) (domain.LibraryEntry, error) {
	sc, err := s.lookup(readerID, candidateID)
	if err != nil {
		return domain.LibraryEntry{}, err
	}

	select {
	case <-sc.done:
	case <-ctx.Done():
		return domain.LibraryEntry{}, domainerrors.Conflict("prediction is still pending").WithCause(ctx.Err())
	}

	sc.mu.Lock()
	switch sc.c.Status {
	case CandidateReady:
	case CandidateAccepted:
		sc.mu.Unlock()
		return domain.LibraryEntry{}, domainerrors.Conflict("candidate was already accepted")
	default:
		sc.mu.Unlock()
		return domain.LibraryEntry{}, domainerrors.NotFoundf("scan %s not found", candidateID)
	}
	sc.c.Status = CandidateAccepted
	pred := *sc.c.Prediction
	entry := domain.LibraryEntry{
		BookRecord:     sc.c.Book,
		ReadingStatus:  domain.StatusWantToRead,
		ScannedAt:      sc.c.ScannedAt,
		Recommendation: &pred,
	}
	sc.mu.Unlock()

	added, err := s.library.Add(ctx, readerID, entry)
	if err != nil {
		sc.mu.Lock()
		sc.c.Status = CandidateReady
		sc.mu.Unlock()
		return domain.LibraryEntry{}, err
	}

	s.remove(candidateID, "accepted")
	s.events.EmitToReader(readerID, sse.EventScanAccepted, added)
	s.logger.Info("candidate accepted", "reader_id", readerID, "candidate_id", candidateID, "isbn", added.ISBN)
	return added, nil
}

// Discard drops the reader's candidate and abandons its prediction.
// Discarding an unknown or already dropped candidate succeeds.
func (s *ScanService) Discard(readerID, candidateID string) error {
	sc, err := s.lookup(readerID, candidateID)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	sc.mu.Lock()
	accepted := sc.c.Status == CandidateAccepted
	sc.mu.Unlock()
	if accepted {
		return domainerrors.Conflict("candidate is being accepted")
	}

	s.drop(candidateID, "discarded")
	sc.cancel()
	return nil
}

// Close waits for in-flight predictions to finish.
func (s *ScanService) Close() {
	s.candidates.Range(func(_ string, sc *scan) bool {
		sc.cancel()
		return true
	})
	s.wg.Wait()
}

func (s *ScanService) lookup(readerID, candidateID string) (*scan, error) {
	sc, ok := s.candidates.Load(candidateID)
	if !ok {
		return nil, domainerrors.NotFoundf("scan %s not found", candidateID)
	}
	sc.mu.Lock()
	owner := sc.c.ReaderID
	expired := s.now().After(sc.c.ExpiresAt) && sc.c.Status != CandidateAccepted
	sc.mu.Unlock()
	if owner != readerID {
		return nil, domainerrors.NotFoundf("scan %s not found", candidateID)
	}
	if expired {
		s.drop(candidateID, "expired")
		sc.cancel()
		return nil, domainerrors.NotFoundf("scan %s has expired", candidateID)
	}
	return sc, nil
}

// drop marks a live candidate discarded and forgets it.
func (s *ScanService) drop(candidateID, reason string) {
	sc, ok := s.candidates.Load(candidateID)
	if !ok {
		return
	}
	sc.mu.Lock()
	if sc.c.Status == CandidateAccepted || sc.c.Status == CandidateDiscarded {
		sc.mu.Unlock()
		return
	}
	sc.c.Status = CandidateDiscarded
	readerID := sc.c.ReaderID
	sc.mu.Unlock()

	s.remove(candidateID, reason)
	s.events.EmitToReader(readerID, sse.EventScanDiscarded, sse.DiscardedData{
		CandidateID: candidateID,
		Reason:      reason,
	})
	s.logger.Debug("candidate dropped", "candidate_id", candidateID, "reason", reason)
}

func (s *ScanService) remove(candidateID, state string) {
	var readerID string
	if !s.candidates.DeleteIf(candidateID, func(sc *scan) bool {
		readerID = sc.c.ReaderID
		return true
	}) {
		return
	}
	s.active.DeleteIf(readerID, func(current string) bool { return current == candidateID })
	metrics.ActiveCandidates.Dec()
	metrics.ScanCandidates.WithLabelValues(state).Inc()
}

// sweep expires candidates past their TTL.
func (s *ScanService) sweep() {
	now := s.now()
	s.candidates.Range(func(candidateID string, sc *scan) bool {
		sc.mu.Lock()
		expired := now.After(sc.c.ExpiresAt) && sc.c.Status != CandidateAccepted
		sc.mu.Unlock()
		if expired {
			s.drop(candidateID, "expired")
			sc.cancel()
		}
		return true
	})
}
