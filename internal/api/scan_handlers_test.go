package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/domain"
	"github.com/bookscanapp/bookscan-server/internal/service"
)

func startScan(t *testing.T, ts *apiTestServer, identifier string) service.Candidate {
	t.Helper()
	resp := ts.api.Post("/api/v1/scans", readerA, StartScanRequest{Identifier: identifier})
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	return decodeData[service.Candidate](t, resp)
}

func TestScan_AcceptFlow(t *testing.T) {
	ts := setupTestServer(t, Options{})

	c := startScan(t, ts, "978-0-441-01359-3")
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Dune", c.Book.Title)

	waited := decodeData[service.Candidate](t, ts.api.Get("/api/v1/scans/"+c.ID+"?wait=true", readerA))
	require.Equal(t, service.CandidateReady, waited.Status)
	require.NotNil(t, waited.Prediction)
	assert.InDelta(t, 4.5, waited.Prediction.Rating, 0.001)
	assert.False(t, waited.LowConfidence)

	resp := ts.api.Post("/api/v1/scans/"+c.ID+"/accept", readerA)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	entry := decodeData[domain.LibraryEntry](t, resp)
	require.NotNil(t, entry.Recommendation)
	assert.InDelta(t, 4.5, entry.Recommendation.Rating, 0.001)
	assert.Equal(t, domain.StatusWantToRead, entry.ReadingStatus)

	list := decodeData[LibraryResponse](t, ts.api.Get("/api/v1/library", readerA))
	assert.Equal(t, 1, list.Total)

	gone := ts.api.Get("/api/v1/scans/"+c.ID, readerA)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestScan_FallbackIsLowConfidence(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.predictor.set(badReply, nil)

	c := startScan(t, ts, duneISBN)
	waited := decodeData[service.Candidate](t, ts.api.Get("/api/v1/scans/"+c.ID+"?wait=true", readerA))

	require.Equal(t, service.CandidateReady, waited.Status)
	assert.True(t, waited.LowConfidence)
	assert.NotEmpty(t, waited.FallbackReason)
	assert.InDelta(t, 3.0, waited.Prediction.Rating, 0.001)
}

func TestScan_Errors(t *testing.T) {
	ts := setupTestServer(t, Options{})

	t.Run("unknown book", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/scans", readerA, StartScanRequest{Identifier: "9780306406157"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "RESOLUTION", decodeError(t, resp).Code)
	})

	t.Run("bad checksum", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/scans", readerA, StartScanRequest{Identifier: "9780441013594"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/scans/scan_missing", readerA)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("candidate of another reader", func(t *testing.T) {
		c := startScan(t, ts, duneISBN)
		resp := ts.api.Get("/api/v1/scans/"+c.ID, readerB)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		accept := ts.api.Post("/api/v1/scans/"+c.ID+"/accept", readerB)
		assert.Equal(t, http.StatusNotFound, accept.Code)
	})
}

func TestScan_Discard(t *testing.T) {
	ts := setupTestServer(t, Options{})
	c := startScan(t, ts, duneISBN)

	resp := ts.api.Delete("/api/v1/scans/"+c.ID, readerA)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	again := ts.api.Delete("/api/v1/scans/"+c.ID, readerA)
	assert.Equal(t, http.StatusNoContent, again.Code)

	accept := ts.api.Post("/api/v1/scans/"+c.ID+"/accept", readerA)
	assert.Equal(t, http.StatusNotFound, accept.Code)
}

func TestScan_NewerScanSupersedes(t *testing.T) {
	ts := setupTestServer(t, Options{})

	first := startScan(t, ts, duneISBN)
	second := startScan(t, ts, duneISBN)
	require.NotEqual(t, first.ID, second.ID)

	resp := ts.api.Get("/api/v1/scans/"+first.ID, readerA)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/scans/"+second.ID, readerA)
	assert.Equal(t, http.StatusOK, resp.Code)
}
