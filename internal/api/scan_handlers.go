package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookscanapp/bookscan-server/internal/service"
)

func (s *Server) registerScanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "startScan",
		Method:        http.MethodPost,
		Path:          "/api/v1/scans",
		Summary:       "Scan a book",
		Description:   "Resolves a barcode and starts predicting the reader's affinity. The candidate is returned immediately with status pending.",
		Tags:          []string{"Scans"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleStartScan)

	huma.Register(s.api, huma.Operation{
		OperationID: "getScan",
		Method:      http.MethodGet,
		Path:        "/api/v1/scans/{id}",
		Summary:     "Get scan",
		Description: "Returns a scan candidate. With wait=true the request blocks until the prediction is ready or a server-side bound passes.",
		Tags:        []string{"Scans"},
	}, s.handleGetScan)

	huma.Register(s.api, huma.Operation{
		OperationID:   "acceptScan",
		Method:        http.MethodPost,
		Path:          "/api/v1/scans/{id}/accept",
		Summary:       "Accept scan",
		Description:   "Adds the scanned book to the library with its prediction frozen as the recommendation",
		Tags:          []string{"Scans"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAcceptScan)

	huma.Register(s.api, huma.Operation{
		OperationID:   "discardScan",
		Method:        http.MethodDelete,
		Path:          "/api/v1/scans/{id}",
		Summary:       "Discard scan",
		Description:   "Drops the candidate and abandons its prediction. Discarding an unknown candidate succeeds.",
		Tags:          []string{"Scans"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDiscardScan)
}

// StartScanRequest carries the scanned barcode.
type StartScanRequest struct {
	Identifier string `json:"identifier" minLength:"1" maxLength:"64" doc:"Scanned ISBN-10, ISBN-13, or other barcode"`
}

// StartScanInput is the request for starting a scan.
type StartScanInput struct {
	ReaderInput
	Body StartScanRequest
}

// ScanOutput wraps a candidate for Huma.
type ScanOutput struct {
	Body service.Candidate
}

// ScanPathInput addresses one candidate.
type ScanPathInput struct {
	ReaderInput
	ID string `path:"id" doc:"Candidate ID"`
}

// GetScanInput is the request for reading a candidate.
type GetScanInput struct {
	ScanPathInput
	Wait bool `query:"wait" doc:"Block until the prediction is ready"`
}

func (s *Server) handleStartScan(ctx context.Context, input *StartScanInput) (*ScanOutput, error) {
	c, err := s.services.Scans.Scan(ctx, input.ReaderID, input.Body.Identifier)
	if err != nil {
		return nil, err
	}
	return &ScanOutput{Body: c}, nil
}

func (s *Server) handleGetScan(ctx context.Context, input *GetScanInput) (*ScanOutput, error) {
	if !input.Wait {
		c, err := s.services.Scans.Get(input.ReaderID, input.ID)
		if err != nil {
			return nil, err
		}
		return &ScanOutput{Body: c}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.ScanWait)
	defer cancel()

	c, err := s.services.Scans.Wait(waitCtx, input.ReaderID, input.ID)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	// A wait that runs out returns the candidate as it stands.
	return &ScanOutput{Body: c}, nil
}

func (s *Server) handleAcceptScan(ctx context.Context, input *ScanPathInput) (*EntryOutput, error) {
	acceptCtx, cancel := context.WithTimeout(ctx, s.opts.ScanWait)
	defer cancel()

	entry, err := s.services.Scans.Accept(acceptCtx, input.ReaderID, input.ID)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: entry}, nil
}

func (s *Server) handleDiscardScan(_ context.Context, input *ScanPathInput) (*struct{}, error) {
	if err := s.services.Scans.Discard(input.ReaderID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
