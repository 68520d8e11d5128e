package api

import "github.com/danielgtaylor/huma/v2"

// EnvelopeVersion is bumped whenever the envelope shape changes so clients
// can detect a server they do not understand.
const EnvelopeVersion = 1

// APIEnvelope wraps every successful huma response.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope wraps every huma error response.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int          `json:"v"`
	Success bool         `json:"success"`
	Error   APIErrorBody `json:"error"`
}

// APIErrorBody is the error object inside APIErrorEnvelope.
type APIErrorBody struct { //nolint:revive // API prefix is intentional for clarity
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that puts every response body
// into the envelope.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch t := v.(type) {
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error: APIErrorBody{
				Code:    t.Code,
				Message: t.Message,
				Details: t.Details,
			},
		}, nil
	case error:
		return APIEnvelope{Version: EnvelopeVersion, Success: false, Error: t.Error()}, nil
	default:
		return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}
}
