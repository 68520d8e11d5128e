package openai

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscanapp/bookscan-server/internal/predictor"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Options{APIKey: "sk-test", BaseURL: server.URL + "/v1", Model: "gpt-test", HTTPClient: server.Client()}, slog.New(slog.DiscardHandler))
	t.Cleanup(client.Close)
	return client
}

func TestNew_Defaults(t *testing.T) {
	client := New(Options{BaseURL: "   "}, slog.New(slog.DiscardHandler))
	defer client.Close()

	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, defaultModel, client.model)
}

// wireRequest is the part of a chat completions body the tests inspect.
type wireRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func TestClient_Generate(t *testing.T) {
	var got wireRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"{\"rating\":3.9}"},"finish_reason":"stop"}]}`))
	})

	out, err := client.Generate(context.Background(), "score this")
	require.NoError(t, err)
	assert.Equal(t, `{"rating":3.9}`, out)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "score this", got.Messages[1].Content)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestClient_GenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   string
		wantErr    error
	}{
		{name: "rate limited", statusCode: http.StatusTooManyRequests, response: `{"error":{"message":"slow down"}}`, wantErr: predictor.ErrRateLimited},
		{name: "unauthorized", statusCode: http.StatusUnauthorized, response: `{"error":{"message":"bad key"}}`, wantErr: predictor.ErrUnauthorized},
		{name: "bad request", statusCode: http.StatusBadRequest, response: `{"error":{"message":"bad model"}}`, wantErr: predictor.ErrBadRequest},
		{name: "server error", statusCode: http.StatusBadGateway, response: `{"error":{"message":"upstream"}}`, wantErr: predictor.ErrServer},
		{name: "no choices", statusCode: http.StatusOK, response: `{"choices":[]}`, wantErr: predictor.ErrEmptyResponse},
		{name: "blank content", statusCode: http.StatusOK, response: `{"choices":[{"message":{"content":"  "}}]}`, wantErr: predictor.ErrEmptyResponse},
		{name: "refusal", statusCode: http.StatusOK, response: `{"choices":[{"message":{"content":"","refusal":"cannot help"}}]}`, wantErr: predictor.ErrBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			})

			_, err := client.Generate(context.Background(), "prompt")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var pe *predictor.Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.statusCode, pe.Status)
		})
	}
}
