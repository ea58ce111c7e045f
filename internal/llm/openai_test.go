package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(content string) string {
	resp := map[string]any{
		"id": "chatcmpl-1",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
	body, _ := json.Marshal(resp)
	return string(body)
}

func newTestOpenAI(serverURL string) *OpenAIProvider {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: serverURL}, 0.0, 5*time.Second, 2)
	p.retryDelay = time.Millisecond
	return p
}

func TestOpenAI_ParseCitations(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(chatCompletion(`[{"title": "Attention Is All You Need", "year": 2017}]`)))
	}))
	defer server.Close()

	p := newTestOpenAI(server.URL)

	citations, err := p.ParseCitations(context.Background(), []string{"Vaswani, A. et al. Attention Is All You Need. 2017."})
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, "Attention Is All You Need", citations[0].Title)
	assert.Equal(t, 2017, citations[0].Year)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, defaultOpenAIModel, gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "Vaswani")
}

func TestOpenAI_ParseCitations_EmptyInput(t *testing.T) {
	p := newTestOpenAI("http://unused.invalid")

	citations, err := p.ParseCitations(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, citations)
}

func TestOpenAI_ParseCitations_UnparseableOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatCompletion("Sorry, I cannot help with that.")))
	}))
	defer server.Close()

	p := newTestOpenAI(server.URL)

	_, err := p.ParseCitations(context.Background(), []string{"some reference string"})
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "openai", parseErr.Provider)
}

func TestOpenAI_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(chatCompletion(`[{"title": "Recovered"}]`)))
	}))
	defer server.Close()

	p := newTestOpenAI(server.URL)

	citations, err := p.ParseCitations(context.Background(), []string{"ref"})
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	p := newTestOpenAI(server.URL)

	_, err := p.ParseCitations(context.Background(), []string{"ref"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid api key", apiErr.Message)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
}

func TestOpenAI_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newTestOpenAI(server.URL)

	_, err := p.ParseCitations(context.Background(), []string{"ref"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
	// maxRetries of 2 means three attempts.
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAI_Summarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatCompletion("A survey of transformer architectures.")))
	}))
	defer server.Close()

	p := newTestOpenAI(server.URL)

	summary, err := p.Summarize(context.Background(), "transformers", []string{"Paper A"})
	require.NoError(t, err)
	assert.Equal(t, "A survey of transformer architectures.", summary)

	// No titles, no API call.
	summary, err = p.Summarize(context.Background(), "transformers", nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestOpenAI_Metadata(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o"}, 0.0, 0, -1)

	assert.Equal(t, "openai", p.Provider())
	assert.Equal(t, "gpt-4o", p.Model())

	defaulted := NewOpenAIProvider(OpenAIConfig{}, 0.0, 0, 0)
	assert.Equal(t, defaultOpenAIModel, defaulted.Model())
}
