package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnthropic(serverURL string) *AnthropicProvider {
	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:  "sk-ant-test",
		Model:   "claude-3-sonnet-20240229",
		BaseURL: serverURL,
	}, 0.0, 5*time.Second, 2)
	p.retryDelay = time.Millisecond
	return p
}

func TestAnthropic_ParseCitations(t *testing.T) {
	var gotKey, gotVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		_, _ = w.Write([]byte(`{
			"id": "msg-1",
			"content": [{"type": "text", "text": "[{\"title\": \"BERT\", \"year\": 2019}]"}]
		}`))
	}))
	defer server.Close()

	p := newTestAnthropic(server.URL)

	citations, err := p.ParseCitations(context.Background(), []string{"Devlin, J. BERT. 2019."})
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, "BERT", citations[0].Title)
	assert.Equal(t, 2019, citations[0].Year)

	assert.Equal(t, "sk-ant-test", gotKey)
	assert.NotEmpty(t, gotVersion)
}

func TestAnthropic_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "[{\"title\": \"Recovered\"}]"}]}`))
	}))
	defer server.Close()

	p := newTestAnthropic(server.URL)

	citations, err := p.ParseCitations(context.Background(), []string{"ref"})
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropic_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "bad model"}}`))
	}))
	defer server.Close()

	p := newTestAnthropic(server.URL)

	_, err := p.ParseCitations(context.Background(), []string{"ref"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "anthropic", apiErr.Provider)
	assert.Equal(t, "bad model", apiErr.Message)
}

func TestAnthropic_Summarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "Mostly NLP papers."}]}`))
	}))
	defer server.Close()

	p := newTestAnthropic(server.URL)

	summary, err := p.Summarize(context.Background(), "nlp", []string{"Paper A"})
	require.NoError(t, err)
	assert.Equal(t, "Mostly NLP papers.", summary)
}

func TestAnthropic_Metadata(t *testing.T) {
	p := newTestAnthropic("http://unused.invalid")

	assert.Equal(t, "anthropic", p.Provider())
	assert.Equal(t, "claude-3-sonnet-20240229", p.Model())
}

func TestNewCitationParser(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		parser, err := NewCitationParser(FactoryConfig{Provider: "openai"})
		require.NoError(t, err)
		assert.Equal(t, "openai", parser.Provider())
	})

	t.Run("anthropic", func(t *testing.T) {
		parser, err := NewCitationParser(FactoryConfig{Provider: "anthropic"})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", parser.Provider())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewCitationParser(FactoryConfig{Provider: "bedrock"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM provider")
	})
}

func TestNewSummarizer(t *testing.T) {
	summarizer, err := NewSummarizer(FactoryConfig{Provider: "openai"})
	require.NoError(t, err)
	assert.NotNil(t, summarizer)

	_, err = NewSummarizer(FactoryConfig{Provider: ""})
	require.Error(t, err)
}
