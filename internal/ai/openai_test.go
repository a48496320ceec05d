package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedSortsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"a", "b"}, req.Input)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	vectors, err := NewEmbedder(p, "m").Embed(context.Background(), []string{"a", "b"}, TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestOpenAIEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), "m", []string{"a", "b"}, TaskRetrievalDocument)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestOpenRouterGenerateSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "https://example.com", r.Header.Get("HTTP-Referer"))
		require.Equal(t, "pdfqa", r.Header.Get("X-Title"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  hello  "}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openrouter", map[string]interface{}{
		"api_key": "k", "base_url": srv.URL,
		"http_referer": "https://example.com", "x_title": "pdfqa",
	})
	require.NoError(t, err)
	out, err := p.Generate(context.Background(), "m", "hi")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestOpenAIMissingKeyIsUnavailable(t *testing.T) {
	p, err := NewProvider("openai", map[string]interface{}{})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "m", "hi")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestManagerAnswerRejectsEmpty(t *testing.T) {
	m := NewManager(generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "   ", nil
	}), nil, ManagerConfig{Timeout: 1})
	_, err := m.Answer(context.Background(), "p")
	require.ErrorIs(t, err, ErrEmptyResponse)

	_, err = m.Embed(context.Background(), []string{"x"}, TaskRetrievalQuery)
	require.ErrorIs(t, err, ErrUnavailable)
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
