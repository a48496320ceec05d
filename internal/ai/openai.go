package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey          string            `json:"api_key"`
	BaseURL         string            `json:"base_url"`
	MaxOutputTokens int               `json:"max_output_tokens"`
	Temperature     *float32          `json:"temperature"`
	Headers         map[string]string `json:"headers"`
}

// openAIProvider speaks the openai-compatible chat/embeddings API. It also
// backs the openrouter provider, which only differs in base url and headers.
type openAIProvider struct {
	name            string
	apiKey          string
	baseURL         string
	maxOutputTokens int
	temperature     float32
	headers         map[string]string
	client          *http.Client
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIChatMsg `json:"messages"`
	Stream      bool            `json:"stream"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature"`
}

type openAIChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	var out openAIChatResponse
	err := p.post(ctx, "/chat/completions", openAIChatRequest{
		Model:       model,
		Messages:    []openAIChatMsg{{Role: "user", Content: prompt}},
		MaxTokens:   p.maxOutputTokens,
		Temperature: p.temperature,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: %s response has no choices", ErrMalformed, p.name)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	_ = taskType
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	var out openAIEmbedResponse
	if err := p.post(ctx, "/embeddings", openAIEmbedRequest{Model: model, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d inputs", ErrMalformed, p.name, len(out.Data), len(texts))
	}
	sort.SliceStable(out.Data, func(i, j int) bool {
		return out.Data[i].Index < out.Data[j].Index
	})
	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (p *openAIProvider) post(ctx context.Context, path string, body interface{}, dst interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s request failed: %s: %s", p.name, resp.Status, strings.TrimSpace(string(raw)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrMalformed, p.name, err)
	}
	return nil
}

func newOpenAICompatible(name, defaultBaseURL string, args interface{}) (*openAIProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	p := &openAIProvider{
		name:            name,
		apiKey:          strings.TrimSpace(cfg.APIKey),
		baseURL:         baseURL,
		maxOutputTokens: cfg.MaxOutputTokens,
		headers:         cfg.Headers,
		client:          http.DefaultClient,
	}
	if cfg.Temperature != nil {
		p.temperature = *cfg.Temperature
	}
	return p, nil
}

func createOpenAIFactory(args interface{}) (IProvider, error) {
	return newOpenAICompatible("openai", defaultOpenAIBaseURL, args)
}

func init() {
	Register("openai", createOpenAIFactory)
}
