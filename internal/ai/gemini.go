package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey          string   `json:"api_key"`
	MaxOutputTokens int      `json:"max_output_tokens"`
	Temperature     *float32 `json:"temperature"`
}

type geminiProvider struct {
	client          *genai.Client
	maxOutputTokens int32
	temperature     float32
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if p.client == nil {
		return "", ErrUnavailable
	}
	resp, err := p.client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			MaxOutputTokens: p.maxOutputTokens,
			Temperature:     genai.Ptr(p.temperature),
		},
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Embed sends the whole batch in one EmbedContent call, one content per text.
func (p *geminiProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	if p.client == nil {
		return nil, ErrUnavailable
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: taskType,
		}
	}
	resp, err := p.client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs", ErrMalformed, got, len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%w: gemini embedding %d is empty", ErrMalformed, i)
		}
		out[i] = emb.Values
	}
	return out, nil
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	provider := &geminiProvider{maxOutputTokens: 512}
	if cfg.MaxOutputTokens > 0 {
		provider.maxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if cfg.Temperature != nil {
		provider.temperature = *cfg.Temperature
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return provider, nil
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	provider.client = client
	return provider, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
