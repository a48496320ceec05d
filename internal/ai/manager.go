package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrEmptyResponse = errors.New("empty ai response")

type ManagerConfig struct {
	Timeout       int
	MaxInputChars int
}

// Manager bundles the configured generator and embedder for the services.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		generator: generator,
		embedder:  embedder,
		cfg:       cfg,
	}
}

func (m *Manager) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("%w: embedder not configured", ErrUnavailable)
	}
	return m.embedder.Embed(ctx, texts, taskType)
}

// Answer sends a fully assembled prompt to the generator.
func (m *Manager) Answer(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("%w: generator not configured", ErrUnavailable)
	}
	return m.generateText(ctx, m.generator, prompt)
}

func (m *Manager) generateText(ctx context.Context, gen IGenerator, prompt string) (string, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (m *Manager) MaxInputChars() int {
	return m.cfg.MaxInputChars
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}
