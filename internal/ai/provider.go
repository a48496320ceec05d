package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

var (
	ErrUnavailable = errors.New("ai provider unavailable")
	ErrUnsupported = errors.New("operation not supported by ai provider")
	// ErrMalformed marks a response that does not match the request, such as
	// fewer vectors than inputs.
	ErrMalformed = errors.New("malformed ai response")
)

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
	Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// IEmbedder turns a batch of texts into one vector per text, in input order.
type IEmbedder interface {
	Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt)
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.provider.Embed(ctx, e.model, texts, taskType)
	if err != nil {
		return nil, err
	}
	if err := CheckVectors(vectors, len(texts)); err != nil {
		return nil, fmt.Errorf("%s: %w", e.provider.Name(), err)
	}
	return vectors, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

// CheckVectors verifies one non-empty, finite vector per input, all of equal
// length.
func CheckVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d inputs", ErrMalformed, len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrMalformed, i)
		}
		if len(v) != len(vectors[0]) {
			return fmt.Errorf("%w: vector %d has %d values, vector 0 has %d", ErrMalformed, i, len(v), len(vectors[0]))
		}
		for j, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("%w: vector %d holds non-finite value at %d", ErrMalformed, i, j)
			}
		}
	}
	return nil
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
