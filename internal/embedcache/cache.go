package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/xxxsen/pdfqa/internal/ai"
)

func buildCacheKey(modelName, taskType, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash, modelName
}

// fillMisses embeds the texts whose slot in out is nil with a single call to
// next and writes the results into those slots. It returns the indexes it
// filled.
func fillMisses(ctx context.Context, next ai.IEmbedder, texts []string, taskType string, out [][]float32) ([]int, error) {
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missIdx) == 0 {
		return nil, nil
	}
	vectors, err := next.Embed(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	if err := ai.CheckVectors(vectors, len(missTexts)); err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
	}
	return missIdx, nil
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
