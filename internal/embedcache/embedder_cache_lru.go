package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/ai"
)

func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	modelName := l.next.ModelName()
	keys := make([]string, len(texts))
	out := make([][]float32, len(texts))
	hits := 0
	for i, text := range texts {
		keys[i], _, _ = buildCacheKey(modelName, taskType, text)
		if cached, ok := l.cache.Get(keys[i]); ok {
			out[i] = cloneEmbedding(cached)
			hits++
		}
	}
	if hits > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)",
			zap.String("task_type", taskType), zap.Int("hits", hits), zap.Int("total", len(texts)))
	}
	filled, err := fillMisses(ctx, l.next, texts, taskType, out)
	if err != nil {
		return nil, err
	}
	for _, i := range filled {
		l.cache.Add(keys[i], cloneEmbedding(out[i]))
	}
	return out, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}
