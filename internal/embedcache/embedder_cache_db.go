package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/ai"
	"github.com/xxxsen/pdfqa/internal/model"
)

// Store is the persistent side of the db cache, implemented by
// repo.EmbeddingCacheRepo.
type Store interface {
	GetMany(ctx context.Context, modelName, taskType string, hashes []string) (map[string][]float32, error)
	Save(ctx context.Context, item *model.CachedEmbedding) error
}

func WrapDBCacheToEmbedder(e ai.IEmbedder, store Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store Store
}

func (d *dbEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var modelName string
	hashes := make([]string, len(texts))
	for i, text := range texts {
		_, hashes[i], modelName = buildCacheKey(d.next.ModelName(), taskType, text)
	}
	out := make([][]float32, len(texts))
	cached, err := d.store.GetMany(ctx, modelName, taskType, hashes)
	if err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache lookup failed", zap.Error(err))
	} else if len(cached) > 0 {
		for i, h := range hashes {
			if v, ok := cached[h]; ok && len(v) > 0 {
				out[i] = v
			}
		}
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)",
			zap.String("task_type", taskType), zap.Int("hits", len(cached)), zap.Int("total", len(texts)))
	}
	filled, err := fillMisses(ctx, d.next, texts, taskType, out)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, i := range filled {
		if err := d.store.Save(ctx, &model.CachedEmbedding{
			ModelName:   modelName,
			TaskType:    taskType,
			ContentHash: hashes[i],
			Vector:      out[i],
			CreatedAt:   now,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
			break
		}
	}
	return out, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
