package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BatchConfig struct {
	BatchSize   int
	Concurrency int
	MaxRetries  int
	BaseBackoff time.Duration
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// BatchEmbedder splits large inputs into provider sized batches, embeds them
// concurrently and stitches the results back in input order.
type BatchEmbedder struct {
	next IEmbedder
	cfg  BatchConfig
}

func NewBatchEmbedder(next IEmbedder, cfg BatchConfig) *BatchEmbedder {
	return &BatchEmbedder{next: next, cfg: cfg.withDefaults()}
}

func (b *BatchEmbedder) ModelName() string {
	return b.next.ModelName()
}

func (b *BatchEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for start := 0; start < len(texts); start += b.cfg.BatchSize {
		start := start
		end := start + b.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vectors, err := b.embedWithRetry(gctx, texts[start:end], taskType)
			if err != nil {
				return fmt.Errorf("embed batch [%d,%d): %w", start, end, err)
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := CheckVectors(out, len(texts)); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BatchEmbedder) embedWithRetry(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(b.cfg.BaseBackoff, attempt-1)
			logutil.GetLogger(ctx).Warn("retrying embedding batch",
				zap.Int("attempt", attempt), zap.Int("size", len(texts)),
				zap.Duration("wait", wait), zap.Error(lastErr))
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
		}
		vectors, err := b.next.Embed(ctx, texts, taskType)
		if err == nil {
			if err = CheckVectors(vectors, len(texts)); err == nil {
				return vectors, nil
			}
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", b.cfg.MaxRetries+1, lastErr)
}
