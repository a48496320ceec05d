package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/ai"
	"github.com/xxxsen/pdfqa/internal/indexstore"
	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/vectorindex"
)

// Cosine similarity of normalized vectors never drops below -1; anything
// under this floor is an invalid-entry marker, not a weak match.
const scoreFloor = -2

const defaultTopK = 5

type Embedder interface {
	Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

type IndexStore interface {
	Load(ctx context.Context, docID string) (*indexstore.Document, error)
	Append(ctx context.Context, docID string, vectors [][]float32, rows []model.Chunk) (*indexstore.Document, error)
}

type Retriever struct {
	store    IndexStore
	embedder Embedder
	topK     int
}

func NewRetriever(store IndexStore, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{store: store, embedder: embedder, topK: topK}
}

// Retrieve returns the best matching chunks of docID for question, best first.
func (r *Retriever) Retrieve(ctx context.Context, docID string, question string) ([]model.Hit, error) {
	doc, err := loadDocument(ctx, r.store, docID)
	if err != nil {
		return nil, err
	}
	vectors, err := r.embedder.Embed(ctx, []string{question}, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, upstream("embed question", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d question embeddings", appErr.ErrUpstream, len(vectors))
	}
	n := doc.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: document %s has no vectors", appErr.ErrEmptyIndex, docID)
	}
	k := r.topK
	if k > n {
		k = n
	}
	results, err := doc.Search(vectors[0], k)
	if err != nil {
		// a question vector of another width means the embedding model changed
		return nil, fmt.Errorf("%w: search document %s: %v", appErr.ErrUpstream, docID, err)
	}
	return toHits(doc, results), nil
}

// toHits drops padded slots, invalid-entry markers and positions without a
// metadata row. Order is kept.
func toHits(doc *indexstore.Document, results []vectorindex.Result) []model.Hit {
	hits := make([]model.Hit, 0, len(results))
	for _, res := range results {
		if res.Position < 0 || math.IsNaN(float64(res.Score)) || res.Score < scoreFloor {
			continue
		}
		row, ok := doc.Row(res.Position)
		if !ok {
			continue
		}
		hits = append(hits, model.Hit{
			PageNum: row.PageNum,
			ChunkID: row.ChunkID,
			Text:    row.Text,
			Score:   res.Score,
		})
	}
	return hits
}

// loadDocument surfaces unreadable persisted state as not-found after logging
// it, so callers see a single "no usable index" condition. Ids that are not
// uuids never reach the store.
func loadDocument(ctx context.Context, store IndexStore, docID string) (*indexstore.Document, error) {
	if _, err := uuid.Parse(docID); err != nil {
		return nil, fmt.Errorf("%w: document %q", appErr.ErrNotFound, docID)
	}
	doc, err := store.Load(ctx, docID)
	if err == nil {
		return doc, nil
	}
	if appErr.IsStorage(err) {
		logutil.GetLogger(ctx).Error("document index unreadable", zap.String("doc_id", docID), zap.Error(err))
		return nil, fmt.Errorf("%w: document %s", appErr.ErrNotFound, docID)
	}
	return nil, err
}

func upstream(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", appErr.ErrUpstream, op, err)
}
