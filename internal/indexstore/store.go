package indexstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/vectorindex"
)

// Store serializes writers per document id and caches loaded snapshots.
// Different document ids never contend.
type Store struct {
	persister Persister
	locks     *keyedLocks
	cache     *expirable.LRU[string, *Document]
}

func NewStore(p Persister, cacheSize int, cacheTTL time.Duration) *Store {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	return &Store{
		persister: p,
		locks:     newKeyedLocks(),
		cache:     expirable.NewLRU[string, *Document](cacheSize, nil, cacheTTL),
	}
}

// Load returns the current snapshot for docID. It never returns a partially
// usable index: a missing or unreadable half yields appErr.ErrStorage.
func (s *Store) Load(ctx context.Context, docID string) (*Document, error) {
	unlock := s.locks.RLock(docID)
	defer unlock()
	return s.loadLocked(ctx, docID)
}

func (s *Store) loadLocked(ctx context.Context, docID string) (*Document, error) {
	if doc, ok := s.cache.Get(docID); ok {
		return doc, nil
	}
	doc, err := s.persister.Load(ctx, docID)
	if err != nil {
		return nil, err
	}
	if err := checkAligned(doc); err != nil {
		return nil, err
	}
	s.cache.Add(docID, doc)
	return doc, nil
}

// Create persists an empty index of the given dimensionality.
func (s *Store) Create(ctx context.Context, docID string, dim int) (*Document, error) {
	idx, err := vectorindex.NewFlat(dim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	unlock := s.locks.Lock(docID)
	defer unlock()

	_, err = s.loadLocked(ctx, docID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: document %s already has an index", appErr.ErrConflict, docID)
	case !appErr.IsNotFound(err):
		return nil, err
	}
	doc := &Document{ID: docID, Index: idx}
	if err := s.persist(ctx, nil, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Append adds vectors and their metadata rows to docID, creating the index on
// first use with the dimensionality of the first vector. Both halves are
// persisted before Append returns; on any error nothing is committed.
func (s *Store) Append(ctx context.Context, docID string, vectors [][]float32, rows []model.Chunk) (*Document, error) {
	if len(vectors) != len(rows) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata rows", appErr.ErrInvalid, len(vectors), len(rows))
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: nothing to append", appErr.ErrInvalid)
	}
	for i, row := range rows {
		if row.DocID != "" && row.DocID != docID {
			return nil, fmt.Errorf("%w: row %d belongs to document %s", appErr.ErrInvalid, i, row.DocID)
		}
	}

	unlock := s.locks.Lock(docID)
	defer unlock()

	prev, err := s.loadLocked(ctx, docID)
	if err != nil && !appErr.IsNotFound(err) {
		return nil, err
	}

	var idx *vectorindex.Flat
	var base []model.Chunk
	if prev == nil {
		if idx, err = vectorindex.NewFlat(len(vectors[0])); err != nil {
			return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
		}
	} else {
		idx = prev.Index.Clone()
		base = prev.Rows
	}
	if err := idx.Add(vectors); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	merged := make([]model.Chunk, len(base), len(base)+len(rows))
	copy(merged, base)
	for i, row := range rows {
		row.DocID = docID
		row.Position = len(base) + i
		merged = append(merged, row)
	}
	next := &Document{ID: docID, Index: idx, Rows: merged}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, prev, next); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document index appended",
		zap.String("doc_id", docID),
		zap.Int("added", len(rows)),
		zap.Int("total", next.Len()),
	)
	return next, nil
}

// persist runs detached from ctx cancellation so a canceled caller cannot stop
// a write between the index and metadata halves.
func (s *Store) persist(ctx context.Context, prev, next *Document) error {
	if err := s.persister.Save(context.WithoutCancel(ctx), prev, next); err != nil {
		s.cache.Remove(next.ID)
		if errors.Is(err, appErr.ErrStorage) || appErr.IsConflict(err) {
			return err
		}
		return fmt.Errorf("%w: persist document %s: %v", appErr.ErrStorage, next.ID, err)
	}
	s.cache.Add(next.ID, next)
	return nil
}
