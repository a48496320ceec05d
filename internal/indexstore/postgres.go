package indexstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/repo"
	"github.com/xxxsen/pdfqa/internal/vectorindex"
)

// PostgresPersister stores rows and their (normalized) vectors in postgres,
// one row per position. Appends only insert the new tail.
type PostgresPersister struct {
	repo *repo.ChunkVectorRepo
}

func NewPostgresPersister(r *repo.ChunkVectorRepo) *PostgresPersister {
	return &PostgresPersister{repo: r}
}

func (p *PostgresPersister) Load(ctx context.Context, docID string) (*Document, error) {
	doc, ok, err := p.repo.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("%w: read document %s: %v", appErr.ErrStorage, docID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: document %s", appErr.ErrNotFound, docID)
	}
	rows, vectors, err := p.repo.ListChunks(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("%w: read chunks of %s: %v", appErr.ErrStorage, docID, err)
	}
	if len(rows) != doc.Vectors {
		return nil, fmt.Errorf("%w: document %s records %d vectors but has %d rows",
			appErr.ErrStorage, docID, doc.Vectors, len(rows))
	}
	idx, err := vectorindex.NewFlat(doc.Dim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStorage, err)
	}
	if err := idx.Add(vectors); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStorage, err)
	}
	return &Document{ID: docID, Index: idx, Rows: rows}, nil
}

func (p *PostgresPersister) Save(ctx context.Context, prev, next *Document) error {
	from := 0
	if prev != nil {
		from = prev.Len()
	}
	rows := next.Rows[from:]
	vectors := make([][]float32, 0, len(rows))
	for pos := from; pos < next.Len(); pos++ {
		vectors = append(vectors, next.Index.Vector(pos))
	}
	err := p.repo.Append(ctx, next.ID, next.Dim(), from, append([]model.Chunk(nil), rows...), vectors)
	if errors.Is(err, repo.ErrVectorCountMismatch) {
		return fmt.Errorf("%w: %v", appErr.ErrConflict, err)
	}
	return err
}
