package indexstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/filestore"
	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/vectorindex"
)

// BlobPersister keeps each document as two blobs in a file store:
// "<doc_id>.index" (binary vectors) and "<doc_id>_meta.json" (rows).
type BlobPersister struct {
	files filestore.Store
}

func NewBlobPersister(files filestore.Store) *BlobPersister {
	return &BlobPersister{files: files}
}

func indexKey(docID string) string {
	return docID + ".index"
}

func metaKey(docID string) string {
	return docID + "_meta.json"
}

func (p *BlobPersister) Load(ctx context.Context, docID string) (*Document, error) {
	idxData, idxErr := filestore.ReadAll(ctx, p.files, indexKey(docID))
	metaData, metaErr := filestore.ReadAll(ctx, p.files, metaKey(docID))
	idxMissing := errors.Is(idxErr, filestore.ErrNotExist)
	metaMissing := errors.Is(metaErr, filestore.ErrNotExist)
	switch {
	case idxMissing && metaMissing:
		return nil, fmt.Errorf("%w: document %s", appErr.ErrNotFound, docID)
	case idxMissing || metaMissing:
		return nil, fmt.Errorf("%w: document %s is missing its %s", appErr.ErrStorage, docID, missingHalf(idxMissing))
	case idxErr != nil:
		return nil, fmt.Errorf("%w: read index of %s: %v", appErr.ErrStorage, docID, idxErr)
	case metaErr != nil:
		return nil, fmt.Errorf("%w: read metadata of %s: %v", appErr.ErrStorage, docID, metaErr)
	}

	idx := &vectorindex.Flat{}
	if err := idx.UnmarshalBinary(idxData); err != nil {
		return nil, fmt.Errorf("%w: decode index of %s: %v", appErr.ErrStorage, docID, err)
	}
	var rows []model.Chunk
	if err := json.Unmarshal(metaData, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode metadata of %s: %v", appErr.ErrStorage, docID, err)
	}
	return &Document{ID: docID, Index: idx, Rows: rows}, nil
}

func missingHalf(idxMissing bool) string {
	if idxMissing {
		return "index"
	}
	return "metadata"
}

// Save writes metadata first, then the index. If the index write fails the
// previous metadata blob is restored, or removed for a new document.
func (p *BlobPersister) Save(ctx context.Context, prev, next *Document) error {
	idxData, err := next.Index.MarshalBinary()
	if err != nil {
		return err
	}
	rows := next.Rows
	if rows == nil {
		rows = []model.Chunk{}
	}
	metaData, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if err := filestore.SaveBytes(ctx, p.files, metaKey(next.ID), metaData); err != nil {
		return fmt.Errorf("%w: write metadata of %s: %v", appErr.ErrStorage, next.ID, err)
	}
	if err := filestore.SaveBytes(ctx, p.files, indexKey(next.ID), idxData); err != nil {
		p.rollbackMeta(ctx, prev, next.ID)
		return fmt.Errorf("%w: write index of %s: %v", appErr.ErrStorage, next.ID, err)
	}
	return nil
}

func (p *BlobPersister) rollbackMeta(ctx context.Context, prev *Document, docID string) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))
	if prev == nil {
		if err := p.files.Delete(ctx, metaKey(docID)); err != nil && !errors.Is(err, filestore.ErrNotExist) {
			logger.Error("rollback metadata failed", zap.Error(err))
		}
		return
	}
	rows := prev.Rows
	if rows == nil {
		rows = []model.Chunk{}
	}
	data, err := json.Marshal(rows)
	if err == nil {
		err = filestore.SaveBytes(ctx, p.files, metaKey(docID), data)
	}
	if err != nil {
		logger.Error("rollback metadata failed", zap.Error(err))
	}
}
