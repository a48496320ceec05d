// Package indexstore owns one similarity index and one metadata table per
// document id. Row i of the metadata table always describes vector i.
package indexstore

import (
	"fmt"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/vectorindex"
)

// Document is an immutable snapshot of a document index. Appends produce a new
// Document, so a reader holding one never sees a torn state.
type Document struct {
	ID    string
	Index *vectorindex.Flat
	Rows  []model.Chunk
}

func (d *Document) Len() int {
	return d.Index.Len()
}

func (d *Document) Dim() int {
	return d.Index.Dim()
}

// Search normalizes query and returns up to topK (score, position) pairs.
func (d *Document) Search(query []float32, topK int) ([]vectorindex.Result, error) {
	res, err := d.Index.Search(query, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	return res, nil
}

func (d *Document) Row(pos int) (model.Chunk, bool) {
	if pos < 0 || pos >= len(d.Rows) {
		return model.Chunk{}, false
	}
	return d.Rows[pos], true
}

// checkAligned verifies the vector/metadata pairing of a loaded document.
func checkAligned(d *Document) error {
	if d.Index == nil {
		return fmt.Errorf("%w: document %s has no index", appErr.ErrStorage, d.ID)
	}
	if len(d.Rows) != d.Index.Len() {
		return fmt.Errorf("%w: document %s has %d vectors but %d metadata rows",
			appErr.ErrStorage, d.ID, d.Index.Len(), len(d.Rows))
	}
	for i, row := range d.Rows {
		if row.Position != i {
			return fmt.Errorf("%w: document %s metadata row %d claims position %d",
				appErr.ErrStorage, d.ID, i, row.Position)
		}
	}
	return nil
}
