package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/pdfqa/internal/model"
	"github.com/xxxsen/pdfqa/internal/pkg/dbutil"
)

// ErrVectorCountMismatch means the stored vector count differs from the count
// the caller appended on top of, i.e. another writer got there first.
var ErrVectorCountMismatch = errors.New("stored vector count mismatch")

type DocumentRow struct {
	DocID   string `db:"doc_id"`
	Dim     int    `db:"dim"`
	Vectors int    `db:"vectors"`
}

type chunkRow struct {
	DocID      string          `db:"doc_id"`
	Position   int             `db:"position"`
	ChunkID    string          `db:"chunk_id"`
	PageNum    int             `db:"page_num"`
	StartToken int             `db:"start_token"`
	EndToken   int             `db:"end_token"`
	Text       string          `db:"text"`
	Embedding  pgvector.Vector `db:"embedding"`
}

type ChunkVectorRepo struct {
	db *sqlx.DB
}

func NewChunkVectorRepo(db *sql.DB) *ChunkVectorRepo {
	return &ChunkVectorRepo{db: sqlx.NewDb(db, "postgres")}
}

func (r *ChunkVectorRepo) GetDocument(ctx context.Context, docID string) (*DocumentRow, bool, error) {
	sqlStr, args, err := builder.BuildSelect("pdfqa_documents", map[string]interface{}{"doc_id": docID}, []string{"doc_id", "dim", "vectors"})
	if err != nil {
		return nil, false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var row DocumentRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &row, true, nil
}

// ListChunks returns metadata rows and vectors ordered by position.
func (r *ChunkVectorRepo) ListChunks(ctx context.Context, docID string) ([]model.Chunk, [][]float32, error) {
	where := map[string]interface{}{
		"doc_id":   docID,
		"_orderby": "position asc",
	}
	sqlStr, args, err := builder.BuildSelect("pdfqa_chunks", where, []string{
		"doc_id", "position", "chunk_id", "page_num", "start_token", "end_token", "text", "embedding",
	})
	if err != nil {
		return nil, nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var rows []chunkRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, nil, err
	}
	chunks := make([]model.Chunk, 0, len(rows))
	vectors := make([][]float32, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, model.Chunk{
			DocID:      row.DocID,
			ChunkID:    row.ChunkID,
			PageNum:    row.PageNum,
			StartToken: row.StartToken,
			EndToken:   row.EndToken,
			Text:       row.Text,
			Position:   row.Position,
		})
		vectors = append(vectors, row.Embedding.Slice())
	}
	return chunks, vectors, nil
}

// Append inserts rows at positions prevCount.. in one transaction. The
// document row is locked so concurrent writers from other processes cannot
// interleave positions.
func (r *ChunkVectorRepo) Append(ctx context.Context, docID string, dim, prevCount int, rows []model.Chunk, vectors [][]float32) error {
	if len(rows) != len(vectors) {
		return fmt.Errorf("rows and vectors length mismatch")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	var stored int
	err = tx.GetContext(ctx, &stored, `SELECT vectors FROM pdfqa_documents WHERE doc_id = $1 FOR UPDATE`, docID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if prevCount != 0 {
			return fmt.Errorf("%w: document %s is gone", ErrVectorCountMismatch, docID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pdfqa_documents (doc_id, dim, vectors, ctime, mtime) VALUES ($1, $2, 0, $3, $3)`,
			docID, dim, now); err != nil {
			if dbutil.IsConflict(err) {
				return fmt.Errorf("%w: document %s was created concurrently", ErrVectorCountMismatch, docID)
			}
			return err
		}
	case err != nil:
		return err
	case stored != prevCount:
		return fmt.Errorf("%w: document %s has %d vectors, expected %d", ErrVectorCountMismatch, docID, stored, prevCount)
	}

	if len(rows) > 0 {
		data := make([]map[string]interface{}, 0, len(rows))
		for i, row := range rows {
			data = append(data, map[string]interface{}{
				"doc_id":      docID,
				"position":    prevCount + i,
				"chunk_id":    row.ChunkID,
				"page_num":    row.PageNum,
				"start_token": row.StartToken,
				"end_token":   row.EndToken,
				"text":        row.Text,
				"embedding":   pgvector.NewVector(vectors[i]),
			})
		}
		sqlStr, args, err := builder.BuildInsert("pdfqa_chunks", data)
		if err != nil {
			return err
		}
		sqlStr, args = dbutil.Finalize(sqlStr, args)
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pdfqa_documents SET vectors = $1, mtime = $2 WHERE doc_id = $3`,
		prevCount+len(rows), now, docID); err != nil {
		return err
	}
	return tx.Commit()
}
