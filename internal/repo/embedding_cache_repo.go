package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/pdfqa/internal/model"
)

type EmbeddingCacheRepo struct {
	db *sqlx.DB
}

func NewEmbeddingCacheRepo(db *sql.DB) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{db: sqlx.NewDb(db, "postgres")}
}

// GetMany returns cached vectors keyed by content hash; misses are absent.
func (r *EmbeddingCacheRepo) GetMany(ctx context.Context, modelName, taskType string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT content_hash, embedding
		FROM embedding_cache
		WHERE model_name = ? AND task_type = ? AND content_hash IN (?)
	`, modelName, taskType, hashes)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var hash string
		var embedding pgvector.Vector
		if err := rows.Scan(&hash, &embedding); err != nil {
			return nil, err
		}
		out[hash] = embedding.Slice()
	}
	return out, rows.Err()
}

func (r *EmbeddingCacheRepo) Save(ctx context.Context, item *model.CachedEmbedding) error {
	const query = `
		INSERT INTO embedding_cache (model_name, task_type, content_hash, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (model_name, task_type, content_hash) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ModelName,
		item.TaskType,
		item.ContentHash,
		pgvector.NewVector(item.Vector),
		item.CreatedAt.Unix(),
	)
	return err
}

func (r *EmbeddingCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM embedding_cache WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
