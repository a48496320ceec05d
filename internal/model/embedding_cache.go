package model

import "time"

// CachedEmbedding is one embedding_cache row, keyed by model, task type and
// the sha256 of the embedded text. CreatedAt is what cache pruning compares.
type CachedEmbedding struct {
	ModelName   string
	TaskType    string
	ContentHash string
	Vector      []float32
	CreatedAt   time.Time
}
