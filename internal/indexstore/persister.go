package indexstore

import "context"

// Persister is the durable half of the store.
//
// Load returns appErr.ErrNotFound when neither half of the pair exists and
// appErr.ErrStorage when the pair is partial or unreadable.
//
// Save persists next, which extends prev (nil for a new document). On error the
// previously persisted state must still load.
type Persister interface {
	Load(ctx context.Context, docID string) (*Document, error)
	Save(ctx context.Context, prev, next *Document) error
}
