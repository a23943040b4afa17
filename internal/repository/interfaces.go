package repository

import "context"

// Saver persists a WatchDocument.
// Small interface used by background jobs like the persistence scheduler.
type Saver interface {
	Save(ctx context.Context, doc *WatchDocument) error
}

// Repository abstracts persistence and watching of the watch file.
// JSONRepository implements this interface.
type Repository interface {
	Saver
	Load(ctx context.Context) (*WatchDocument, error)
	StartWatcher(ctx context.Context, store CacheStore) error
}
