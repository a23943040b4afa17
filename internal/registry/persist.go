package registry

import (
	"context"
	"time"

	"github.com/bassista/posdit/internal/logger"
	"github.com/bassista/posdit/internal/repository"
)

// PersistableStore is the registry API needed by the persistence scheduler.
type PersistableStore interface {
	IsDirty() bool
	Document() (repository.WatchDocument, error)
	MarkPersisted(lastUpdate int64)
}

// StartPersistenceScheduler runs a goroutine that periodically flushes a dirty
// registry to disk. On ctx.Done, it performs a final flush before returning.
// Returns a channel that is closed when the scheduler has completed shutdown.
func StartPersistenceScheduler(
	ctx context.Context,
	store PersistableStore,
	repo repository.Saver,
	interval time.Duration,
) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("persist").Debugf("starting persistence scheduler with interval: %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// final flush must complete even though ctx is cancelled
				flush(context.Background(), store, repo)
				logger.WithComponent("persist").Info("persistence scheduler stopped after final flush")
				return
			case <-ticker.C:
				flush(ctx, store, repo)
			}
		}
	}()
	return done
}

func flush(ctx context.Context, store PersistableStore, repo repository.Saver) {
	if !store.IsDirty() {
		logger.WithComponent("persist").Tracef("registry is clean, skipping flush")
		return
	}
	if err := ctx.Err(); err != nil {
		logger.WithComponent("persist").Debugf("flush cancelled: %v", err)
		return
	}

	doc, err := store.Document()
	if err != nil {
		logger.WithComponent("persist").Errorf("persist error: failed to read registry: %v", err)
		return
	}

	if err := repo.Save(ctx, &doc); err != nil {
		logger.WithComponent("persist").Errorf("persist error: failed to save: %v", err)
		return
	}

	store.MarkPersisted(doc.Metadata.LastUpdate)
	logger.WithComponent("persist").Info("watch list persisted to disk")
}
