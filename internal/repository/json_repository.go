package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/posdit/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
)

// watchDebounce coalesces bursty fsnotify events into a single reload.
const watchDebounce = 200 * time.Millisecond

// CacheStore defines the in-memory side the watcher callback reconciles with.
type CacheStore interface {
	GetLastUpdate() int64
	IsDirty() bool
	Document() (WatchDocument, error)
	ReplaceDocument(doc WatchDocument) error
}

// JSONRepository handles disk persistence and watching of the watch file.
type JSONRepository struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
	mu        sync.Mutex
}

// NewJSONRepository creates a repository for the given JSON file path.
func NewJSONRepository(path string) (*JSONRepository, error) {
	if path == "" {
		return nil, errors.New("data file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}

	return &JSONRepository{path: path, dir: dir, base: base, validator: validator.New()}, nil
}

// Load reads the JSON file, parses and validates it.
func (r *JSONRepository) Load(ctx context.Context) (*WatchDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *JSONRepository) loadUnlocked() (*WatchDocument, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close()

	var doc WatchDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}

	doc.ApplyDefaults()

	if err := r.validator.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validate data file: %w", err)
	}

	return &doc, nil
}

// Save validates and writes the document atomically to disk.
func (r *JSONRepository) Save(ctx context.Context, doc *WatchDocument) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.validator.Struct(doc); err != nil {
		return fmt.Errorf("validate before save: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveUnlocked(doc)
}

func (r *JSONRepository) saveUnlocked(doc *WatchDocument) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	tmpFile, err := os.CreateTemp(r.dir, r.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), r.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	return nil
}

// StartWatcher reloads the store when the file is edited outside the process.
// It watches the parent directory (not the file) so atomic replace sequences
// (temp+rename) are still observed. Events are filtered by basename and
// debounced. Cancel ctx to stop the goroutine and close the watcher.
func (r *JSONRepository) StartWatcher(ctx context.Context, store CacheStore) error {
	if store == nil {
		return errors.New("store is required")
	}
	onChange := r.MakeWatcherCallback(ctx, store)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, onChange)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != r.base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod|fsnotify.Remove|fsnotify.Rename) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("repo").Errorf("watcher error: %v", err)
			}
		}
	}()

	return nil
}

// MakeWatcherCallback returns a callback that reloads the store from disk
// when the disk copy is newer and the store has no unsaved edits.
func (r *JSONRepository) MakeWatcherCallback(ctx context.Context, store CacheStore) func() {
	return func() {
		log := logger.WithComponent("repo")

		diskDoc, err := r.Load(ctx)
		if err != nil {
			log.Warnf("watch reload failed: %v", err)
			return
		}
		cacheLastUpdate := store.GetLastUpdate()
		diskLastUpdate := diskDoc.Metadata.LastUpdate

		if diskLastUpdate < cacheLastUpdate {
			log.Debugf("disk version is not newer than memory: disk=%d memory=%d", diskLastUpdate, cacheLastUpdate)
			return
		}

		if store.IsDirty() {
			// the in-memory content will be written to file soon anyway
			log.Warn("disk data is newer but registry has unsaved edits; skipping reload")
			return
		}

		if diskLastUpdate == cacheLastUpdate {
			current, err := store.Document()
			if err != nil {
				log.Errorf("reload error: failed to read registry: %v", err)
				return
			}
			if AreWatchDocumentsEqual(&current, diskDoc) {
				return
			}
		}

		if err := store.ReplaceDocument(*diskDoc); err != nil {
			log.Errorf("reload error: %v", err)
			return
		}
		log.Infof("watch list reloaded from disk (%d specs)", len(diskDoc.Specs))
	}
}
