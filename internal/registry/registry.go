// Package registry holds the live watch list shared between the poll loop
// and the host application.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bassista/posdit/internal/domain"
	"github.com/bassista/posdit/internal/repository"
	"github.com/go-playground/validator/v10"
)

var (
	ErrEmptyKeyword   = errors.New("keyword is required")
	ErrEmptySubreddit = errors.New("subreddit is required")
	ErrBadSubreddit   = errors.New("subreddit may only contain letters, digits and underscores")
	ErrInvalidListing = errors.New("invalid listing")
	ErrSpecNotFound   = errors.New("watch spec not found")
)

// subredditName is Reddit's own naming rule. It also keeps '|' out of
// WatchSpec.Key, so keys stay unique per triple.
var subredditName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Diff lists the specs added and removed by a replacement.
type Diff struct {
	Inserted []domain.WatchSpec `json:"inserted"`
	Removed  []domain.WatchSpec `json:"removed"`
}

// Empty reports whether the replacement changed no spec.
func (d Diff) Empty() bool {
	return len(d.Inserted) == 0 && len(d.Removed) == 0
}

// Registry keeps the destination address and the ordered, de-duplicated
// watch specs. Writers swap the whole list; readers get independent copies.
type Registry struct {
	mu          sync.RWMutex
	destination string
	specs       []domain.WatchSpec
	dirty       bool  // true if changed since last persist
	lastUpdate  int64 // metadata.lastUpdate of the current content

	onChange func()

	validator *validator.Validate
	now       func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{validator: validator.New(), now: time.Now}
}

// NewFromDocument creates a registry seeded from a persisted document.
func NewFromDocument(doc repository.WatchDocument) (*Registry, error) {
	r := New()
	if err := r.ReplaceDocument(doc); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the destination and a copy of the specs in iteration order.
func (r *Registry) Snapshot() (string, []domain.WatchSpec) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]domain.WatchSpec, len(r.specs))
	copy(specs, r.specs)
	return r.destination, specs
}

// Len returns the number of specs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// Replace swaps destination and specs atomically and marks the registry for
// persistence. Duplicate triples collapse to their first occurrence. On a
// validation error nothing changes.
func (r *Registry) Replace(destination string, specs []domain.WatchSpec) (Diff, error) {
	normalized, err := r.normalize(specs)
	if err != nil {
		return Diff{}, err
	}
	destination = strings.TrimSpace(destination)

	r.mu.Lock()
	r.destination = destination
	diff := r.swapLocked(normalized)
	r.mu.Unlock()

	r.changed()
	return diff, nil
}

// Add appends one spec, keeping the destination. Adding a triple that is
// already registered is a no-op and returns an empty diff.
func (r *Registry) Add(spec domain.WatchSpec) (Diff, error) {
	if err := r.Validate(spec); err != nil {
		return Diff{}, err
	}

	r.mu.Lock()
	for _, s := range r.specs {
		if s == spec {
			r.mu.Unlock()
			return Diff{Inserted: []domain.WatchSpec{}, Removed: []domain.WatchSpec{}}, nil
		}
	}
	next := make([]domain.WatchSpec, len(r.specs), len(r.specs)+1)
	copy(next, r.specs)
	next = append(next, spec)
	diff := r.swapLocked(next)
	r.mu.Unlock()

	r.changed()
	return diff, nil
}

// Remove drops the spec whose Key matches.
func (r *Registry) Remove(key string) (Diff, error) {
	r.mu.Lock()
	next := make([]domain.WatchSpec, 0, len(r.specs))
	for _, s := range r.specs {
		if s.Key() != key {
			next = append(next, s)
		}
	}
	if len(next) == len(r.specs) {
		r.mu.Unlock()
		return Diff{}, fmt.Errorf("%w: %s", ErrSpecNotFound, key)
	}
	diff := r.swapLocked(next)
	r.mu.Unlock()

	r.changed()
	return diff, nil
}

// SetDestination changes only the notification address.
func (r *Registry) SetDestination(destination string) {
	r.mu.Lock()
	r.destination = strings.TrimSpace(destination)
	r.lastUpdate = r.now().UnixMilli()
	r.dirty = true
	r.mu.Unlock()

	r.changed()
}

// OnChange registers fn to run after every successful change to the content,
// including reloads from disk. fn runs outside the lock.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Registry) changed() {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (r *Registry) swapLocked(next []domain.WatchSpec) Diff {
	diff := diffSpecs(r.specs, next)
	r.specs = next
	r.lastUpdate = r.now().UnixMilli()
	r.dirty = true
	return diff
}

// Validate checks a single spec against the registration rules.
func (r *Registry) Validate(spec domain.WatchSpec) error {
	if strings.TrimSpace(spec.Keyword) == "" {
		return ErrEmptyKeyword
	}
	if strings.TrimSpace(spec.Subreddit) == "" {
		return ErrEmptySubreddit
	}
	if !subredditName.MatchString(spec.Subreddit) {
		return fmt.Errorf("%w: %q", ErrBadSubreddit, spec.Subreddit)
	}
	if err := r.validator.Struct(spec); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidListing, spec.Listing)
	}
	return nil
}

func (r *Registry) normalize(specs []domain.WatchSpec) ([]domain.WatchSpec, error) {
	out := make([]domain.WatchSpec, 0, len(specs))
	seen := make(map[domain.WatchSpec]struct{}, len(specs))
	for i, s := range specs {
		if err := r.Validate(s); err != nil {
			return nil, fmt.Errorf("spec %d: %w", i, err)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

func diffSpecs(before, after []domain.WatchSpec) Diff {
	old := make(map[domain.WatchSpec]struct{}, len(before))
	for _, s := range before {
		old[s] = struct{}{}
	}
	cur := make(map[domain.WatchSpec]struct{}, len(after))
	for _, s := range after {
		cur[s] = struct{}{}
	}

	diff := Diff{Inserted: []domain.WatchSpec{}, Removed: []domain.WatchSpec{}}
	for _, s := range after {
		if _, ok := old[s]; !ok {
			diff.Inserted = append(diff.Inserted, s)
		}
	}
	for _, s := range before {
		if _, ok := cur[s]; !ok {
			diff.Removed = append(diff.Removed, s)
		}
	}
	return diff
}

// Document renders the current content for persistence.
func (r *Registry) Document() (repository.WatchDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return repository.NewWatchDocument(r.destination, r.specs, r.lastUpdate), nil
}

// ReplaceDocument loads content that came from disk. The registry is clean
// afterwards since memory now matches the file.
func (r *Registry) ReplaceDocument(doc repository.WatchDocument) error {
	normalized, err := r.normalize(doc.OrderedSpecs())
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.destination = strings.TrimSpace(doc.Destination)
	r.specs = normalized
	r.lastUpdate = doc.Metadata.LastUpdate
	r.dirty = false
	r.mu.Unlock()

	r.changed()
	return nil
}

// IsDirty returns true if the registry has unsaved changes.
func (r *Registry) IsDirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirty
}

// ClearDirty resets the dirty flag.
func (r *Registry) ClearDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = false
}

// GetLastUpdate returns the content's last update timestamp.
func (r *Registry) GetLastUpdate() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastUpdate
}

// SetLastUpdate sets the content's last update timestamp.
func (r *Registry) SetLastUpdate(ts int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUpdate = ts
}

// MarkPersisted clears the dirty flag if the content saved at lastUpdate is
// still current. A replacement that raced with the save keeps the flag set.
func (r *Registry) MarkPersisted(lastUpdate int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastUpdate == lastUpdate {
		r.dirty = false
	}
}
