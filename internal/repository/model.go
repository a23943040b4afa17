package repository

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/bassista/posdit/internal/domain"
)

// Metadata holds versioning info used to decide whether disk or memory is newer.
type Metadata struct {
	LastUpdate int64 `json:"lastUpdate"` // Unix timestamp in milliseconds
}

// WatchDocument represents the persisted JSON structure.
// Specs are keyed by WatchSpec.Key(); the key on disk is informational and
// recomputed on load.
type WatchDocument struct {
	Metadata    Metadata                    `json:"metadata"`
	Destination string                      `json:"destination" validate:"omitempty,email"`
	Specs       map[string]domain.WatchSpec `json:"specs" validate:"dive"`
}

// NewWatchDocument builds a document from an ordered spec list.
func NewWatchDocument(destination string, specs []domain.WatchSpec, lastUpdate int64) WatchDocument {
	doc := WatchDocument{
		Metadata:    Metadata{LastUpdate: lastUpdate},
		Destination: destination,
		Specs:       make(map[string]domain.WatchSpec, len(specs)),
	}
	for _, s := range specs {
		doc.Specs[s.Key()] = s
	}
	return doc
}

// ApplyDefaults sets fallback values after decode and rekeys specs.
func (d *WatchDocument) ApplyDefaults() {
	rekeyed := make(map[string]domain.WatchSpec, len(d.Specs))
	for _, s := range d.Specs {
		rekeyed[s.Key()] = s
	}
	d.Specs = rekeyed
}

// OrderedSpecs returns the specs sorted by key, which is the iteration order
// used after a load.
func (d *WatchDocument) OrderedSpecs() []domain.WatchSpec {
	keys := make([]string, 0, len(d.Specs))
	for k := range d.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.WatchSpec, 0, len(keys))
	for _, k := range keys {
		out = append(out, d.Specs[k])
	}
	return out
}

// AreWatchDocumentsEqual compares two WatchDocuments ignoring Metadata.
// Uses JSON serialization for flexible comparison (order-independent for object keys).
func AreWatchDocumentsEqual(a, b *WatchDocument) bool {
	if a == nil || b == nil {
		return a == b
	}

	aBytes, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bBytes, err := json.Marshal(b)
	if err != nil {
		return false
	}

	var aMap, bMap map[string]interface{}
	if err := json.Unmarshal(aBytes, &aMap); err != nil {
		return false
	}
	if err := json.Unmarshal(bBytes, &bMap); err != nil {
		return false
	}

	delete(aMap, "metadata")
	delete(bMap, "metadata")

	return reflect.DeepEqual(aMap, bMap)
}
