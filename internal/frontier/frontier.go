// Package frontier implements C1 from SPEC_FULL.md: a deduplicated,
// status-indexed collection of URL work items. It is the only structure
// shared across tabs and every operation is linearizable
// with respect to the others — implemented here with a single coarse
// mutex rather than fine-grained per-entry locking.
package frontier

import (
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-labs/pageforge/internal/types"
)

// Frontier is the thread-safe, status-indexed URL collection.
type Frontier struct {
	mu           sync.Mutex
	byID         map[string]*types.URL
	byURL        map[string]*types.URL
	byStatus     map[types.URLStatus]map[string]struct{}
	upgradeHTTPS bool
}

// New creates an empty Frontier. upgradeHTTPS controls whether bare "http"
// seeds are canonicalized to "https" before dedup.
func New(upgradeHTTPS bool) *Frontier {
	f := &Frontier{
		byID:         make(map[string]*types.URL),
		byURL:        make(map[string]*types.URL),
		byStatus:     make(map[types.URLStatus]map[string]struct{}),
		upgradeHTTPS: upgradeHTTPS,
	}
	for _, s := range types.AllStatuses() {
		f.byStatus[s] = make(map[string]struct{})
	}
	return f
}

// Add inserts a URL under the given category with StatusPending.
// Equivalent URLs (per Canonicalize) are a no-op: the existing entity is
// returned with added=false: adding a URL twice increases Frontier size
// exactly once.
func (f *Frontier) Add(rawURL, category string) (entity types.URL, added bool) {
	canonical := Canonicalize(rawURL, f.upgradeHTTPS)

	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.byURL[canonical]; ok {
		return *existing, false
	}

	u := &types.URL{
		ID:        uuid.New().String(),
		URL:       canonical,
		Category:  category,
		Status:    types.StatusPending,
		UpdatedAt: time.Now(),
	}
	f.byID[u.ID] = u
	f.byURL[u.URL] = u
	f.byStatus[types.StatusPending][u.ID] = struct{}{}

	return *u, true
}

// ByID looks up an entity by its stable identifier.
func (f *Frontier) ByID(id string) (types.URL, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return types.URL{}, false
	}
	return *u, true
}

// ByURL looks up an entity by its (non-canonicalized) URL string.
func (f *Frontier) ByURL(rawURL string) (types.URL, bool) {
	canonical := Canonicalize(rawURL, f.upgradeHTTPS)
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byURL[canonical]
	if !ok {
		return types.URL{}, false
	}
	return *u, true
}

// ByStatus returns entities with the given status. limit<=0 means no limit.
// When oldestFirst is true, results are ordered by ascending UpdatedAt.
func (f *Frontier) ByStatus(status types.URLStatus, limit int, oldestFirst bool) []types.URL {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := f.byStatus[status]
	out := make([]types.URL, 0, len(ids))
	for id := range ids {
		out = append(out, *f.byID[id])
	}

	if oldestFirst {
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UpdateStatus moves an entity's id from its current status-set into the
// new one, updating its timestamp. Returns false if the id is unknown.
func (f *Frontier) UpdateStatus(id string, status types.URLStatus) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		return false
	}

	delete(f.byStatus[u.Status], id)
	u.Status = status
	u.UpdatedAt = time.Now()
	f.byStatus[status][id] = struct{}{}
	return true
}

// SetTitle records display metadata discovered for a URL (e.g. by
// PDFExporter's title-fallback trigger).
func (f *Frontier) SetTitle(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.Title = title
	}
}

// CountByStatus returns the number of entities currently in a status.
func (f *Frontier) CountByStatus(status types.URLStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byStatus[status])
}

// Snapshot returns a census: status -> count, derived from the reverse
// index. This must always equal what a full scan of byID would report.
func (f *Frontier) Snapshot() map[types.URLStatus]int {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[types.URLStatus]int, len(f.byStatus))
	for status, ids := range f.byStatus {
		out[status] = len(ids)
	}
	return out
}

// All returns an iterator over every entity in the Frontier, in no
// particular order.
func (f *Frontier) All() iter.Seq[types.URL] {
	f.mu.Lock()
	snapshot := make([]types.URL, 0, len(f.byID))
	for _, u := range f.byID {
		snapshot = append(snapshot, *u)
	}
	f.mu.Unlock()

	return func(yield func(types.URL) bool) {
		for _, u := range snapshot {
			if !yield(u) {
				return
			}
		}
	}
}

// Len returns the total number of entities known to the Frontier.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}
