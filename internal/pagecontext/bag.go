package pagecontext

import (
	"sync"
	"time"

	"github.com/kestrel-labs/pageforge/internal/types"
)

// PendingRequest is the in-flight request-handle value of the
// `pending_requests` reserved key.
type PendingRequest struct {
	RequestID string
	StartedAt time.Time
}

// DiscoveredLink is one entry of the `discovered_links` audit trail
// written by LinksFinder.
type DiscoveredLink struct {
	URL      string
	Selector string
	Ts       time.Time
}

// Bag is the strongly-typed replacement for the source's free-form
// per-page data mapping: one field per reserved
// key, plus an open extension map for processor-private scratch data.
// Event callbacks installed by PageMonitor run on the browser driver's own
// goroutine (internal/browser dispatches CDP events that way), concurrently
// with whichever processor the scheduler is currently ticking on this
// Page Context's owning goroutine — so every field is guarded by a single
// mutex rather than relying on a single-threaded-cooperative variant.
type Bag struct {
	mu sync.Mutex

	pageState types.PageState

	slowRequests    map[string]int
	failedRequests  map[string]int
	pendingRequests map[string]PendingRequest

	blockedPatterns []types.BlockPattern
	discoveredLinks []DiscoveredLink

	elementsRemoved      int
	coreContentProcessed bool
	contentLength        int

	pdfPath       string
	pdfExported   bool
	titleFallback bool

	extension map[string]any
}

// NewBag returns an empty Bag ready for a fresh Page Context.
func NewBag() *Bag {
	return &Bag{
		slowRequests:    make(map[string]int),
		failedRequests:  make(map[string]int),
		pendingRequests: make(map[string]PendingRequest),
		extension:       make(map[string]any),
	}
}

func (b *Bag) PageState() types.PageState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pageState
}

// AdvancePageState applies the monotonic-progression invariant: the page
// state barrier never moves backward within one Page Context.
func (b *Bag) AdvancePageState(next types.PageState) types.PageState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pageState = b.pageState.Advance(next)
	return b.pageState
}

func (b *Bag) RecordRequestStart(requestID, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingRequests[url] = PendingRequest{RequestID: requestID, StartedAt: time.Now()}
}

// ResolveRequest removes a URL from pending_requests and returns its
// elapsed duration, if it was tracked.
func (b *Bag) ResolveRequest(url string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr, ok := b.pendingRequests[url]
	if !ok {
		return 0, false
	}
	delete(b.pendingRequests, url)
	return time.Since(pr.StartedAt), true
}

func (b *Bag) PendingRequests() map[string]PendingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]PendingRequest, len(b.pendingRequests))
	for k, v := range b.pendingRequests {
		out[k] = v
	}
	return out
}

func (b *Bag) IncrSlow(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slowRequests[url]++
	return b.slowRequests[url]
}

func (b *Bag) IncrFailed(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failedRequests[url]++
	return b.failedRequests[url]
}

func (b *Bag) SlowRequests() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.slowRequests))
	for k, v := range b.slowRequests {
		out[k] = v
	}
	return out
}

func (b *Bag) FailedRequests() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.failedRequests))
	for k, v := range b.failedRequests {
		out[k] = v
	}
	return out
}

// AddBlockPattern installs a pattern, deduplicating by pattern text so that
// installing the same pattern twice yields a single effective entry.
func (b *Bag) AddBlockPattern(p types.BlockPattern) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.blockedPatterns {
		if existing.Pattern == p.Pattern {
			return
		}
	}
	b.blockedPatterns = append(b.blockedPatterns, p)
}

func (b *Bag) BlockPatterns() []types.BlockPattern {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.BlockPattern, len(b.blockedPatterns))
	copy(out, b.blockedPatterns)
	return out
}

func (b *Bag) AddDiscoveredLink(l DiscoveredLink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discoveredLinks = append(b.discoveredLinks, l)
}

func (b *Bag) DiscoveredLinks() []DiscoveredLink {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DiscoveredLink, len(b.discoveredLinks))
	copy(out, b.discoveredLinks)
	return out
}

func (b *Bag) SetElementsRemoved(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elementsRemoved = n
}

func (b *Bag) ElementsRemoved() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.elementsRemoved
}

func (b *Bag) SetCoreContentProcessed(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coreContentProcessed = v
}

func (b *Bag) CoreContentProcessed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.coreContentProcessed
}

func (b *Bag) SetContentLength(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contentLength = n
}

func (b *Bag) ContentLength() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contentLength
}

func (b *Bag) SetPDFPath(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pdfPath = path
}

func (b *Bag) PDFPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pdfPath
}

func (b *Bag) SetPDFExported(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pdfExported = v
}

func (b *Bag) PDFExported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pdfExported
}

// SetTitleFallback marks that PDFExporter rendered off a non-empty page
// title rather than a completed content-isolation pass.
func (b *Bag) SetTitleFallback(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.titleFallback = v
}

func (b *Bag) TitleFallback() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.titleFallback
}

// Get/Set back the open extension map for processor-private scratch data
// that has no reserved field.
func (b *Bag) Get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.extension[key]
	return v, ok
}

func (b *Bag) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extension[key] = value
}
