package pagecontext

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// Processor is the detect/run/finish contract every pipeline stage
// implements. It is
// defined here, rather than in its own package, because the Page Context
// owns the processor registry (§4.2) and no cyclic import is acceptable:
// concrete processors (internal/processors) and the state-machine wrapper
// (internal/processor) both import pagecontext, never the reverse.
type Processor interface {
	Name() string
	Priority() int
	Detect(ctx context.Context, pc *Context) (types.ProcessorState, error)
	Run(ctx context.Context, pc *Context) error
	Finish(ctx context.Context, pc *Context) error
}

// Context is the per-tab record bound for the entire lifetime of a tab
//. It holds the owning URL entity, the tab handle, the data
// bag, and the processor registry. The Page Context itself has no
// reference back to the engine or frontier; processors that need the
// Frontier receive it as an explicit argument at construction.
type Context struct {
	URL       types.URL
	Tab       browser.Tab
	StartedAt time.Time
	Bag       *Bag

	byName   map[string]Processor
	ordered  []Processor // priority-ascending; rebuilt on every insertion
}

// New creates a Page Context for a freshly opened tab.
func New(url types.URL, tab browser.Tab) *Context {
	return &Context{
		URL:       url,
		Tab:       tab,
		StartedAt: time.Now(),
		Bag:       NewBag(),
		byName:    make(map[string]Processor),
	}
}

// AddProcessor registers p. Returns an error if a processor with the same
// name is already registered.
func (c *Context) AddProcessor(p Processor) error {
	if _, exists := c.byName[p.Name()]; exists {
		return fmt.Errorf("processor %q already registered", p.Name())
	}
	c.byName[p.Name()] = p
	c.ordered = append(c.ordered, p)
	sort.SliceStable(c.ordered, func(i, j int) bool {
		return c.ordered[i].Priority() < c.ordered[j].Priority()
	})
	return nil
}

// GetProcessor looks up a registered processor by name.
func (c *Context) GetProcessor(name string) (Processor, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// ProcessorsByPriority returns the registry in ascending or descending
// priority order. Run/detect ticks use ascending; finish uses descending.
func (c *Context) ProcessorsByPriority(ascending bool) []Processor {
	out := make([]Processor, len(c.ordered))
	copy(out, c.ordered)
	if !ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Elapsed reports how long this tab has been live.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartedAt)
}
