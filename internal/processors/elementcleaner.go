package processors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// ElementCleaner is priority 20: it prunes a configured
// CSS selector's matches from the DOM before content isolation.
type ElementCleaner struct {
	selector string
	logger   *slog.Logger

	done bool
}

func NewElementCleaner(selector string, logger *slog.Logger) *ElementCleaner {
	return &ElementCleaner{selector: selector, logger: logger.With("processor", "element_cleaner")}
}

func (p *ElementCleaner) Name() string  { return "element_cleaner" }
func (p *ElementCleaner) Priority() int { return 20 }

func (p *ElementCleaner) Detect(ctx context.Context, pc *pagecontext.Context) (types.ProcessorState, error) {
	if p.done {
		return types.StateCompleted, nil
	}
	switch pc.Bag.PageState() {
	case types.PageReady, types.PageCompleted:
		return types.StateReady, nil
	default:
		return types.StateWaiting, nil
	}
}

const elementCleanerScript = `(function(sel){
	var els = document.querySelectorAll(sel);
	var removed = 0, failed = 0;
	els.forEach(function(el){
		try { el.parentNode.removeChild(el); removed++; } catch(e) { failed++; }
	});
	return {total: els.length, removed: removed, failed: failed};
})`

func (p *ElementCleaner) Run(ctx context.Context, pc *pagecontext.Context) error {
	if html, err := pc.Tab.HTML(ctx); err == nil {
		if count, ok := quickElementCount(html, p.selector); ok && count == 0 {
			p.done = true
			pc.Bag.SetElementsRemoved(0)
			return nil
		}
	}

	raw, err := pc.Tab.Evaluate(ctx, elementCleanerScript, p.selector)
	if err != nil {
		return fmt.Errorf("evaluate cleanup script: %w", err)
	}

	total, removed, failed := cleanupCounts(raw)
	p.done = true

	if total > 0 && failed == total {
		return fmt.Errorf("element_cleaner: all %d candidates for %q failed to remove", total, p.selector)
	}

	pc.Bag.SetElementsRemoved(removed)
	return nil
}

func (p *ElementCleaner) Finish(ctx context.Context, pc *pagecontext.Context) error {
	return nil
}

func cleanupCounts(raw any) (total, removed, failed int) {
	m, ok := raw.(map[string]any)
	if !ok {
		return 0, 0, 0
	}
	return asInt(m["total"]), asInt(m["removed"]), asInt(m["failed"])
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
