package processors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// ContentFinder is priority 30: it isolates the page's
// core content by pruning every branch outside the matched selector.
type ContentFinder struct {
	selector      string
	triggerStates map[types.PageState]bool
	logger        *slog.Logger

	done bool
}

// NewContentFinder defaults triggerStates to {ready, completed} when empty,
// the common case for pages with a single article body.
func NewContentFinder(selector string, triggerStates []types.PageState, logger *slog.Logger) *ContentFinder {
	set := make(map[types.PageState]bool)
	if len(triggerStates) == 0 {
		set[types.PageReady] = true
		set[types.PageCompleted] = true
	} else {
		for _, s := range triggerStates {
			set[s] = true
		}
	}
	return &ContentFinder{selector: selector, triggerStates: set, logger: logger.With("processor", "content_finder")}
}

func (p *ContentFinder) Name() string  { return "content_finder" }
func (p *ContentFinder) Priority() int { return 30 }

func (p *ContentFinder) Detect(ctx context.Context, pc *pagecontext.Context) (types.ProcessorState, error) {
	if p.done {
		return types.StateCompleted, nil
	}
	if !p.triggerStates[pc.Bag.PageState()] {
		return types.StateWaiting, nil
	}

	has, err := pc.Tab.QuerySelector(p.selector)
	if err != nil {
		return types.StateCancelled, err
	}
	if !has {
		return types.StateCancelled, nil
	}
	return types.StateReady, nil
}

const contentFinderScript = `(function(sel){
	var start = document.querySelector(sel);
	if (!start) { return {ok: false, removed: 0}; }
	var node = start;
	var removed = 0;
	while (node && node !== document.body && node.parentElement) {
		var parent = node.parentElement;
		var siblings = Array.prototype.slice.call(parent.children);
		siblings.forEach(function(sib){
			if (sib !== node) {
				try { parent.removeChild(sib); removed++; } catch(e) {}
			}
		});
		node = parent;
	}
	return {ok: true, removed: removed, length: (document.body ? document.body.innerText.length : 0)};
})`

func (p *ContentFinder) Run(ctx context.Context, pc *pagecontext.Context) error {
	raw, err := pc.Tab.Evaluate(ctx, contentFinderScript, p.selector)
	if err != nil {
		return fmt.Errorf("evaluate content isolation script: %w", err)
	}

	m, ok := raw.(map[string]any)
	if !ok || !asBool(m["ok"]) {
		return fmt.Errorf("content_finder: selector %q no longer matched at run time", p.selector)
	}

	p.done = true
	pc.Bag.SetCoreContentProcessed(true)
	pc.Bag.SetContentLength(asInt(m["length"]))
	return nil
}

func (p *ContentFinder) Finish(ctx context.Context, pc *pagecontext.Context) error {
	return nil
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
