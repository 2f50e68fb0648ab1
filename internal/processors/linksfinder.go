package processors

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/kestrel-labs/pageforge/internal/frontier"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// LinksFinder is priority 10: it discovers further work
// for the Frontier from anchors inside a CSS selector's subtree.
type LinksFinder struct {
	selector string
	patterns []string
	maxDepth int
	logger   *slog.Logger

	entryDirs []string
	frontier  *frontier.Frontier
	cache     *patternCache

	passReady     bool
	passCompleted bool
}

// NewLinksFinder derives inclusion patterns from entryURLs' parent
// directories when patterns is empty, so a run with no configured patterns
// still stays within the site it was pointed at.
func NewLinksFinder(selector string, patterns []string, maxDepth int, entryURLs []string, fr *frontier.Frontier, logger *slog.Logger) *LinksFinder {
	dirs := make([]string, 0, len(entryURLs))
	for _, e := range entryURLs {
		dirs = append(dirs, parentDir(e))
	}

	if len(patterns) == 0 {
		for _, d := range dirs {
			patterns = append(patterns, "^"+regexp.QuoteMeta(d)+".*")
		}
	}

	return &LinksFinder{
		selector:  selector,
		patterns:  patterns,
		maxDepth:  maxDepth,
		logger:    logger.With("processor", "links_finder"),
		entryDirs: dirs,
		frontier:  fr,
		cache:     newPatternCache(),
	}
}

func (p *LinksFinder) Name() string  { return "links_finder" }
func (p *LinksFinder) Priority() int { return 10 }

func (p *LinksFinder) Detect(ctx context.Context, pc *pagecontext.Context) (types.ProcessorState, error) {
	state := pc.Bag.PageState()
	switch {
	case state == types.PageReady && !p.passReady:
		return types.StateReady, nil
	case state == types.PageCompleted && !p.passCompleted:
		return types.StateReady, nil
	case state == types.PageCompleted && p.passCompleted:
		return types.StateCompleted, nil
	default:
		return types.StateWaiting, nil
	}
}

const linksFinderScript = `(function(sel){
	var out = [];
	var root = document.querySelector(sel);
	if (!root) { return out; }
	if (root.tagName === 'A' && root.hasAttribute('href')) { out.push(root.getAttribute('href')); }
	var anchors = root.querySelectorAll('a[href]');
	for (var i = 0; i < anchors.length; i++) { out.push(anchors[i].getAttribute('href')); }
	return out;
})`

func (p *LinksFinder) Run(ctx context.Context, pc *pagecontext.Context) error {
	state := pc.Bag.PageState()
	defer func() {
		switch state {
		case types.PageReady:
			p.passReady = true
		case types.PageCompleted:
			p.passCompleted = true
		}
	}()

	if html, err := pc.Tab.HTML(ctx); err == nil {
		if has, ok := quickHasAnchors(html); ok && !has {
			return nil
		}
	}

	raw, err := pc.Tab.Evaluate(ctx, linksFinderScript, p.selector)
	if err != nil {
		return fmt.Errorf("evaluate links script: %w", err)
	}

	hrefs := toStringSlice(raw)
	base, err := url.Parse(pc.Tab.CurrentURL())
	if err != nil {
		return fmt.Errorf("parse current tab url: %w", err)
	}

	for _, href := range hrefs {
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}

		candidate := frontier.Canonicalize(resolved.String(), false)

		if !p.cache.matchAny(p.patterns, candidate) {
			continue
		}

		if !p.withinMaxDepth(candidate) {
			continue
		}

		entity, added := p.frontier.Add(candidate, "discovered")
		if added {
			pc.Bag.AddDiscoveredLink(pagecontext.DiscoveredLink{URL: entity.URL, Selector: p.selector, Ts: time.Now()})
		}
	}

	return nil
}

func (p *LinksFinder) withinMaxDepth(candidate string) bool {
	if len(p.entryDirs) == 0 {
		return true
	}
	for _, dir := range p.entryDirs {
		if depth, ok := pathDepth(candidate, dir); ok && depth <= p.maxDepth {
			return true
		}
	}
	return false
}

func (p *LinksFinder) Finish(ctx context.Context, pc *pagecontext.Context) error {
	return nil
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
