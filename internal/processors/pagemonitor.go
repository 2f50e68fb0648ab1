package processors

import (
	"context"
	"log/slog"
	"time"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// PageMonitor is priority 0: it installs the browser
// listeners every later processor's request/failure accounting depends on,
// and owns the page_state barrier.
type PageMonitor struct {
	pageTimeout time.Duration
	logger      *slog.Logger

	initialized bool
}

func NewPageMonitor(pageTimeout time.Duration, logger *slog.Logger) *PageMonitor {
	return &PageMonitor{pageTimeout: pageTimeout, logger: logger.With("processor", "page_monitor")}
}

func (p *PageMonitor) Name() string  { return "page_monitor" }
func (p *PageMonitor) Priority() int { return 0 }

func (p *PageMonitor) Detect(ctx context.Context, pc *pagecontext.Context) (types.ProcessorState, error) {
	if !p.initialized {
		return types.StateReady, nil
	}
	if pc.Bag.PageState() != types.PageCompleted {
		return types.StateRunning, nil
	}
	return types.StateCompleted, nil
}

func (p *PageMonitor) Run(ctx context.Context, pc *pagecontext.Context) error {
	if !p.initialized {
		return p.installListeners(pc)
	}
	return p.pollReadiness(ctx, pc)
}

func (p *PageMonitor) installListeners(pc *pagecontext.Context) error {
	slowThreshold := p.pageTimeout / 10

	pc.Tab.OnRequest(func(info browser.RequestInfo) {
		pc.Bag.RecordRequestStart(info.RequestID, stripQuery(info.URL))
	})
	pc.Tab.OnResponse(func(info browser.ResponseInfo) {
		key := stripQuery(info.URL)
		elapsed, ok := pc.Bag.ResolveRequest(key)
		if info.Elapsed > 0 || !ok {
			elapsed = info.Elapsed
		}
		if elapsed > slowThreshold {
			pc.Bag.IncrSlow(key)
		}
	})
	pc.Tab.OnRequestFailed(func(info browser.FailureInfo) {
		key := stripQuery(info.URL)
		pc.Bag.ResolveRequest(key)
		pc.Bag.IncrFailed(key)
	})
	pc.Tab.OnLoad(func() {
		pc.Bag.AdvancePageState(types.PageReady)
	})
	pc.Tab.OnDOMContentLoaded(func() {
		pc.Bag.Set("dom_content_loaded_at", time.Now())
	})

	p.initialized = true
	return nil
}

func (p *PageMonitor) pollReadiness(ctx context.Context, pc *pagecontext.Context) error {
	if pc.Bag.PageState() == types.PageLoading {
		readyState, err := pc.Tab.Evaluate(ctx, "document.readyState")
		if err == nil {
			if s, ok := readyState.(string); ok && (s == "interactive" || s == "complete") {
				pc.Bag.AdvancePageState(types.PageReady)
			}
		}
	}

	if pc.Bag.PageState() == types.PageReady {
		idleCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if err := pc.Tab.WaitForLoadState(idleCtx, browser.LoadStateNetworkIdle, 500*time.Millisecond); err == nil {
			pc.Bag.AdvancePageState(types.PageCompleted)
		}
	}
	return nil
}

func (p *PageMonitor) Finish(ctx context.Context, pc *pagecontext.Context) error {
	return pc.Tab.Close()
}
