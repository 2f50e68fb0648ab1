package processors

import (
	"context"
	"log/slog"
	"time"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// RequestMonitor is priority 1: it converts PageMonitor's
// slow/failed counters into abort patterns and actuates them against the
// tab's request routing.
type RequestMonitor struct {
	slowThreshold   int
	failedThreshold int
	initialPatterns []string
	logger          *slog.Logger

	cache     *patternCache
	installed bool
}

func NewRequestMonitor(slowThreshold, failedThreshold int, initialPatterns []string, logger *slog.Logger) *RequestMonitor {
	if slowThreshold <= 0 {
		slowThreshold = 100
	}
	if failedThreshold <= 0 {
		failedThreshold = 10
	}
	return &RequestMonitor{
		slowThreshold:   slowThreshold,
		failedThreshold: failedThreshold,
		initialPatterns: initialPatterns,
		logger:          logger.With("processor", "request_monitor"),
		cache:           newPatternCache(),
	}
}

func (p *RequestMonitor) Name() string  { return "request_monitor" }
func (p *RequestMonitor) Priority() int { return 1 }

func (p *RequestMonitor) Detect(ctx context.Context, pc *pagecontext.Context) (types.ProcessorState, error) {
	switch pc.Bag.PageState() {
	case types.PageLoading:
		return types.StateWaiting, nil
	case types.PageCompleted:
		return types.StateCompleted, nil
	default:
		return types.StateRunning, nil
	}
}

func (p *RequestMonitor) Run(ctx context.Context, pc *pagecontext.Context) error {
	if !p.installed {
		for _, pat := range p.initialPatterns {
			pc.Bag.AddBlockPattern(types.BlockPattern{Pattern: pat, Reason: "configured", Ts: time.Now()})
		}
		if err := pc.Tab.InstallRequestHandler(func(candidate string) bool {
			return p.cache.matchAny(activePatterns(pc), candidate)
		}, browser.ActionAbort); err != nil {
			p.logger.Error("install request handler failed", "error", err)
			return err
		}
		p.installed = true
	}

	for url, count := range pc.Bag.SlowRequests() {
		if count >= p.slowThreshold {
			pc.Bag.AddBlockPattern(types.BlockPattern{Pattern: urlToBlockPattern(url), Reason: "slow", Ts: time.Now()})
		}
	}
	for url, count := range pc.Bag.FailedRequests() {
		if count >= p.failedThreshold {
			pc.Bag.AddBlockPattern(types.BlockPattern{Pattern: urlToBlockPattern(url), Reason: "failed", Ts: time.Now()})
		}
	}

	patterns := activePatterns(pc)
	for url, pr := range pc.Bag.PendingRequests() {
		if p.cache.matchAny(patterns, url) {
			if err := pc.Tab.AbortRequest(pr.RequestID); err != nil {
				p.logger.Warn("abort request failed", "url", url, "error", err)
			}
		}
	}
	return nil
}

func (p *RequestMonitor) Finish(ctx context.Context, pc *pagecontext.Context) error {
	p.logger.Debug("finished", "patterns", len(pc.Bag.BlockPatterns()))
	return nil
}

func activePatterns(pc *pagecontext.Context) []string {
	bp := pc.Bag.BlockPatterns()
	out := make([]string, len(bp))
	for i, p := range bp {
		out[i] = p.Pattern
	}
	return out
}
