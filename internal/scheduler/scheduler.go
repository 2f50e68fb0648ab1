// Package scheduler implements C5, the Tab Scheduler: the single main loop
// that admits PENDING URLs onto live browser tabs bounded by K, ticks each
// tab's processors in priority order, and retires tabs to VISITED/FAILED
//. It is the only component that drives processor.Instance
// transitions; processors themselves never decide WAITING vs RUNNING vs
// COMPLETED on their own.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/frontier"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/processor"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// ProcessorFactory builds a fresh processor instance for one Page Context.
// Scheduler holds an ordered list of factories and instantiates one of each
// per admitted tab.
type ProcessorFactory func() pagecontext.Processor

// RetryGate is C8's single policy callback: given the
// current FAILED URLs, decide whether they should be promoted back to
// PENDING. A nil gate never retries.
type RetryGate func(failed []types.URL) bool

// Hooks lets callers (internal/engine) observe scheduler activity without
// the scheduler importing internal/metrics or internal/sink directly.
// Every field is optional; nil hooks are simply skipped.
type Hooks struct {
	OnLifecycle           func(types.LifecycleEvent)
	OnProcessorTransition func(processorName string, state types.ProcessorState, result string)
	OnLiveTabCount        func(n int)
}

// Config carries every tunable the Tab Scheduler's main loop needs.
type Config struct {
	MaxConcurrentTabs  int
	PollInterval       time.Duration
	PageTimeout        time.Duration
	DetectTimeout      time.Duration
	ProcessorFactories []ProcessorFactory
	Retry              RetryGate
}

// Scheduler owns the admission/tick/retire main loop.
type Scheduler struct {
	cfg      Config
	frontier *frontier.Frontier
	driver   browser.Driver
	logger   *slog.Logger
	hooks    Hooks

	mu   sync.Mutex
	live map[string]*liveTab // keyed by URL id
}

type liveTab struct {
	url       types.URL
	tab       browser.Tab
	pc        *pagecontext.Context
	instances []*processor.Instance
	startedAt time.Time
}

// New constructs a Scheduler. cfg.MaxConcurrentTabs must be >= 0.
func New(cfg Config, f *frontier.Frontier, driver browser.Driver, logger *slog.Logger) (*Scheduler, error) {
	if cfg.MaxConcurrentTabs < 0 {
		return nil, types.ErrTabLimit
	}
	return &Scheduler{
		cfg:      cfg,
		frontier: f,
		driver:   driver,
		logger:   logger.With("component", "scheduler"),
		live:     make(map[string]*liveTab),
	}, nil
}

// WithHooks attaches observability hooks, returning the scheduler for
// chaining at construction time.
func (s *Scheduler) WithHooks(h Hooks) *Scheduler {
	s.hooks = h
	return s
}

// LiveTabCount reports the number of currently open tabs.
func (s *Scheduler) LiveTabCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Run drives the main loop until the Frontier drains and the Retry Gate
// declines to retry, or ctx is cancelled. It never returns until one of
// those conditions holds.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.forceCloseAll(context.Background())
			return ctx.Err()
		}

		if err := s.admit(ctx); err != nil {
			s.logger.Error("admission failed", "error", err)
		}

		if err := s.tick(ctx); err != nil {
			s.logger.Error("tick failed", "error", err)
		}

		if s.LiveTabCount() == 0 && len(s.frontier.ByStatus(types.StatusPending, 1, false)) == 0 {
			if s.idleOrRetry() {
				continue
			}
			return nil
		}

		select {
		case <-ctx.Done():
			s.forceCloseAll(context.Background())
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// idleOrRetry consults the Retry Gate once the Frontier has drained,
// promoting FAILED back to PENDING on a true verdict.
func (s *Scheduler) idleOrRetry() bool {
	if s.cfg.Retry == nil {
		return false
	}
	failed := s.frontier.ByStatus(types.StatusFailed, 0, false)
	if len(failed) == 0 {
		return false
	}
	if !s.cfg.Retry(failed) {
		return false
	}
	for _, u := range failed {
		s.frontier.UpdateStatus(u.ID, types.StatusPending)
		s.emit(types.LifecycleEvent{Kind: types.EventRetried, URLID: u.ID, URL: u.URL, Status: types.StatusPending, Timestamp: time.Now()})
	}
	return true
}

// admit opens up to K-live tabs for the oldest PENDING URLs. Tab creation itself is serialized through the Driver; this
// loop issues the OpenTab calls concurrently and lets the Driver enforce
// that guarantee.
func (s *Scheduler) admit(ctx context.Context) error {
	s.mu.Lock()
	slots := s.cfg.MaxConcurrentTabs - len(s.live)
	s.mu.Unlock()
	if slots <= 0 {
		return nil
	}

	candidates := s.frontier.ByStatus(types.StatusPending, slots, true)
	if len(candidates) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(int64(len(candidates)))
	g, gctx := errgroup.WithContext(ctx)

	for _, u := range candidates {
		u := u
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			s.openTab(gctx, u)
			return nil
		})
	}

	return g.Wait()
}

func (s *Scheduler) openTab(ctx context.Context, u types.URL) {
	s.frontier.UpdateStatus(u.ID, types.StatusProcessing)

	tab, err := s.driver.OpenTab(ctx)
	if err != nil {
		s.failURL(u, fmt.Errorf("open tab: %w", err))
		return
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
	defer cancel()
	if err := tab.Navigate(navCtx, u.URL, s.cfg.PageTimeout); err != nil {
		tab.Close()
		s.failURL(u, &types.NavigationError{URL: u.URL, Err: err})
		return
	}

	pc := pagecontext.New(u, tab)
	instances := make([]*processor.Instance, 0, len(s.cfg.ProcessorFactories))
	for _, factory := range s.cfg.ProcessorFactories {
		p := factory()
		if err := pc.AddProcessor(p); err != nil {
			s.logger.Error("duplicate processor registration", "processor", p.Name(), "error", err)
			continue
		}
		instances = append(instances, processor.NewInstance(p))
	}
	sort.SliceStable(instances, func(i, j int) bool { return instances[i].Priority() < instances[j].Priority() })

	lt := &liveTab{url: u, tab: tab, pc: pc, instances: instances, startedAt: time.Now()}

	s.mu.Lock()
	s.live[u.ID] = lt
	s.mu.Unlock()

	s.emit(types.LifecycleEvent{Kind: types.EventStarted, URLID: u.ID, URL: u.URL, Status: types.StatusProcessing, Timestamp: time.Now()})
	s.reportLiveCount()
}

func (s *Scheduler) failURL(u types.URL, err error) {
	s.frontier.UpdateStatus(u.ID, types.StatusFailed)
	s.logger.Warn("url failed", "url", u.URL, "error", err)
	s.emit(types.LifecycleEvent{Kind: types.EventFailed, URLID: u.ID, URL: u.URL, Status: types.StatusFailed, Err: err, Timestamp: time.Now()})
}

// tick runs one round of per-tab work concurrently.
func (s *Scheduler) tick(ctx context.Context) error {
	s.mu.Lock()
	tabs := make([]*liveTab, 0, len(s.live))
	for _, lt := range s.live {
		tabs = append(tabs, lt)
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, lt := range tabs {
		lt := lt
		g.Go(func() error {
			s.tickTab(gctx, lt)
			return nil
		})
	}
	return g.Wait()
}

// tickTab runs one tick of a single tab's processors, then decides whether
// the tab is done, timed out, or still has pending work.
func (s *Scheduler) tickTab(ctx context.Context, lt *liveTab) {
	anyPending := false

	for _, inst := range lt.instances {
		if inst.Terminal() {
			continue
		}

		if inst.State == types.StateRunning {
			if err := inst.RunOnce(ctx, lt.pc); err != nil {
				s.reportTransition(inst.Name(), types.StateCancelled, "error")
				continue
			}
			state, derr := inst.Detect(ctx, lt.pc, s.cfg.DetectTimeout)
			s.applyDetect(inst, state, derr, &anyPending)
			continue
		}

		state, err := inst.Detect(ctx, lt.pc, s.cfg.DetectTimeout)
		if err != nil {
			inst.Cancel()
			s.reportTransition(inst.Name(), types.StateCancelled, "detect_error")
			continue
		}

		switch state {
		case types.StateReady:
			inst.State = types.StateRunning
			if err := inst.RunOnce(ctx, lt.pc); err != nil {
				s.reportTransition(inst.Name(), types.StateCancelled, "error")
				continue
			}
			next, derr := inst.Detect(ctx, lt.pc, s.cfg.DetectTimeout)
			s.applyDetect(inst, next, derr, &anyPending)
		case types.StateCompleted:
			inst.State = types.StateCompleted
			s.reportTransition(inst.Name(), types.StateCompleted, "ok")
		case types.StateCancelled:
			inst.Cancel()
			s.reportTransition(inst.Name(), types.StateCancelled, "detect")
		case types.StateWaiting, types.StateRunning:
			inst.State = state
			anyPending = true
		}
	}

	timedOut := time.Since(lt.startedAt) > s.cfg.PageTimeout
	if !anyPending {
		s.retireTab(ctx, lt, types.StatusVisited)
		return
	}
	if timedOut {
		s.retireTab(ctx, lt, types.StatusFailed)
	}
}

// applyDetect folds a post-run Detect call's verdict into the instance's
// state, following the same dispatch table tickTab uses for a fresh
// detect.
func (s *Scheduler) applyDetect(inst *processor.Instance, state types.ProcessorState, err error, anyPending *bool) {
	if err != nil {
		inst.Cancel()
		s.reportTransition(inst.Name(), types.StateCancelled, "detect_error")
		return
	}
	switch state {
	case types.StateCompleted:
		inst.State = types.StateCompleted
		s.reportTransition(inst.Name(), types.StateCompleted, "ok")
	case types.StateCancelled:
		inst.Cancel()
		s.reportTransition(inst.Name(), types.StateCancelled, "detect")
	case types.StateWaiting:
		inst.State = types.StateWaiting
		*anyPending = true
	default:
		inst.State = types.StateRunning
		*anyPending = true
	}
}

// retireTab closes the tab, drains finish calls in descending priority
// order, marks the URL, and removes the tab from the live set.
func (s *Scheduler) retireTab(ctx context.Context, lt *liveTab, finalStatus types.URLStatus) {
	s.mu.Lock()
	if _, ok := s.live[lt.url.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.live, lt.url.ID)
	s.mu.Unlock()

	descending := append([]*processor.Instance{}, lt.instances...)
	sort.SliceStable(descending, func(i, j int) bool { return descending[i].Priority() > descending[j].Priority() })

	for _, inst := range descending {
		if inst.State != types.StateCompleted {
			continue
		}
		if err := inst.Finish(ctx, lt.pc); err != nil {
			s.logger.Error("processor finish failed", "processor", inst.Name(), "url", lt.url.URL, "error", err)
		}
	}

	lt.tab.Close()
	s.frontier.UpdateStatus(lt.url.ID, finalStatus)
	if title := lt.pc.Tab.Title(); title != "" {
		s.frontier.SetTitle(lt.url.ID, title)
	}

	kind := types.EventCompleted
	if finalStatus == types.StatusFailed {
		kind = types.EventFailed
	}
	s.emit(types.LifecycleEvent{
		Kind:          kind,
		URLID:         lt.url.ID,
		URL:           lt.url.URL,
		Status:        finalStatus,
		PDFPath:       lt.pc.Bag.PDFPath(),
		ContentBytes:  lt.pc.Bag.ContentLength(),
		TitleFallback: lt.pc.Bag.TitleFallback(),
		Duration:      time.Since(lt.startedAt),
		Timestamp:     time.Now(),
	})
	s.reportLiveCount()
}

// forceCloseAll is the cancellation path: force-close every live tab and
// run finish best-effort for COMPLETED processors.
func (s *Scheduler) forceCloseAll(ctx context.Context) {
	s.mu.Lock()
	tabs := make([]*liveTab, 0, len(s.live))
	for _, lt := range s.live {
		tabs = append(tabs, lt)
	}
	s.mu.Unlock()

	for _, lt := range tabs {
		s.retireTab(ctx, lt, types.StatusFailed)
	}
}

func (s *Scheduler) emit(ev types.LifecycleEvent) {
	if s.hooks.OnLifecycle != nil {
		s.hooks.OnLifecycle(ev)
	}
}

func (s *Scheduler) reportTransition(name string, state types.ProcessorState, result string) {
	if s.hooks.OnProcessorTransition != nil {
		s.hooks.OnProcessorTransition(name, state, result)
	}
}

func (s *Scheduler) reportLiveCount() {
	if s.hooks.OnLiveTabCount != nil {
		s.hooks.OnLiveTabCount(s.LiveTabCount())
	}
}
