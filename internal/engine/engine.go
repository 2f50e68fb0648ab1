// Package engine wires the Frontier, Tab Scheduler, browser driver,
// processor pipeline, metrics, sink, and end-of-run reporting into the one
// object cmd/pageforge and pkg/pageforge drive: Engine. It is the only
// package that imports every other internal package — scheduler,
// metrics, and sink stay decoupled from one another and meet here.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/config"
	"github.com/kestrel-labs/pageforge/internal/frontier"
	"github.com/kestrel-labs/pageforge/internal/metrics"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/processors"
	"github.com/kestrel-labs/pageforge/internal/report"
	"github.com/kestrel-labs/pageforge/internal/retrygate"
	"github.com/kestrel-labs/pageforge/internal/scheduler"
	"github.com/kestrel-labs/pageforge/internal/sink"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// Engine owns one harvesting run end to end: seeding the Frontier from
// EntryURLs, driving the Tab Scheduler, and persisting a final report.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	frontier  *frontier.Frontier
	driver    browser.Driver
	scheduler *scheduler.Scheduler
	metrics   *metrics.Recorder
	sink      sink.Sink
	reportW   *report.Writer

	startedAt time.Time

	mu      sync.Mutex
	pdfsOut int
	bytes   int64
}

// New constructs an Engine from cfg. It launches the browser driver but
// does not start harvesting until Run is called.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	driver, err := browser.NewRodDriver(browser.Options{
		Headless: cfg.Browser.Headless,
		Stealth:  cfg.Browser.Stealth,
		ProxyURL: cfg.Browser.ProxyURL,
		UserData: cfg.Browser.UserData,
		Binary:   cfg.Browser.Binary,
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	sk, err := buildSink(cfg.Sink, logger)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("build sink: %w", err)
	}

	fr := frontier.New(cfg.Engine.UpgradeHTTPS)
	for _, u := range cfg.Engine.EntryURLs {
		fr.Add(u, "entry")
	}

	rec := metrics.New()

	factories := []scheduler.ProcessorFactory{
		func() pagecontext.Processor {
			return processors.NewPageMonitor(cfg.Engine.PageTimeout, logger)
		},
		func() pagecontext.Processor {
			return processors.NewRequestMonitor(cfg.Requests.SlowRequestThreshold, cfg.Requests.FailedRequestThreshold, cfg.Requests.BlockPatterns, logger)
		},
		func() pagecontext.Processor {
			return processors.NewLinksFinder(cfg.Links.Selector, cfg.Links.URLPatterns, cfg.Links.MaxDepth, cfg.Engine.EntryURLs, fr, logger)
		},
		func() pagecontext.Processor {
			return processors.NewElementCleaner(cfg.Content.CleanSelector, logger)
		},
		func() pagecontext.Processor {
			return processors.NewContentFinder(cfg.Content.ContentSelector, nil, logger)
		},
		func() pagecontext.Processor {
			return processors.NewPDFExporter(cfg.Engine.OutputDir, logger)
		},
	}

	retryPolicy := retrygate.Never()
	if cfg.Engine.RetryFailedOnce {
		retryPolicy = retrygate.MaxAttempts(1)
	}
	retry := scheduler.RetryGate(retryPolicy)

	sched, err := scheduler.New(scheduler.Config{
		MaxConcurrentTabs:  cfg.Engine.MaxConcurrentTabs,
		PollInterval:       cfg.Engine.PollInterval,
		PageTimeout:        cfg.Engine.PageTimeout,
		DetectTimeout:      cfg.Engine.DetectTimeout,
		ProcessorFactories: factories,
		Retry:              retry,
	}, fr, driver, logger)
	if err != nil {
		driver.Close()
		sk.Close()
		return nil, fmt.Errorf("construct scheduler: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger.With("component", "engine"),
		frontier:  fr,
		driver:    driver,
		scheduler: sched,
		metrics:   rec,
		sink:      sk,
		reportW:   report.NewWriter(cfg.Engine.OutputDir),
	}

	sched.WithHooks(scheduler.Hooks{
		OnLifecycle:           e.onLifecycle,
		OnProcessorTransition: rec.ObserveProcessorTransition,
		OnLiveTabCount:        rec.ObserveLiveTabs,
	})

	return e, nil
}

func buildSink(cfg config.SinkConfig, logger *slog.Logger) (sink.Sink, error) {
	switch cfg.Type {
	case "", "null":
		return sink.NullSink{}, nil
	case "file":
		return sink.NewFileSink(cfg.Path, logger)
	case "mongo":
		return sink.NewMongoSink(cfg.DSN, cfg.DB, "events", logger)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

// Run drives the scheduler over the Frontier seeded by New to completion
// (or until ctx is cancelled), writes a final report, and closes the
// browser and sink.
func (e *Engine) Run(ctx context.Context) error {
	e.startedAt = time.Now()
	e.logger.Info("run starting", "entry_urls", len(e.cfg.Engine.EntryURLs), "max_concurrent_tabs", e.cfg.Engine.MaxConcurrentTabs)

	runErr := e.scheduler.Run(ctx)

	if err := e.writeReport(e.scheduler.LiveTabCount()); err != nil {
		e.logger.Error("final report write failed", "error", err)
	}
	if err := e.sink.Close(); err != nil {
		e.logger.Error("sink close failed", "error", err)
	}
	if err := e.driver.Close(); err != nil {
		e.logger.Error("browser close failed", "error", err)
	}

	if runErr != nil && runErr != context.Canceled {
		return runErr
	}
	return nil
}

// Recorder exposes the metrics Recorder so cmd/pageforge can mount its
// HTTP handler when cfg.Metrics.Enabled.
func (e *Engine) Recorder() *metrics.Recorder { return e.metrics }

// Frontier exposes the Frontier for read-only inspection (the harvest
// command's final summary, Harvester.Census, tests).
func (e *Engine) Frontier() *frontier.Frontier { return e.frontier }

func (e *Engine) onLifecycle(ev types.LifecycleEvent) {
	e.metrics.ObserveSnapshot(e.frontier.Snapshot())

	switch ev.Kind {
	case types.EventCompleted:
		e.metrics.ObservePage(ev.Status, domainOf(ev.URL), ev.Duration, ev.ContentBytes)
		if ev.TitleFallback {
			e.metrics.PDFTitleFallback.Inc()
		}
		e.mu.Lock()
		e.bytes += int64(ev.ContentBytes)
		if ev.PDFPath != "" {
			e.pdfsOut++
		}
		e.mu.Unlock()
	case types.EventFailed:
		e.metrics.ObservePage(ev.Status, domainOf(ev.URL), ev.Duration, ev.ContentBytes)
		e.metrics.ObserveError("page_failed", "scheduler")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.sink.Record(ctx, ev); err != nil {
		e.logger.Error("sink record failed", "error", err)
	}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func (e *Engine) writeReport(liveTabs int) error {
	e.mu.Lock()
	pdfsOut := e.pdfsOut
	bytesTotal := e.bytes
	e.mu.Unlock()

	snap := report.BuildSnapshot(e.startedAt, e.frontier.Snapshot(), liveTabs, pdfsOut, bytesTotal)
	return e.reportW.Write(snap)
}
