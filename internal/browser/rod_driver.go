package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options configures a RodDriver's browser launch, grounded on the
// teacher's launcher flag set.
type Options struct {
	Headless bool
	Stealth  bool
	ProxyURL string
	UserData string
	Binary   string
}

// RodDriver implements Driver on top of github.com/go-rod/rod.
type RodDriver struct {
	browser *rod.Browser
	stealth bool
	mu      sync.Mutex // serializes tab creation
}

// NewRodDriver launches a Chromium instance and connects to it.
func NewRodDriver(opts Options) (*RodDriver, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if opts.Binary != "" {
		l = l.Bin(opts.Binary)
	}
	if opts.ProxyURL != "" {
		l = l.Proxy(opts.ProxyURL)
	}
	if opts.UserData != "" {
		l = l.UserDataDir(opts.UserData)
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(launchURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &RodDriver{browser: b, stealth: opts.Stealth}, nil
}

// OpenTab opens a new independent tab. Tab creation against the underlying
// browser process is serialized: only tab creation itself — not operations
// on distinct tabs — needs the driver to be the synchronization point.
func (d *RodDriver) OpenTab(ctx context.Context) (Tab, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var page *rod.Page
	var err error
	if d.stealth {
		page, err = stealth.Page(d.browser)
	} else {
		page, err = d.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}

	t := &rodTab{page: page}
	return t, nil
}

// Close shuts down the browser and every tab it owns.
func (d *RodDriver) Close() error {
	if d.browser == nil {
		return nil
	}
	return d.browser.Close()
}

// rodTab implements Tab on a single *rod.Page.
type rodTab struct {
	page *rod.Page

	mu             sync.Mutex
	onRequest      []func(RequestInfo)
	onResponse     []func(ResponseInfo)
	onFailed       []func(FailureInfo)
	onLoad         []func()
	onDOMReady     []func()
	eventsStarted  bool
	requestStarted map[string]time.Time

	router *rod.HijackRouter
}

func (t *rodTab) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	t.ensureEventLoop()
	return t.page.Context(ctx).Timeout(timeout).Navigate(rawURL)
}

// ensureEventLoop starts a single background dispatcher that fans
// CDP network/page events out to registered callbacks. Callbacks run on
// this browser-driver goroutine, distinct from the scheduler's goroutine,
// so every callback list is read under a lock.
func (t *rodTab) ensureEventLoop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.eventsStarted {
		return
	}
	t.eventsStarted = true
	t.requestStarted = make(map[string]time.Time)

	go t.page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			t.mu.Lock()
			t.requestStarted[string(e.RequestID)] = time.Now()
			cbs := append([]func(RequestInfo){}, t.onRequest...)
			t.mu.Unlock()
			info := RequestInfo{RequestID: string(e.RequestID), URL: e.Request.URL, Method: e.Request.Method}
			for _, cb := range cbs {
				cb(info)
			}
		},
		func(e *proto.NetworkResponseReceived) {
			t.mu.Lock()
			start, ok := t.requestStarted[string(e.RequestID)]
			cbs := append([]func(ResponseInfo){}, t.onResponse...)
			t.mu.Unlock()
			var elapsed time.Duration
			if ok {
				elapsed = time.Since(start)
			}
			info := ResponseInfo{RequestID: string(e.RequestID), URL: e.Response.URL, Status: e.Response.Status, Elapsed: elapsed}
			for _, cb := range cbs {
				cb(info)
			}
		},
		func(e *proto.NetworkLoadingFailed) {
			t.mu.Lock()
			cbs := append([]func(FailureInfo){}, t.onFailed...)
			t.mu.Unlock()
			info := FailureInfo{RequestID: string(e.RequestID), Reason: e.ErrorText}
			for _, cb := range cbs {
				cb(info)
			}
		},
		func(e *proto.PageLoadEventFired) {
			t.mu.Lock()
			cbs := append([]func(){}, t.onLoad...)
			t.mu.Unlock()
			for _, cb := range cbs {
				cb()
			}
		},
		func(e *proto.PageDOMContentEventFired) {
			t.mu.Lock()
			cbs := append([]func(){}, t.onDOMReady...)
			t.mu.Unlock()
			for _, cb := range cbs {
				cb()
			}
		},
	)()
}

func (t *rodTab) InstallRequestHandler(match func(requestURL string) bool, action RequestAction) error {
	t.mu.Lock()
	router := t.router
	t.mu.Unlock()

	if router == nil {
		r := t.page.HijackRequests()
		t.mu.Lock()
		t.router = r
		t.mu.Unlock()
		router = r
		go router.Run()
	}

	router.MustAdd("*", func(ctx *rod.Hijack) {
		url := ctx.Request.URL().String()
		if match(url) && action == ActionAbort {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	return nil
}

func (t *rodTab) AbortRequest(requestID string) error {
	return proto.FetchFailRequest{
		RequestID:   proto.FetchRequestID(requestID),
		ErrorReason: proto.NetworkErrorReasonBlockedByClient,
	}.Call(t.page)
}

func (t *rodTab) OnRequest(fn func(RequestInfo)) {
	t.mu.Lock()
	t.onRequest = append(t.onRequest, fn)
	t.mu.Unlock()
}

func (t *rodTab) OnResponse(fn func(ResponseInfo)) {
	t.mu.Lock()
	t.onResponse = append(t.onResponse, fn)
	t.mu.Unlock()
}

func (t *rodTab) OnRequestFailed(fn func(FailureInfo)) {
	t.mu.Lock()
	t.onFailed = append(t.onFailed, fn)
	t.mu.Unlock()
}

func (t *rodTab) OnLoad(fn func()) {
	t.mu.Lock()
	t.onLoad = append(t.onLoad, fn)
	t.mu.Unlock()
}

func (t *rodTab) OnDOMContentLoaded(fn func()) {
	t.mu.Lock()
	t.onDOMReady = append(t.onDOMReady, fn)
	t.mu.Unlock()
}

func (t *rodTab) Evaluate(ctx context.Context, js string, args ...any) (any, error) {
	res, err := t.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

func (t *rodTab) QuerySelector(selector string) (bool, error) {
	has, _, err := t.page.Has(selector)
	return has, err
}

func (t *rodTab) QuerySelectorAll(selector string) (int, error) {
	els, err := t.page.Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (t *rodTab) HTML(ctx context.Context) (string, error) {
	return t.page.Context(ctx).HTML()
}

func (t *rodTab) WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error {
	p := t.page.Context(ctx).Timeout(timeout)
	switch state {
	case LoadStateLoad:
		return p.WaitLoad()
	case LoadStateDOMContentLoaded:
		return p.WaitDOMStable(300*time.Millisecond, 0)
	case LoadStateNetworkIdle:
		return p.WaitStable(300 * time.Millisecond)
	default:
		return fmt.Errorf("unknown load state %d", state)
	}
}

func (t *rodTab) CurrentURL() string {
	info, err := t.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

func (t *rodTab) Title() string {
	info, err := t.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.Title
}

func (t *rodTab) RenderPDF(ctx context.Context, path string, opts PDFOptions) error {
	req := &proto.PagePrintToPDF{
		Landscape:           opts.Landscape,
		DisplayHeaderFooter: opts.DisplayHeaderFooter,
		PrintBackground:     opts.PrintBackground,
		Scale:               numPtr(opts.Scale),
		PaperWidth:          numPtr(opts.PaperWidthInches),
		PaperHeight:         numPtr(opts.PaperHeightInches),
		MarginTop:           numPtr(opts.MarginTopInches),
		MarginBottom:        numPtr(opts.MarginBottomInches),
		MarginLeft:          numPtr(opts.MarginLeftInches),
		MarginRight:         numPtr(opts.MarginRightInches),
		PageRanges:          opts.PageRanges,
	}

	reader, err := t.page.Context(ctx).PDF(req)
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write pdf file: %w", werr)
			}
		}
		if rerr != nil {
			break
		}
	}
	return nil
}

func (t *rodTab) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	req := &proto.PageCaptureScreenshot{}
	if opts.FullPage {
		metrics, err := proto.PageGetLayoutMetrics{}.Call(t.page)
		if err == nil && metrics != nil {
			req.Clip = &proto.PageViewport{
				X: 0, Y: 0,
				Width:  metrics.CSSContentSize.Width,
				Height: metrics.CSSContentSize.Height,
				Scale:  1,
			}
		}
	}
	return t.page.Context(ctx).Timeout(timeout).Screenshot(opts.FullPage, req)
}

func (t *rodTab) Close() error {
	return t.page.Close()
}

func numPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
