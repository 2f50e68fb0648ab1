package browser

import (
	"context"
	"sync"
	"time"
)

// FakeDriver is an in-memory Driver used by tests in this module's other
// packages (processors, scheduler) that need a Tab without a real browser.
type FakeDriver struct {
	mu       sync.Mutex
	OpenFunc func(ctx context.Context) (Tab, error)
	Opened   []*FakeTab
}

func (d *FakeDriver) OpenTab(ctx context.Context) (Tab, error) {
	if d.OpenFunc != nil {
		return d.OpenFunc(ctx)
	}
	t := NewFakeTab()
	d.mu.Lock()
	d.Opened = append(d.Opened, t)
	d.mu.Unlock()
	return t, nil
}

func (d *FakeDriver) Close() error { return nil }

// FakeTab is a scriptable Tab implementation.
type FakeTab struct {
	mu sync.Mutex

	NavigateErr  error
	HasSelector  map[string]bool
	AllCount     map[string]int
	EvalFunc     func(js string, args ...any) (any, error)
	PDFErr       error
	HTMLSnapshot string
	HTMLErr      error

	url    string
	title  string
	closed bool

	onRequest  []func(RequestInfo)
	onResponse []func(ResponseInfo)
	onFailed   []func(FailureInfo)
	onLoad     []func()
	onDOMReady []func()

	handlers []fakeHandler
	Rendered []string
	Aborted  []string
}

type fakeHandler struct {
	match  func(string) bool
	action RequestAction
}

func NewFakeTab() *FakeTab {
	return &FakeTab{
		HasSelector: make(map[string]bool),
		AllCount:    make(map[string]int),
	}
}

func (t *FakeTab) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if t.NavigateErr != nil {
		return t.NavigateErr
	}
	t.mu.Lock()
	t.url = rawURL
	t.mu.Unlock()
	return nil
}

func (t *FakeTab) InstallRequestHandler(match func(string) bool, action RequestAction) error {
	t.mu.Lock()
	t.handlers = append(t.handlers, fakeHandler{match: match, action: action})
	t.mu.Unlock()
	return nil
}

func (t *FakeTab) AbortRequest(requestID string) error {
	t.mu.Lock()
	t.Aborted = append(t.Aborted, requestID)
	t.mu.Unlock()
	return nil
}

// FireRequest drives registered request handlers and OnRequest callbacks,
// returning the resulting action so tests can assert block decisions.
func (t *FakeTab) FireRequest(info RequestInfo) RequestAction {
	t.mu.Lock()
	handlers := append([]fakeHandler{}, t.handlers...)
	cbs := append([]func(RequestInfo){}, t.onRequest...)
	t.mu.Unlock()

	action := ActionContinue
	for _, h := range handlers {
		if h.match(info.URL) {
			action = h.action
		}
	}
	for _, cb := range cbs {
		cb(info)
	}
	return action
}

func (t *FakeTab) FireResponse(info ResponseInfo) {
	t.mu.Lock()
	cbs := append([]func(ResponseInfo){}, t.onResponse...)
	t.mu.Unlock()
	for _, cb := range cbs {
		cb(info)
	}
}

func (t *FakeTab) FireFailed(info FailureInfo) {
	t.mu.Lock()
	cbs := append([]func(FailureInfo){}, t.onFailed...)
	t.mu.Unlock()
	for _, cb := range cbs {
		cb(info)
	}
}

func (t *FakeTab) FireLoad() {
	t.mu.Lock()
	cbs := append([]func(){}, t.onLoad...)
	t.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

func (t *FakeTab) FireDOMContentLoaded() {
	t.mu.Lock()
	cbs := append([]func(){}, t.onDOMReady...)
	t.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

func (t *FakeTab) OnRequest(fn func(RequestInfo))           { t.onRequest = append(t.onRequest, fn) }
func (t *FakeTab) OnResponse(fn func(ResponseInfo))         { t.onResponse = append(t.onResponse, fn) }
func (t *FakeTab) OnRequestFailed(fn func(FailureInfo))     { t.onFailed = append(t.onFailed, fn) }
func (t *FakeTab) OnLoad(fn func())                         { t.onLoad = append(t.onLoad, fn) }
func (t *FakeTab) OnDOMContentLoaded(fn func())             { t.onDOMReady = append(t.onDOMReady, fn) }

func (t *FakeTab) Evaluate(ctx context.Context, js string, args ...any) (any, error) {
	if t.EvalFunc != nil {
		return t.EvalFunc(js, args...)
	}
	return nil, nil
}

func (t *FakeTab) HTML(ctx context.Context) (string, error) {
	return t.HTMLSnapshot, t.HTMLErr
}

func (t *FakeTab) QuerySelector(selector string) (bool, error) {
	return t.HasSelector[selector], nil
}

func (t *FakeTab) QuerySelectorAll(selector string) (int, error) {
	return t.AllCount[selector], nil
}

func (t *FakeTab) WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error {
	return nil
}

func (t *FakeTab) CurrentURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func (t *FakeTab) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

func (t *FakeTab) SetTitle(title string) {
	t.mu.Lock()
	t.title = title
	t.mu.Unlock()
}

func (t *FakeTab) RenderPDF(ctx context.Context, path string, opts PDFOptions) error {
	if t.PDFErr != nil {
		return t.PDFErr
	}
	t.mu.Lock()
	t.Rendered = append(t.Rendered, path)
	t.mu.Unlock()
	return nil
}

func (t *FakeTab) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	return nil, nil
}

func (t *FakeTab) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *FakeTab) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
