// Package browser defines the capability surface the engine consumes from
// a headless browser automation layer and a go-rod-backed
// implementation of it. The engine never imports go-rod directly; it only
// ever sees the Driver/Tab interfaces here, so a different automation
// backend can be substituted without touching scheduler or processor code.
package browser

import (
	"context"
	"time"
)

// RequestAction is the routing decision a Tab's request handler applies to
// an intercepted network request.
type RequestAction int

const (
	ActionContinue RequestAction = iota
	ActionAbort
)

// LoadState names a browser readiness condition a caller can wait for.
type LoadState int

const (
	LoadStateDOMContentLoaded LoadState = iota
	LoadStateLoad
	LoadStateNetworkIdle
)

// RequestInfo describes the start of a single network request observed on
// a tab.
type RequestInfo struct {
	RequestID string
	URL       string
	Method    string
}

// ResponseInfo describes the completion of a previously observed request.
type ResponseInfo struct {
	RequestID string
	URL       string
	Status    int
	Elapsed   time.Duration
}

// FailureInfo describes a request that failed before a response arrived.
type FailureInfo struct {
	RequestID string
	URL       string
	Reason    string
}

// PDFOptions mirrors a render-to-PDF capability. Zero values
// produce Chrome's own defaults; PDFExporter (C4) sets A4-equivalent sizing
// and 1cm margins explicitly rather than relying on that default.
type PDFOptions struct {
	Landscape           bool
	DisplayHeaderFooter bool
	PrintBackground     bool
	Scale               float64
	PaperWidthInches    float64
	PaperHeightInches   float64
	MarginTopInches     float64
	MarginBottomInches  float64
	MarginLeftInches    float64
	MarginRightInches   float64
	PageRanges          string
}

// ScreenshotOptions mirrors a screenshot capability, used only
// by observability (not the core pipeline).
type ScreenshotOptions struct {
	FullPage bool
	Format   string
	Timeout  time.Duration
}

// Driver opens and owns tabs. Implementations must serialize tab creation
// — callers are free to call OpenTab concurrently from multiple
// goroutines and rely on the Driver to make that safe.
type Driver interface {
	OpenTab(ctx context.Context) (Tab, error)
	Close() error
}

// Tab is one independent browser page handle, the unit of concurrency in
// this driver. All methods on a single Tab are expected to be
// called from one goroutine at a time except the On* registration methods,
// whose callbacks may fire on a browser-driver thread distinct from the
// caller.
type Tab interface {
	Navigate(ctx context.Context, rawURL string, timeout time.Duration) error

	InstallRequestHandler(match func(requestURL string) bool, action RequestAction) error
	AbortRequest(requestID string) error

	OnRequest(fn func(RequestInfo))
	OnResponse(fn func(ResponseInfo))
	OnRequestFailed(fn func(FailureInfo))
	OnLoad(fn func())
	OnDOMContentLoaded(fn func())

	Evaluate(ctx context.Context, js string, args ...any) (any, error)
	QuerySelector(selector string) (bool, error)
	QuerySelectorAll(selector string) (int, error)

	// HTML returns a snapshot of the current DOM serialized to a string,
	// for cheap goquery-based pre-checks that don't need a round trip
	// through the JS evaluator. An empty string with a nil error means no
	// snapshot is available yet; callers must not treat that as "no
	// matches".
	HTML(ctx context.Context) (string, error)

	WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error

	CurrentURL() string
	Title() string

	RenderPDF(ctx context.Context, path string, opts PDFOptions) error
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)

	Close() error
}
