package engine

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kestrel-labs/pageforge/internal/config"
	"github.com/kestrel-labs/pageforge/internal/frontier"
	"github.com/kestrel-labs/pageforge/internal/metrics"
	"github.com/kestrel-labs/pageforge/internal/report"
	"github.com/kestrel-labs/pageforge/internal/sink"
	"github.com/kestrel-labs/pageforge/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDomainOfExtractsHost(t *testing.T) {
	if got := domainOf("https://example.org/a/b"); got != "example.org" {
		t.Fatalf("expected example.org, got %q", got)
	}
	if got := domainOf("::not a url::"); got != "" {
		t.Fatalf("expected empty string for unparseable url, got %q", got)
	}
}

func TestBuildSinkSelectsByType(t *testing.T) {
	if s, err := buildSink(config.SinkConfig{Type: "null"}, discardLogger()); err != nil || s == nil {
		t.Fatalf("expected a NullSink, got %v err=%v", s, err)
	}
	if s, err := buildSink(config.SinkConfig{Type: ""}, discardLogger()); err != nil || s == nil {
		t.Fatalf("expected default to NullSink, got %v err=%v", s, err)
	}

	path := filepath.Join(t.TempDir(), "events.ndjson")
	s, err := buildSink(config.SinkConfig{Type: "file", Path: path}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	if _, err := buildSink(config.SinkConfig{Type: "bogus"}, discardLogger()); err == nil {
		t.Fatalf("expected an error for an unknown sink type")
	}
}

func TestOnLifecycleAccumulatesPDFsAndBytes(t *testing.T) {
	dir := t.TempDir()
	fr := frontier.New(false)
	fr.Add("https://site/a", "entry")

	e := &Engine{
		logger:    discardLogger(),
		frontier:  fr,
		metrics:   metrics.New(),
		sink:      sink.NullSink{},
		reportW:   report.NewWriter(dir),
		startedAt: time.Now(),
	}

	e.onLifecycle(types.LifecycleEvent{
		Kind: types.EventCompleted, URLID: "u1", URL: "https://site/a",
		Status: types.StatusVisited, PDFPath: "/out/a.pdf", ContentBytes: 2048,
		Duration: time.Second, Timestamp: time.Now(),
	})
	e.onLifecycle(types.LifecycleEvent{
		Kind: types.EventFailed, URLID: "u2", URL: "https://site/b",
		Status: types.StatusFailed, Duration: time.Second, Timestamp: time.Now(),
	})

	if e.pdfsOut != 1 {
		t.Fatalf("expected pdfsOut=1, got %d", e.pdfsOut)
	}
	if e.bytes != 2048 {
		t.Fatalf("expected bytes=2048, got %d", e.bytes)
	}
}

func TestOnLifecycleCountsTitleFallback(t *testing.T) {
	fr := frontier.New(false)
	fr.Add("https://site/a", "entry")

	e := &Engine{
		logger:    discardLogger(),
		frontier:  fr,
		metrics:   metrics.New(),
		sink:      sink.NullSink{},
		reportW:   report.NewWriter(t.TempDir()),
		startedAt: time.Now(),
	}

	e.onLifecycle(types.LifecycleEvent{
		Kind: types.EventCompleted, URLID: "u1", URL: "https://site/a",
		Status: types.StatusVisited, PDFPath: "/out/a.pdf", TitleFallback: true,
		Duration: time.Second, Timestamp: time.Now(),
	})

	if got := testutil.ToFloat64(e.metrics.PDFTitleFallback); got != 1 {
		t.Fatalf("expected pdf_title_fallback_total=1, got %v", got)
	}
}

func TestWriteReportProducesFile(t *testing.T) {
	dir := t.TempDir()
	fr := frontier.New(false)

	e := &Engine{
		logger:    discardLogger(),
		frontier:  fr,
		reportW:   report.NewWriter(dir),
		startedAt: time.Now().Add(-time.Second),
	}

	if err := e.writeReport(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.json")); err != nil {
		t.Fatalf("expected report.json to exist: %v", err)
	}
}
