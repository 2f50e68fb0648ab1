package sink

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kestrel-labs/pageforge/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestNullSinkDiscardsSilently(t *testing.T) {
	var s NullSink
	if err := s.Record(context.Background(), types.LifecycleEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFileSinkAppendsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	s, err := NewFileSink(path, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := types.LifecycleEvent{
		Kind: types.EventCompleted, URLID: "u1", URL: "https://site/a", Status: types.StatusVisited,
		PDFPath: "/out/a.pdf", Duration: 2 * time.Second, Timestamp: time.Now(),
	}
	if err := s.Record(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	var last string
	for scanner.Scan() {
		lines++
		last = scanner.Text()
	}
	if lines != 1 {
		t.Fatalf("expected exactly 1 line, got %d", lines)
	}
	if !strings.Contains(last, "\"pdf_path\":\"/out/a.pdf\"") {
		t.Fatalf("expected pdf_path in record, got %s", last)
	}
}

type fakeSink struct {
	recorded []types.LifecycleEvent
	recErr   error
	closed   bool
}

func (f *fakeSink) Record(ctx context.Context, ev types.LifecycleEvent) error {
	if f.recErr != nil {
		return f.recErr
	}
	f.recorded = append(f.recorded, ev)
	return nil
}
func (f *fakeSink) Close() error { f.closed = true; return nil }

func TestMultiSinkFansOutAndReportsFirstError(t *testing.T) {
	ok := &fakeSink{}
	bad := &fakeSink{recErr: errors.New("boom")}
	m := NewMultiSink(discardLogger(), ok, bad)

	ev := types.LifecycleEvent{URLID: "u1"}
	if err := m.Record(context.Background(), ev); err == nil {
		t.Fatalf("expected the bad sink's error to propagate")
	}
	if len(ok.recorded) != 1 {
		t.Fatalf("expected the good sink to still receive the event")
	}
}

func TestMultiSinkCloseClosesAllBackends(t *testing.T) {
	a, b := &fakeSink{}, &fakeSink{}
	m := NewMultiSink(discardLogger(), a, b)
	m.Close()
	if !a.closed || !b.closed {
		t.Fatalf("expected both backends closed")
	}
}
