package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kestrel-labs/pageforge/internal/types"
)

func TestObserveSnapshotPopulatesEveryStatus(t *testing.T) {
	r := New()
	r.ObserveSnapshot(map[types.URLStatus]int{
		types.StatusPending: 3,
		types.StatusVisited: 5,
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(body) == 0 {
		t.Fatalf("expected non-empty metrics exposition")
	}
}

func TestObservePageRecordsDurationAndSize(t *testing.T) {
	r := New()
	r.ObservePage(types.StatusVisited, "example.org", 2*time.Second, 4096)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestObserveProcessorTransitionAndErrorDoNotPanic(t *testing.T) {
	r := New()
	r.ObserveProcessorTransition("pdf_exporter", types.StateCompleted, "ok")
	r.ObserveError("navigation_timeout", "scheduler")
	r.ObserveLiveTabs(3)
}
