package pagecontext

import (
	"testing"

	"github.com/kestrel-labs/pageforge/internal/types"
)

func TestAdvancePageStateIsMonotonic(t *testing.T) {
	b := NewBag()

	if got := b.AdvancePageState(types.PageReady); got != types.PageReady {
		t.Fatalf("expected ready, got %v", got)
	}
	if got := b.AdvancePageState(types.PageLoading); got != types.PageReady {
		t.Fatalf("expected advance to refuse backward transition, got %v", got)
	}
	if got := b.AdvancePageState(types.PageCompleted); got != types.PageCompleted {
		t.Fatalf("expected completed, got %v", got)
	}
}

func TestAddBlockPatternDeduplicates(t *testing.T) {
	b := NewBag()
	b.AddBlockPattern(types.BlockPattern{Pattern: "https://cdn/x.*", Reason: "slow"})
	b.AddBlockPattern(types.BlockPattern{Pattern: "https://cdn/x.*", Reason: "slow"})

	got := b.BlockPatterns()
	if len(got) != 1 {
		t.Fatalf("expected a single effective pattern, got %d", len(got))
	}
}

func TestRequestLifecycleTracksElapsed(t *testing.T) {
	b := NewBag()
	b.RecordRequestStart("req-1", "https://example.com/x")

	pending := b.PendingRequests()
	if len(pending) != 1 {
		t.Fatalf("expected one pending request")
	}

	if _, ok := b.ResolveRequest("https://example.com/x"); !ok {
		t.Fatalf("expected ResolveRequest to find the tracked request")
	}
	if len(b.PendingRequests()) != 0 {
		t.Fatalf("expected pending requests to be empty after resolve")
	}
}

func TestIncrSlowAndFailedCounters(t *testing.T) {
	b := NewBag()
	b.IncrSlow("https://cdn/x")
	b.IncrSlow("https://cdn/x")
	b.IncrFailed("https://cdn/y")

	if b.SlowRequests()["https://cdn/x"] != 2 {
		t.Fatalf("expected slow counter 2")
	}
	if b.FailedRequests()["https://cdn/y"] != 1 {
		t.Fatalf("expected failed counter 1")
	}
}

func TestExtensionMapRoundTrip(t *testing.T) {
	b := NewBag()
	if _, ok := b.Get("scratch"); ok {
		t.Fatalf("expected missing key to report ok=false")
	}
	b.Set("scratch", 42)
	v, ok := b.Get("scratch")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected scratch=42, got %v ok=%v", v, ok)
	}
}
