package pagecontext

import (
	"context"
	"testing"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/types"
)

type stubProcessor struct {
	name     string
	priority int
}

func (s *stubProcessor) Name() string     { return s.name }
func (s *stubProcessor) Priority() int    { return s.priority }
func (s *stubProcessor) Detect(ctx context.Context, pc *Context) (types.ProcessorState, error) {
	return types.StateWaiting, nil
}
func (s *stubProcessor) Run(ctx context.Context, pc *Context) error    { return nil }
func (s *stubProcessor) Finish(ctx context.Context, pc *Context) error { return nil }

func TestAddProcessorRejectsDuplicateName(t *testing.T) {
	pc := New(types.URL{ID: "u1"}, browser.NewFakeTab())

	if err := pc.AddProcessor(&stubProcessor{name: "a", priority: 0}); err != nil {
		t.Fatalf("unexpected error on first add: %v", err)
	}
	if err := pc.AddProcessor(&stubProcessor{name: "a", priority: 5}); err == nil {
		t.Fatalf("expected error re-registering processor name \"a\"")
	}
}

func TestProcessorsByPriorityOrdering(t *testing.T) {
	pc := New(types.URL{ID: "u1"}, browser.NewFakeTab())

	pc.AddProcessor(&stubProcessor{name: "content", priority: 30})
	pc.AddProcessor(&stubProcessor{name: "page", priority: 0})
	pc.AddProcessor(&stubProcessor{name: "links", priority: 10})

	asc := pc.ProcessorsByPriority(true)
	wantAsc := []string{"page", "links", "content"}
	for i, name := range wantAsc {
		if asc[i].Name() != name {
			t.Fatalf("ascending[%d] = %s, want %s", i, asc[i].Name(), name)
		}
	}

	desc := pc.ProcessorsByPriority(false)
	wantDesc := []string{"content", "links", "page"}
	for i, name := range wantDesc {
		if desc[i].Name() != name {
			t.Fatalf("descending[%d] = %s, want %s", i, desc[i].Name(), name)
		}
	}
}

func TestGetProcessorUnknownName(t *testing.T) {
	pc := New(types.URL{ID: "u1"}, browser.NewFakeTab())
	if _, ok := pc.GetProcessor("missing"); ok {
		t.Fatalf("expected GetProcessor to report ok=false for unknown name")
	}
}
