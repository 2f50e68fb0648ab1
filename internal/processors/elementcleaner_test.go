package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

func TestElementCleanerWaitsForPageState(t *testing.T) {
	tab := browser.NewFakeTab()
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	ec := NewElementCleaner(".ads", discardLogger())

	state, err := ec.Detect(context.Background(), pc)
	require.NoError(t, err)
	require.Equal(t, types.StateWaiting, state, "expected WAITING before page is ready")

	pc.Bag.AdvancePageState(types.PageReady)
	state, err = ec.Detect(context.Background(), pc)
	require.NoError(t, err)
	require.Equal(t, types.StateReady, state, "expected READY once page is ready")
}

func TestElementCleanerZeroMatchesIsCompleted(t *testing.T) {
	tab := browser.NewFakeTab()
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		return map[string]any{"total": 0, "removed": 0, "failed": 0}, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	ec := NewElementCleaner(".ads", discardLogger())
	pc.Bag.AdvancePageState(types.PageReady)

	require.NoError(t, ec.Run(context.Background(), pc))

	state, _ := ec.Detect(context.Background(), pc)
	require.Equal(t, types.StateCompleted, state, "expected COMPLETED after a zero-match run")
	require.Zero(t, pc.Bag.ElementsRemoved())
}

func TestElementCleanerPartialRemovalSucceeds(t *testing.T) {
	tab := browser.NewFakeTab()
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		return map[string]any{"total": float64(3), "removed": float64(2), "failed": float64(1)}, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	ec := NewElementCleaner(".ads", discardLogger())
	pc.Bag.AdvancePageState(types.PageReady)

	require.NoError(t, ec.Run(context.Background(), pc))
	require.Equal(t, 2, pc.Bag.ElementsRemoved())
}

func TestElementCleanerSkipsEvalWhenSnapshotShowsNoMatches(t *testing.T) {
	tab := browser.NewFakeTab()
	tab.HTMLSnapshot = "<html><body><p>nothing to clean here</p></body></html>"
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		t.Fatalf("expected the snapshot pre-check to skip the eval script")
		return nil, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	ec := NewElementCleaner(".ads", discardLogger())
	pc.Bag.AdvancePageState(types.PageReady)

	require.NoError(t, ec.Run(context.Background(), pc))
	require.Zero(t, pc.Bag.ElementsRemoved())
}

func TestElementCleanerTotalFailureIsAnError(t *testing.T) {
	tab := browser.NewFakeTab()
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		return map[string]any{"total": float64(2), "removed": float64(0), "failed": float64(2)}, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	ec := NewElementCleaner(".ads", discardLogger())
	pc.Bag.AdvancePageState(types.PageReady)

	err := ec.Run(context.Background(), pc)
	require.Error(t, err, "expected an error when every candidate failed to remove")
}
