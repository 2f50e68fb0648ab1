package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

func TestContentFinderWaitsForTriggerState(t *testing.T) {
	tab := browser.NewFakeTab()
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	cf := NewContentFinder("#main", nil, discardLogger())

	state, err := cf.Detect(context.Background(), pc)
	require.NoError(t, err)
	require.Equal(t, types.StateWaiting, state, "expected WAITING before a trigger state")
}

func TestContentFinderNoMatchIsCancelled(t *testing.T) {
	tab := browser.NewFakeTab()
	tab.HasSelector["#main"] = false
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	cf := NewContentFinder("#main", nil, discardLogger())

	pc.Bag.AdvancePageState(types.PageReady)
	state, err := cf.Detect(context.Background(), pc)
	require.NoError(t, err)
	require.Equal(t, types.StateCancelled, state, "expected CANCELLED when the selector never matches")
}

func TestContentFinderIsolatesContentOnSuccess(t *testing.T) {
	tab := browser.NewFakeTab()
	tab.HasSelector["#main"] = true
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		return map[string]any{"ok": true, "removed": float64(5), "length": float64(1200)}, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	cf := NewContentFinder("#main", nil, discardLogger())
	pc.Bag.AdvancePageState(types.PageReady)

	state, err := cf.Detect(context.Background(), pc)
	require.NoError(t, err)
	require.Equal(t, types.StateReady, state, "expected READY when the selector matches")

	require.NoError(t, cf.Run(context.Background(), pc))
	require.True(t, pc.Bag.CoreContentProcessed())
	require.Equal(t, 1200, pc.Bag.ContentLength())

	state, _ = cf.Detect(context.Background(), pc)
	require.Equal(t, types.StateCompleted, state, "expected COMPLETED after a successful run")
}

func TestContentFinderRunFailureWhenSelectorVanishes(t *testing.T) {
	tab := browser.NewFakeTab()
	tab.HasSelector["#main"] = true
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		return map[string]any{"ok": false, "removed": 0}, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	cf := NewContentFinder("#main", nil, discardLogger())
	pc.Bag.AdvancePageState(types.PageReady)

	err := cf.Run(context.Background(), pc)
	require.Error(t, err, "expected an error when the script reports ok=false")
}
