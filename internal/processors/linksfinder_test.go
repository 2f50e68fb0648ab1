package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-labs/pageforge/internal/browser"
	fr "github.com/kestrel-labs/pageforge/internal/frontier"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

func TestLinksFinderRunsOncePerReadyAndCompleted(t *testing.T) {
	f := fr.New(false)
	tab := browser.NewFakeTab()
	tab.EvalFunc = func(js string, args ...any) (any, error) { return []any{}, nil }
	pc := pagecontext.New(types.URL{ID: "u1", URL: "https://site/a/"}, tab)
	lf := NewLinksFinder("#content", nil, 2, []string{"https://site/a/"}, f, discardLogger())

	pc.Bag.AdvancePageState(types.PageReady)
	state, _ := lf.Detect(context.Background(), pc)
	require.Equal(t, types.StateReady, state, "expected READY at page_state=ready")
	lf.Run(context.Background(), pc)

	state, _ = lf.Detect(context.Background(), pc)
	require.Equal(t, types.StateWaiting, state, "expected WAITING between passes")

	pc.Bag.AdvancePageState(types.PageCompleted)
	state, _ = lf.Detect(context.Background(), pc)
	require.Equal(t, types.StateReady, state, "expected READY at page_state=completed")
	lf.Run(context.Background(), pc)

	state, _ = lf.Detect(context.Background(), pc)
	require.Equal(t, types.StateCompleted, state, "expected COMPLETED after both passes")
}

func TestLinksFinderRespectsDepthAndPatterns(t *testing.T) {
	f := fr.New(false)
	tab := browser.NewFakeTab()
	tab.Navigate(context.Background(), "https://site/a/", 0)
	hrefs := []any{"b/", "b/c/", "b/c/d/", "https://other.example/x"}
	tab.EvalFunc = func(js string, args ...any) (any, error) { return hrefs, nil }

	pc := pagecontext.New(types.URL{ID: "u1", URL: "https://site/a/"}, tab)
	lf := NewLinksFinder("#content", []string{`^https://site/a/.*`}, 2, []string{"https://site/a/"}, f, discardLogger())

	pc.Bag.AdvancePageState(types.PageReady)
	require.NoError(t, lf.Run(context.Background(), pc))

	snap := f.Snapshot()
	total := 0
	for _, n := range snap {
		total += n
	}
	require.Equal(t, 2, total, "expected 2 discovered urls within depth/pattern bounds, snapshot=%v", snap)

	_, ok := f.ByURL("https://site/a/b/c/d/")
	require.False(t, ok, "depth-3 url should have been rejected")
	_, ok = f.ByURL("https://other.example/x")
	require.False(t, ok, "out-of-pattern url should have been rejected")
}

func TestLinksFinderSkipsEvalWhenSnapshotHasNoAnchors(t *testing.T) {
	f := fr.New(false)
	tab := browser.NewFakeTab()
	tab.Navigate(context.Background(), "https://site/a/", 0)
	tab.HTMLSnapshot = "<html><body><p>no links on this page</p></body></html>"
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		t.Fatalf("expected the snapshot pre-check to skip the eval script")
		return nil, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1", URL: "https://site/a/"}, tab)
	lf := NewLinksFinder("#content", []string{".*"}, 5, []string{"https://site/a/"}, f, discardLogger())

	pc.Bag.AdvancePageState(types.PageReady)
	require.NoError(t, lf.Run(context.Background(), pc))
	require.Zero(t, f.Len(), "expected no discovered urls")
}

func TestLinksFinderSkipsNonHTTPSchemes(t *testing.T) {
	f := fr.New(false)
	tab := browser.NewFakeTab()
	tab.Navigate(context.Background(), "https://site/a/", 0)
	tab.EvalFunc = func(js string, args ...any) (any, error) {
		return []any{"mailto:test@example.com", "javascript:void(0)"}, nil
	}
	pc := pagecontext.New(types.URL{ID: "u1", URL: "https://site/a/"}, tab)
	lf := NewLinksFinder("#content", []string{".*"}, 5, []string{"https://site/a/"}, f, discardLogger())

	pc.Bag.AdvancePageState(types.PageReady)
	lf.Run(context.Background(), pc)

	require.Zero(t, f.Len(), "expected non-http(s) schemes to be rejected")
}
