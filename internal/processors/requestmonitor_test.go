package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

func TestRequestMonitorDetectGatesOnPageState(t *testing.T) {
	pc := pagecontext.New(types.URL{ID: "u1"}, browser.NewFakeTab())
	rm := NewRequestMonitor(100, 10, nil, discardLogger())

	state, _ := rm.Detect(context.Background(), pc)
	require.Equal(t, types.StateWaiting, state, "expected WAITING while loading")

	pc.Bag.AdvancePageState(types.PageReady)
	state, _ = rm.Detect(context.Background(), pc)
	require.Equal(t, types.StateRunning, state, "expected RUNNING once ready")

	pc.Bag.AdvancePageState(types.PageCompleted)
	state, _ = rm.Detect(context.Background(), pc)
	require.Equal(t, types.StateCompleted, state, "expected COMPLETED once page completed")
}

func TestRequestMonitorAutoBlocksOverThreshold(t *testing.T) {
	tab := browser.NewFakeTab()
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	rm := NewRequestMonitor(2, 2, nil, discardLogger())

	pc.Bag.IncrSlow("https://cdn/x")
	pc.Bag.IncrSlow("https://cdn/x")

	require.NoError(t, rm.Run(context.Background(), pc))

	patterns := pc.Bag.BlockPatterns()
	require.Len(t, patterns, 1, "expected exactly one installed pattern")

	action := tab.FireRequest(browser.RequestInfo{URL: "https://cdn/x/y"})
	require.Equal(t, browser.ActionAbort, action, "expected subsequent request under the blocked prefix to be aborted")
}

func TestRequestMonitorAbortsPendingMatchingRequests(t *testing.T) {
	tab := browser.NewFakeTab()
	pc := pagecontext.New(types.URL{ID: "u1"}, tab)
	rm := NewRequestMonitor(100, 100, []string{"^https://ads/.*"}, discardLogger())

	pc.Bag.RecordRequestStart("r1", "https://ads/banner")

	require.NoError(t, rm.Run(context.Background(), pc))

	require.Equal(t, []string{"r1"}, tab.Aborted, "expected request r1 to be aborted")
}
