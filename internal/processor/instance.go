// Package processor implements C3: the detect/run/finish state machine
// that the Tab Scheduler (internal/scheduler) drives across a Page
// Context's registered processors. The Processor interface itself lives in
// internal/pagecontext (which owns the registry); this package adds the
// stateful wrapper that enforces the WAITING/READY/RUNNING/COMPLETED/
// CANCELLED transition rules so concrete processors (internal/processors)
// stay pure implementations of detect/run/finish with no bookkeeping of
// their own.
//
// The scheduler, not Instance, decides transitions between WAITING,
// READY, and RUNNING: detect's return value is advisory, and a
// processor that interleaves work across ticks (e.g. PageMonitor) is
// re-detected every tick it stays RUNNING so the scheduler can tell a
// genuinely still-working processor from one that has quietly finished.
// Instance only enforces the parts that are true invariants regardless of
// that per-tick bookkeeping: no call of any kind once FINISHED or
// CANCELLED, and Finish is legal exactly once and only from COMPLETED.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// Instance wraps a pagecontext.Processor with the mutable state a processor
// instance carries across ticks, plus the once-only Finish guard.
type Instance struct {
	Processor pagecontext.Processor
	State     types.ProcessorState

	finishCalled bool
}

// NewInstance wraps p in its initial WAITING state.
func NewInstance(p pagecontext.Processor) *Instance {
	return &Instance{Processor: p, State: types.StateWaiting}
}

func (i *Instance) Name() string  { return i.Processor.Name() }
func (i *Instance) Priority() int { return i.Processor.Priority() }

// Terminal reports whether the instance accepts no further calls.
func (i *Instance) Terminal() bool { return i.State.Terminal() }

// Detect calls the wrapped processor's Detect under detectTimeout. A
// timeout is not an error: it is treated as WAITING for this tick, never
// terminal on its own.
func (i *Instance) Detect(ctx context.Context, pc *pagecontext.Context, detectTimeout time.Duration) (types.ProcessorState, error) {
	if i.Terminal() {
		return i.State, fmt.Errorf("detect called on terminal processor %q", i.Name())
	}

	dctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	type result struct {
		state types.ProcessorState
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := i.Processor.Detect(dctx, pc)
		done <- result{s, err}
	}()

	select {
	case r := <-done:
		return r.state, r.err
	case <-dctx.Done():
		return types.StateWaiting, nil
	}
}

// RunOnce invokes the wrapped processor's Run exactly once. It never
// advances a non-terminal state on success — the scheduler decides, via
// the next Detect call, whether the processor is done — but a returned
// error is always a processor run-exception: the instance
// moves to CANCELLED and the tab continues without it.
func (i *Instance) RunOnce(ctx context.Context, pc *pagecontext.Context) error {
	if i.Terminal() {
		return fmt.Errorf("run called on terminal processor %q", i.Name())
	}
	if err := i.Processor.Run(ctx, pc); err != nil {
		i.State = types.StateCancelled
		return err
	}
	return nil
}

// Cancel marks the instance CANCELLED, e.g. on detect reporting CANCELLED.
// A no-op if already terminal.
func (i *Instance) Cancel() {
	if !i.Terminal() {
		i.State = types.StateCancelled
	}
}

// Finish runs the one-shot cleanup. Only legal once, and only once the
// processor has reached COMPLETED.
func (i *Instance) Finish(ctx context.Context, pc *pagecontext.Context) error {
	if i.finishCalled {
		return fmt.Errorf("finish called twice on processor %q", i.Name())
	}
	if i.State != types.StateCompleted {
		return fmt.Errorf("finish called on processor %q in state %s, want completed", i.Name(), i.State)
	}
	i.finishCalled = true
	err := i.Processor.Finish(ctx, pc)
	i.State = types.StateFinished
	return err
}
