// Package retrygate implements C8: a single pure policy callback invoked
// once per Frontier drain with the current FAILED URLs, deciding whether
// the Tab Scheduler should promote them back to PENDING.
// The gate never performs the promotion itself — that stays the
// scheduler's job, matching scheduler.RetryGate's signature exactly.
package retrygate

import (
	"github.com/kestrel-labs/pageforge/internal/types"
)

// Policy is the shape scheduler.RetryGate expects.
type Policy func(failed []types.URL) bool

// Never never retries: every FAILED URL is terminal.
func Never() Policy {
	return func(failed []types.URL) bool { return false }
}

// Always retries on every drain that has at least one FAILED URL.
func Always() Policy {
	return func(failed []types.URL) bool { return len(failed) > 0 }
}

// MaxAttempts retries at most n times total across the run, tracked via a
// closure-local counter, applied at drain granularity instead of
// per-request.
func MaxAttempts(n int) Policy {
	attempts := 0
	return func(failed []types.URL) bool {
		if len(failed) == 0 || attempts >= n {
			return false
		}
		attempts++
		return true
	}
}

// Threshold retries only while the number of FAILED URLs at drain time is
// at or below maxFailed, giving up once too much of the run has gone bad.
func Threshold(maxFailed int) Policy {
	return func(failed []types.URL) bool {
		return len(failed) > 0 && len(failed) <= maxFailed
	}
}
