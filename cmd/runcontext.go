package cmd

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunContext identifies one orchestrator run. It is threaded through every
// component call so trace events written from any step correlate back to the
// run and to a monotonic step number.
type RunContext struct {
	RunID     string
	StartedAt time.Time

	step atomic.Int64
}

// NewRunContext mints a run context with a ULID run id.
func NewRunContext() *RunContext {
	now := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0) //nolint:gosec // run ids, not secrets
	return &RunContext{
		RunID:     ulid.MustNew(ulid.Timestamp(now), entropy).String(),
		StartedAt: now,
	}
}

// NextStep returns the next step number for trace correlation. Numbers are
// unique and increasing within a run; gaps after a failed date are expected
// and useful when reconstructing where a run stopped.
func (rc *RunContext) NextStep() int64 {
	return rc.step.Add(1)
}

// Elapsed reports how long the run has been going.
func (rc *RunContext) Elapsed() time.Duration {
	return time.Since(rc.StartedAt)
}
