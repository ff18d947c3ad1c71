// Package testutil holds deterministic test doubles shared across
// package tests.
package testutil

import (
	"sync"
	"time"
)

// StepClock is a thread-safe deterministic wall clock for tests. Every
// call to Now advances it by a fixed step, so write timestamps are
// distinct, ordered, and reproducible across runs.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int
}

// NewStepClock creates a clock whose first Now() returns start and whose
// every subsequent call advances by step.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, step: step}
}

// Now returns the next timestamp.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls reports how many timestamps have been handed out.
func (c *StepClock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to its start. The next Now() returns start
// again, so a scenario can replay with identical timestamps.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
