package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vibeforge/vibeforge/internal/core"
)

// Epoch is the default start time of a StepClock
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// StepClock is a manually driven clock.
type StepClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStepClock returns a clock frozen at start (Epoch when zero)
func NewStepClock(start time.Time) *StepClock {
	if start.IsZero() {
		start = Epoch
	}
	return &StepClock{now: start}
}

// Now returns the frozen time
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SwitchCaller is an identity provider whose caller is set by the test.
// An empty caller resolves to the anonymous identity.
type SwitchCaller struct {
	mu      sync.Mutex
	current core.Identity
}

// NewSwitchCaller starts out calling as id
func NewSwitchCaller(id core.Identity) *SwitchCaller {
	return &SwitchCaller{current: id}
}

// As switches the caller for subsequent calls
func (s *SwitchCaller) As(id core.Identity) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

// Caller returns the current caller
func (s *SwitchCaller) Caller(context.Context) core.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == "" {
		return core.AnonymousIdentity
	}
	return s.current
}
