// SPDX-License-Identifier: MIT
package frame

import (
	"sync"
	"time"
)

// Manual is a Scheduler and Clock that only advances when Step is called.
// It is safe for concurrent use.
type Manual struct {
	mu       sync.Mutex
	now      time.Time
	interval time.Duration
	pending  []*manualHandle
}

// NewManual starts a manual clock at start, advancing by interval per Step.
func NewManual(start time.Time, interval time.Duration) *Manual {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Manual{now: start, interval: interval}
}

type manualHandle struct {
	m         *Manual
	fn        Func
	cancelled bool
}

func (h *manualHandle) Cancel() {
	h.m.mu.Lock()
	h.cancelled = true
	h.m.mu.Unlock()
}

// Schedule queues fn for the next Step.
func (m *Manual) Schedule(fn Func) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &manualHandle{m: m, fn: fn}
	m.pending = append(m.pending, h)
	return h
}

// Now returns the manual clock time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward without firing callbacks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Pending counts the scheduled, not yet cancelled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.pending {
		if !h.cancelled {
			n++
		}
	}
	return n
}

// Step advances the clock by one interval and fires every callback that
// was outstanding before the call. Callbacks scheduled while stepping run
// on the next Step. It returns the number of callbacks fired.
func (m *Manual) Step() int {
	m.mu.Lock()
	m.now = m.now.Add(m.interval)
	now := m.now
	due := m.pending
	m.pending = nil
	m.mu.Unlock()

	fired := 0
	for _, h := range due {
		m.mu.Lock()
		cancelled := h.cancelled
		h.cancelled = true
		m.mu.Unlock()
		if cancelled {
			continue
		}
		h.fn(now)
		fired++
	}
	return fired
}

// StepN calls Step n times and returns the total number of callbacks fired.
func (m *Manual) StepN(n int) int {
	total := 0
	for range n {
		total += m.Step()
	}
	return total
}
