// SPDX-License-Identifier: MIT
/*
Package frame provides the animation clock that drives per-frame
rendering. A Scheduler runs one callback per Schedule call, one frame
interval later, and hands back a Handle that cancels it. Callers that
want a continuous loop re-schedule from inside the callback, so there is
never more than one outstanding tick per loop.

Two implementations are provided:
  - Ticker fires on the wall clock using time.AfterFunc.
  - Manual fires only when Step is called, for tests and offline
    rendering.
*/
package frame

import (
	"sync"
	"time"
)

// Func is a frame callback. now is the frame timestamp.
type Func func(now time.Time)

// Handle cancels a scheduled frame. Cancel is idempotent and safe to call
// after the frame has fired.
type Handle interface {
	Cancel()
}

// Scheduler schedules frame callbacks.
type Scheduler interface {
	Schedule(fn Func) Handle
}

// Clock reports the current frame time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Ticker schedules callbacks on the wall clock at a fixed frame interval.
type Ticker struct {
	interval time.Duration
}

// NewTicker returns a Ticker firing fps frames per second. Non-positive
// rates fall back to 60.
func NewTicker(fps int) *Ticker {
	if fps <= 0 {
		fps = 60
	}
	return &Ticker{interval: time.Second / time.Duration(fps)}
}

// Interval is the delay between a Schedule call and its callback.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Schedule runs fn once after one frame interval on its own goroutine.
func (t *Ticker) Schedule(fn Func) Handle {
	h := &timerHandle{}
	h.timer = time.AfterFunc(t.interval, func() {
		h.mu.Lock()
		cancelled := h.cancelled
		h.mu.Unlock()
		if !cancelled {
			fn(time.Now())
		}
	})
	return h
}

type timerHandle struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

func (h *timerHandle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.timer.Stop()
}
