// SPDX-License-Identifier: MIT
package tui

import (
	"sync"
	"time"

	"dentvoice/internal/frame"

	tea "github.com/charmbracelet/bubbletea"
)

// FrameMsg delivers one scheduled frame to the program's update loop.
type FrameMsg struct {
	ID   uint64
	Time time.Time
}

// wakeMsg reports that frames were scheduled outside the update loop.
type wakeMsg struct{}

// Scheduler is a frame.Scheduler whose frames arrive as FrameMsgs, so
// visualizer ticks run on the bubbletea update goroutine. Every Schedule
// call becomes one tea.Tick.
type Scheduler struct {
	interval time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]frame.Func
	queued  []uint64

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

var _ frame.Scheduler = (*Scheduler)(nil)

// NewScheduler returns a scheduler firing fps frames per second.
// Non-positive rates fall back to 60.
func NewScheduler(fps int) *Scheduler {
	if fps <= 0 {
		fps = 60
	}
	return &Scheduler{
		interval: time.Second / time.Duration(fps),
		pending:  make(map[uint64]frame.Func),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Schedule queues fn. It is turned into a tea.Tick by the next Cmds call.
func (s *Scheduler) Schedule(fn frame.Func) frame.Handle {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pending[id] = fn
	s.queued = append(s.queued, id)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return &teaHandle{s: s, id: id}
}

type teaHandle struct {
	s  *Scheduler
	id uint64
}

func (h *teaHandle) Cancel() {
	h.s.mu.Lock()
	delete(h.s.pending, h.id)
	h.s.mu.Unlock()
}

// Cmds turns every frame queued since the last call into a tea.Tick.
func (s *Scheduler) Cmds() tea.Cmd {
	s.mu.Lock()
	queued := s.queued
	s.queued = nil
	s.mu.Unlock()

	if len(queued) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, len(queued))
	for i, id := range queued {
		cmds[i] = tea.Tick(s.interval, func(t time.Time) tea.Msg {
			return FrameMsg{ID: id, Time: t}
		})
	}
	return tea.Batch(cmds...)
}

// Wait blocks until a frame is scheduled from outside the update loop.
// It returns nil once the scheduler is closed.
func (s *Scheduler) Wait() tea.Cmd {
	return func() tea.Msg {
		// Closed wins over a buffered wake.
		select {
		case <-s.done:
			return nil
		default:
		}
		select {
		case <-s.wake:
			return wakeMsg{}
		case <-s.done:
			return nil
		}
	}
}

// Fire runs the frame named by msg unless it was cancelled. It reports
// whether a callback ran.
func (s *Scheduler) Fire(msg FrameMsg) bool {
	s.mu.Lock()
	fn, ok := s.pending[msg.ID]
	delete(s.pending, msg.ID)
	s.mu.Unlock()
	if ok {
		fn(msg.Time)
	}
	return ok
}

// Pending counts scheduled frames that have neither fired nor been
// cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close releases a pending Wait.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.done)
		select {
		case <-s.wake:
		default:
		}
	})
}
