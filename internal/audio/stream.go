// SPDX-License-Identifier: MIT
/*
Package audio provides the live audio streams consumed by the waveform
visualizer and the dictation recorder:
  - Microphone captures from a PortAudio input device.
  - FileStream replays a decoded WAV file, stepped or in real time.
  - Recorder encodes any stream to a WAV file.

A Stream fans each mono float32 buffer out to its subscribers from the
capture goroutine. Subscribers share the buffer read-only and must copy
anything they keep past the callback.
*/
package audio

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrPermissionDenied reports that the host refused microphone access.
	ErrPermissionDenied = errors.New("audio: microphone permission denied")
	// ErrDeviceUnavailable reports a missing or busy input device.
	ErrDeviceUnavailable = errors.New("audio: input device unavailable")
	// ErrStreamClosed is returned when operating on a closed stream.
	ErrStreamClosed = errors.New("audio: stream closed")
)

// Stream is a live mono audio source with any number of read-only
// subscribers. Only the owner of a stream calls Close.
type Stream interface {
	// SampleRate reports the stream's sample rate in Hz.
	SampleRate() float64
	// Subscribe registers fn for every captured buffer. The returned
	// function removes the subscription and is idempotent.
	Subscribe(fn func(samples []float32)) (unsubscribe func())
	// Close stops the stream and drops all subscribers.
	Close() error
}

type subscriber struct {
	id uint64
	fn func([]float32)
}

// Fanout distributes buffers to subscribers. Publish is lock free and does
// not allocate; Subscribe and unsubscribe copy the subscriber list.
type Fanout struct {
	mu     sync.Mutex
	nextID uint64
	closed bool
	subs   atomic.Pointer[[]subscriber]
}

// Subscribe adds fn. Subscribing to a closed fanout is a no-op.
func (f *Fanout) Subscribe(fn func([]float32)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return func() {}
	}

	f.nextID++
	id := f.nextID
	var next []subscriber
	if cur := f.subs.Load(); cur != nil {
		next = append(next, (*cur)...)
	}
	next = append(next, subscriber{id: id, fn: fn})
	f.subs.Store(&next)

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Fanout) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.subs.Load()
	if cur == nil {
		return
	}
	next := make([]subscriber, 0, len(*cur))
	for _, s := range *cur {
		if s.id != id {
			next = append(next, s)
		}
	}
	f.subs.Store(&next)
}

// Publish hands samples to every subscriber in subscription order.
func (f *Fanout) Publish(samples []float32) {
	cur := f.subs.Load()
	if cur == nil {
		return
	}
	for _, s := range *cur {
		s.fn(samples)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *Fanout) Subscribers() int {
	cur := f.subs.Load()
	if cur == nil {
		return 0
	}
	return len(*cur)
}

// Shutdown drops all subscribers and rejects new ones. It reports whether
// this call performed the shutdown.
func (f *Fanout) Shutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.closed = true
	f.subs.Store(nil)
	return true
}
