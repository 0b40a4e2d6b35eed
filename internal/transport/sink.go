// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	applog "dentvoice/internal/log"
	"dentvoice/internal/waveform"
)

// Sink adapts transports to waveform.FrameSink. Frames are converted to
// FrameMessages for transports and forwarded as-is to nested sinks.
type Sink struct {
	mu         sync.RWMutex
	transports []Transport
	sinks      []waveform.FrameSink
	sendErrors atomic.Uint64
}

var _ waveform.FrameSink = (*Sink)(nil)

// NewSink publishes to every transport given.
func NewSink(transports ...Transport) *Sink {
	return &Sink{transports: transports}
}

// AddTransport registers another transport.
func (s *Sink) AddTransport(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transports = append(s.transports, t)
}

// AddSink registers a nested frame sink, such as a UDP publisher.
func (s *Sink) AddSink(fs waveform.FrameSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, fs)
}

// Len counts transports and nested sinks.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transports) + len(s.sinks)
}

// Publish implements waveform.FrameSink.
func (s *Sink) Publish(f *waveform.Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fs := range s.sinks {
		fs.Publish(f)
	}
	if len(s.transports) == 0 {
		return
	}
	msg := NewFrameMessage(f)
	for _, t := range s.transports {
		if err := t.Send(msg); err != nil {
			// Frames arrive at the frame rate; log the first failure only.
			if s.sendErrors.Add(1) == 1 {
				applog.Warnf("Transport: Error sending frame %d: %v", f.Seq, err)
			}
		}
	}
}

// SendErrors counts failed sends since creation.
func (s *Sink) SendErrors() uint64 {
	return s.sendErrors.Load()
}

// Close closes every transport and nested sink that is an io.Closer.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, t := range s.transports {
		errs = append(errs, t.Close())
	}
	for _, fs := range s.sinks {
		if c, ok := fs.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	s.transports, s.sinks = nil, nil
	return errors.Join(errs...)
}
