// SPDX-License-Identifier: MIT
package waveform

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dentvoice/internal/audio"
	"dentvoice/internal/frame"

	"github.com/lucasb-eyer/go-colorful"
)

type rect struct {
	X, Y, W, H float64
	Color      colorful.Color
	Alpha      float64
}

// fakeSurface records the rectangles drawn since the last Clear.
type fakeSurface struct {
	mu     sync.Mutex
	w, h   int
	clears int
	rects  []rect
}

func newFakeSurface(w, h int) *fakeSurface { return &fakeSurface{w: w, h: h} }

func (s *fakeSurface) Width() int  { return s.w }
func (s *fakeSurface) Height() int { return s.h }

func (s *fakeSurface) Clear(c colorful.Color, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.rects = s.rects[:0]
}

func (s *fakeSurface) FillRect(x, y, w, h float64, c colorful.Color, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rects = append(s.rects, rect{X: x, Y: y, W: w, H: h, Color: c, Alpha: alpha})
}

func (s *fakeSurface) drawn() []rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rect(nil), s.rects...)
}

func (s *fakeSurface) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// fakeStream counts Close calls.
type fakeStream struct {
	audio.Fanout
	closes atomic.Int32
}

func (s *fakeStream) SampleRate() float64 { return 48000 }
func (s *fakeStream) Close() error {
	s.closes.Add(1)
	s.Shutdown()
	return nil
}

// fakeAnalyser fills every bin through fill, or with a constant level.
type fakeAnalyser struct {
	bins   int
	level  atomic.Int32
	fill   func(dst []uint8)
	closes atomic.Int32
}

func (a *fakeAnalyser) FrequencyBinCount() int { return a.bins }
func (a *fakeAnalyser) ByteFrequencyData(dst []uint8) int {
	n := min(len(dst), a.bins)
	if a.fill != nil {
		a.fill(dst[:n])
		return n
	}
	for i := range n {
		dst[i] = uint8(a.level.Load())
	}
	return n
}
func (a *fakeAnalyser) Close() error {
	a.closes.Add(1)
	return nil
}

// analyserRecorder hands out fakeAnalysers and remembers them.
type analyserRecorder struct {
	mu    sync.Mutex
	made  []*fakeAnalyser
	bins  int
	level uint8
	err   error
	fill  func(dst []uint8)
}

func (r *analyserRecorder) factory(audio.Stream) (Analyser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	a := &fakeAnalyser{bins: r.bins, fill: r.fill}
	a.level.Store(int32(r.level))
	r.made = append(r.made, a)
	return a, nil
}

func (r *analyserRecorder) all() []*fakeAnalyser {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeAnalyser(nil), r.made...)
}

// frameRecorder is a FrameSink keeping copies of published frames.
type frameRecorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *frameRecorder) Publish(f *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *f
	c.Values = append([]uint8(nil), f.Values...)
	r.frames = append(r.frames, c)
}

func (r *frameRecorder) last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func acquireStream(s audio.Stream, err error) Acquirer {
	return func(context.Context) (audio.Stream, error) { return s, err }
}

var testStart = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type harness struct {
	surface  *fakeSurface
	clock    *frame.Manual
	analyser *analyserRecorder
	sink     *frameRecorder
	v        *Visualizer
}

func newHarness(opts Options, width int, acquire Acquirer) *harness {
	h := &harness{
		surface:  newFakeSurface(width, opts.Height),
		clock:    frame.NewManual(testStart, time.Second/60),
		analyser: &analyserRecorder{bins: 128, level: 255},
		sink:     &frameRecorder{},
	}
	v, err := New(h.surface, opts, Deps{
		Scheduler:   h.clock,
		Clock:       h.clock,
		Acquire:     acquire,
		NewAnalyser: h.analyser.factory,
		Sink:        h.sink,
	})
	if err != nil {
		panic(err)
	}
	h.v = v
	return h
}
