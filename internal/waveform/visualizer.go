// SPDX-License-Identifier: MIT
/*
Package waveform renders a live audio stream as a bar spectrum or a
scrolling history onto a Surface, once per animation tick.

A Visualizer is Idle until activated. Activation binds an audio source,
either a stream supplied by the embedder (borrowed) or one acquired
through the Acquirer (owned), and builds an analyser over it.
Deactivation tears both down again; owned streams are closed, borrowed
streams are left running. Failures never reach the caller: they are
logged, kept for Err and rendered as "no live data".
*/
package waveform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dentvoice/internal/analysis"
	"dentvoice/internal/audio"
	"dentvoice/internal/config"
	"dentvoice/internal/frame"
	applog "dentvoice/internal/log"

	"github.com/lucasb-eyer/go-colorful"
)

// State is the capture state of a visualizer.
type State int

const (
	Idle State = iota
	// Acquiring is the part of Capturing spent waiting for an owned
	// stream.
	Acquiring
	Capturing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Capturing:
		return "capturing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Analyser yields byte frequency data for the bound source.
type Analyser interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []uint8) int
	Close() error
}

// AnalyserFactory binds a new analyser to stream.
type AnalyserFactory func(stream audio.Stream) (Analyser, error)

// NewAnalyserFactory builds analysis.Analysers with cfg.
func NewAnalyserFactory(cfg config.AnalyserConfig) AnalyserFactory {
	return func(stream audio.Stream) (Analyser, error) {
		a, err := analysis.NewAnalyser(stream, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

// Deps are the visualizer's collaborators. Only Scheduler is required.
type Deps struct {
	Scheduler frame.Scheduler
	// Clock drives the processing wave. Defaults to the system clock.
	Clock frame.Clock
	// Acquire opens an owned stream when none is supplied. Without it,
	// activation without a stream fails as DeviceUnavailable.
	Acquire Acquirer
	// NewAnalyser defaults to an analyser with the built-in config.
	NewAnalyser AnalyserFactory
	// Sink, when set, receives every frame.
	Sink FrameSink
}

// Visualizer is safe for concurrent use. Ticks, runtime inputs and
// acquisition completions are serialized on one mutex.
type Visualizer struct {
	surface  Surface
	opts     Options
	deps     Deps
	barCount int

	mu         sync.Mutex
	mounted    bool
	closed     bool
	active     bool
	processing bool
	supplied   audio.Stream
	source     Source
	analyser   Analyser
	acquiring  bool
	cancelAcq  context.CancelFunc
	generation uint64
	err        error

	tick    frame.Handle
	tickID  uint64
	seq     uint64
	raw     []uint8
	bars    []uint8
	history *History
	frame   Frame
}

// New returns an idle, unmounted visualizer drawing onto surface.
func New(surface Surface, opts Options, deps Deps) (*Visualizer, error) {
	if surface == nil {
		return nil, errors.New("waveform: nil surface")
	}
	if deps.Scheduler == nil {
		return nil, errors.New("waveform: nil scheduler")
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("waveform: %w", err)
	}
	if deps.Clock == nil {
		deps.Clock = frame.SystemClock{}
	}
	if deps.NewAnalyser == nil {
		deps.NewAnalyser = NewAnalyserFactory(config.NewConfig().Analyser)
	}

	barCount := opts.BarCount(surface.Width())
	return &Visualizer{
		surface:  surface,
		opts:     opts,
		deps:     deps,
		barCount: barCount,
		bars:     make([]uint8, barCount),
		history:  NewHistory(opts.HistorySize),
	}, nil
}

// BarCount is floor(surface width / (barWidth + barGap)).
func (v *Visualizer) BarCount() int {
	return v.barCount
}

// Options returns the construction options.
func (v *Visualizer) Options() Options {
	return v.opts
}

// Mount draws the first frame and starts the tick loop.
func (v *Visualizer) Mount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mounted || v.closed {
		return
	}
	v.mounted = true
	v.restartLocked()
}

// SetActive starts or stops capture.
func (v *Visualizer) SetActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.active == active {
		return
	}
	v.active = active
	if active {
		v.activateLocked()
	} else {
		v.deactivateLocked()
	}
	v.restartLocked()
}

// SetProcessing toggles the processing look. It never starts capture.
func (v *Visualizer) SetProcessing(processing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.processing == processing {
		return
	}
	v.processing = processing
	v.restartLocked()
}

// SetAudioStream supplies a borrowed stream, or nil to have the
// visualizer acquire its own. While active the source is rebound.
func (v *Visualizer) SetAudioStream(stream audio.Stream) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.supplied == stream {
		return
	}
	v.supplied = stream
	if v.active {
		v.deactivateLocked()
		v.activateLocked()
		v.restartLocked()
	}
}

// Close cancels the pending tick and releases everything the visualizer
// holds, whatever its state. It is idempotent.
func (v *Visualizer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.cancelTickLocked()
	v.deactivateLocked()
	v.active = false
	v.processing = false
}

// State reports Idle, Acquiring or Capturing.
func (v *Visualizer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *Visualizer) stateLocked() State {
	switch {
	case !v.active:
		return Idle
	case v.acquiring:
		return Acquiring
	default:
		return Capturing
	}
}

// Active reports the active input.
func (v *Visualizer) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// Processing reports the processing input.
func (v *Visualizer) Processing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.processing
}

// HasAnalyser reports whether live data is available.
func (v *Visualizer) HasAnalyser() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.analyser != nil
}

// Err returns the failure of the current activation, if any. It is
// cleared on the next activation.
func (v *Visualizer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// History returns copies of the scrolling snapshots, oldest first.
func (v *Visualizer) History() [][]uint8 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.history.Snapshots()
}

// --- Lifecycle ---

// activateLocked binds a source. A supplied stream is borrowed at once;
// otherwise acquisition runs on its own goroutine.
func (v *Visualizer) activateLocked() {
	v.err = nil
	v.generation++

	if v.supplied != nil {
		v.bindLocked(Borrowed{S: v.supplied})
		return
	}
	if v.deps.Acquire == nil {
		v.failLocked(fmt.Errorf("%w: no stream supplied and no acquirer", audio.ErrDeviceUnavailable))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	v.cancelAcq = cancel
	v.acquiring = true
	go v.acquire(ctx, v.generation)
}

func (v *Visualizer) acquire(ctx context.Context, generation uint64) {
	stream, err := v.deps.Acquire(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if generation != v.generation || v.closed {
		// Deactivated meanwhile; nobody will release this stream.
		if stream != nil {
			if cerr := stream.Close(); cerr != nil {
				applog.Warnf("Waveform: releasing late stream: %v", cerr)
			}
			applog.Debugf("Waveform: released stream acquired after deactivation")
		}
		return
	}

	v.acquiring = false
	v.cancelAcq = nil
	if err != nil {
		if stream != nil {
			if cerr := stream.Close(); cerr != nil {
				applog.Warnf("Waveform: releasing stream from failed acquisition: %v", cerr)
			}
		}
		v.failLocked(err)
		return
	}
	if stream == nil {
		v.failLocked(fmt.Errorf("%w: acquirer returned no stream", audio.ErrDeviceUnavailable))
		return
	}
	v.bindLocked(Owned{S: stream})
}

// bindLocked builds the analyser for src. On failure an owned source is
// released immediately.
func (v *Visualizer) bindLocked(src Source) {
	analyser, err := v.deps.NewAnalyser(src.Stream())
	if err != nil {
		if !errors.Is(err, ErrContextCreationFailed) {
			err = fmt.Errorf("%w: %v", ErrContextCreationFailed, err)
		}
		v.failLocked(err)
		if rerr := release(src); rerr != nil {
			applog.Warnf("Waveform: releasing source: %v", rerr)
		}
		return
	}

	v.source = src
	v.analyser = analyser
	if n := analyser.FrequencyBinCount(); cap(v.raw) < n {
		v.raw = make([]uint8, n)
	}
	v.raw = v.raw[:analyser.FrequencyBinCount()]
	applog.Debugf("Waveform: capturing from %T (%d bins, %d bars)", src, len(v.raw), v.barCount)
}

func (v *Visualizer) failLocked(err error) {
	werr := classify(err)
	v.err = werr
	applog.Errorf("Waveform: no live audio (%s): %v", werr.Kind, err)
}

// deactivateLocked cancels acquisition and releases the analyser and an
// owned source. The history is cleared.
func (v *Visualizer) deactivateLocked() {
	v.generation++
	if v.cancelAcq != nil {
		v.cancelAcq()
		v.cancelAcq = nil
	}
	v.acquiring = false

	if v.analyser != nil {
		if err := v.analyser.Close(); err != nil {
			applog.Warnf("Waveform: closing analyser: %v", err)
		}
		v.analyser = nil
	}
	if err := release(v.source); err != nil {
		applog.Warnf("Waveform: releasing source: %v", err)
	}
	v.source = nil
	v.history.Reset()
}

// --- Ticks ---

func (v *Visualizer) cancelTickLocked() {
	v.tickID++
	if v.tick != nil {
		v.tick.Cancel()
		v.tick = nil
	}
}

// scheduleLocked queues the next tick. A callback that already fired
// when its handle was cancelled sees a stale id and does nothing.
func (v *Visualizer) scheduleLocked() {
	v.tickID++
	id := v.tickID
	v.tick = v.deps.Scheduler.Schedule(func(now time.Time) { v.onTick(id, now) })
}

// restartLocked replaces the pending tick with an immediate draw
// followed by a fresh schedule.
func (v *Visualizer) restartLocked() {
	if !v.mounted || v.closed {
		return
	}
	v.cancelTickLocked()
	v.drawLocked(v.deps.Clock.Now())
	v.scheduleLocked()
}

func (v *Visualizer) onTick(id uint64, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || id != v.tickID {
		return
	}
	v.tick = nil
	v.drawLocked(now)
	v.scheduleLocked()
}

// drawLocked renders one frame.
func (v *Visualizer) drawLocked(now time.Time) {
	v.surface.Clear(Background, BackgroundAlpha)

	f := &v.frame
	v.seq++
	*f = Frame{
		Seq:        v.seq,
		Time:       now,
		State:      v.stateLocked(),
		Processing: v.processing,
		Mode:       v.opts.Mode,
		Color:      v.barColorLocked(),
	}

	switch {
	case !v.active && !v.processing:
	case v.analyser != nil:
		n := v.analyser.ByteFrequencyData(v.raw)
		resample(v.bars, v.raw[:n])
		if v.opts.Mode == Scrolling {
			v.history.Push(v.bars)
			v.drawScrolling()
		} else {
			v.drawStatic(v.bars, v.opts.FadeEdges)
		}
		f.Values = v.bars
	case v.processing:
		v.drawSynthetic(now)
		f.Synthetic = true
		f.Color = ProcessingColor
		f.Values = v.bars
	}

	if v.deps.Sink != nil {
		v.deps.Sink.Publish(f)
	}
}

func (v *Visualizer) barColorLocked() colorful.Color {
	if v.processing {
		return ProcessingColor
	}
	return v.opts.BarColor
}
