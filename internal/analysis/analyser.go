// SPDX-License-Identifier: MIT
/*
Package analysis computes short-time frequency magnitudes over an audio
stream with the semantics of a Web Audio AnalyserNode: the latest fftSize
samples are windowed, transformed, normalized by the FFT size, smoothed
over time and mapped from decibels onto bytes.
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"dentvoice/internal/audio"
	"dentvoice/internal/config"
	applog "dentvoice/internal/log"
	"dentvoice/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrContextCreationFailed reports that no analyser could be built for a
// stream.
var ErrContextCreationFailed = errors.New("analysis: context creation failed")

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	ring      []float32    // Latest fftSize samples, indexed with mask.
	input     []float64    // Windowed input in chronological order.
	fftOutput []complex128 // FFT complex results, fftSize/2 + 1 values.
	smoothed  []float64    // Smoothed magnitudes carried across reads.
	window    []float64    // Pre-calculated window coefficients.
}

// Analyser subscribes to a stream and serves byte frequency data on
// demand. It is safe for concurrent use: the stream's capture goroutine
// writes samples while the render loop reads spectra.
type Analyser struct {
	fftCalculator *fourier.FFT
	fftSize       int
	mask          int
	sampleRate    float64
	smoothing     float64
	minDecibels   float64
	maxDecibels   float64

	mu          sync.Mutex
	workspace   fftWorkspace
	written     uint64
	unsubscribe func()
	closed      bool
}

// NewAnalyser binds an analyser to stream. Invalid parameters or a
// stream without a usable sample rate fail with ErrContextCreationFailed.
func NewAnalyser(stream audio.Stream, cfg config.AnalyserConfig) (*Analyser, error) {
	if stream == nil {
		return nil, fmt.Errorf("%w: nil stream", ErrContextCreationFailed)
	}
	if cfg.FFTSize < config.MinFFTSize || cfg.FFTSize > config.MaxFFTSize || !bitint.IsPowerOfTwo(cfg.FFTSize) {
		return nil, fmt.Errorf("%w: fft size must be a power of 2 in [%d, %d], got %d",
			ErrContextCreationFailed, config.MinFFTSize, config.MaxFFTSize, cfg.FFTSize)
	}
	if cfg.Smoothing < 0 || cfg.Smoothing > 1 {
		return nil, fmt.Errorf("%w: smoothing must be in [0, 1], got %g", ErrContextCreationFailed, cfg.Smoothing)
	}
	if cfg.MinDecibels >= cfg.MaxDecibels {
		return nil, fmt.Errorf("%w: min decibels %g must be below max decibels %g",
			ErrContextCreationFailed, cfg.MinDecibels, cfg.MaxDecibels)
	}
	sampleRate := stream.SampleRate()
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %f", ErrContextCreationFailed, sampleRate)
	}
	windowType, err := ParseWindowFunc(cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCreationFailed, err)
	}

	fftSize := cfg.FFTSize
	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)

	a := &Analyser{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		mask:          fftSize - 1,
		sampleRate:    sampleRate,
		smoothing:     cfg.Smoothing,
		minDecibels:   cfg.MinDecibels,
		maxDecibels:   cfg.MaxDecibels,
		workspace: fftWorkspace{
			ring:      make([]float32, fftSize),
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, fftSize/2+1),
			smoothed:  make([]float64, fftSize/2),
			window:    windowCoeffs,
		},
	}
	a.unsubscribe = stream.Subscribe(a.write)

	applog.Debugf("Analysis: Initializing Analyser (Size: %d, SampleRate: %.1f Hz, Window: %v, Smoothing: %.2f)",
		fftSize, sampleRate, windowType, cfg.Smoothing)
	return a, nil
}

// write copies captured samples into the ring. It runs on the capture
// goroutine and does not allocate.
func (a *Analyser) write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	// Only the newest fftSize samples can matter.
	if len(samples) > a.fftSize {
		a.written += uint64(len(samples) - a.fftSize)
		samples = samples[len(samples)-a.fftSize:]
	}
	for _, s := range samples {
		a.workspace.ring[int(a.written)&a.mask] = s
		a.written++
	}
}

// FFTSize returns the configured FFT size.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.fftSize / 2
}

// SampleRate returns the sample rate of the bound stream.
func (a *Analyser) SampleRate() float64 {
	return a.sampleRate
}

// FrequencyForBin returns the center frequency (Hz) of a bin, or 0 for
// an index out of range.
func (a *Analyser) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= a.FrequencyBinCount() {
		return 0.0
	}
	return float64(binIndex) * (a.sampleRate / float64(a.fftSize))
}

// ByteFrequencyData computes the current spectrum, advances the smoothing
// state and writes up to FrequencyBinCount bytes into dst. It returns the
// number of bytes written and does not allocate.
func (a *Analyser) ByteFrequencyData(dst []uint8) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0
	}

	a.computeLocked()

	n := min(len(dst), len(a.workspace.smoothed))
	scale := 255 / (a.maxDecibels - a.minDecibels)
	for k := range n {
		db := toDecibels(a.workspace.smoothed[k])
		v := math.Floor(scale * (db - a.minDecibels))
		switch {
		case v < 0 || math.IsNaN(v):
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
	return n
}

// FloatFrequencyData writes the current spectrum in decibels into dst
// and returns the number of values written. Silent bins are -Inf.
func (a *Analyser) FloatFrequencyData(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0
	}

	a.computeLocked()

	n := min(len(dst), len(a.workspace.smoothed))
	for k := range n {
		dst[k] = float32(toDecibels(a.workspace.smoothed[k]))
	}
	return n
}

// Level returns the RMS level of the current analysis window in dBFS,
// or -Inf for silence.
func (a *Analyser) Level() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return toDecibels(RMS(a.workspace.ring))
}

// computeLocked runs window, FFT and smoothing over the ring contents.
func (a *Analyser) computeLocked() {
	ws := &a.workspace

	// Oldest sample first; slots never written stay zero.
	start := int(a.written)
	for i := range a.fftSize {
		ws.input[i] = float64(ws.ring[(start+i)&a.mask]) * ws.window[i]
	}

	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	norm := 1 / float64(a.fftSize)
	tau := a.smoothing
	for k := range ws.smoothed {
		mag := cmplx.Abs(ws.fftOutput[k]) * norm
		s := tau*ws.smoothed[k] + (1-tau)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		ws.smoothed[k] = s
	}
}

// Close detaches the analyser from its stream. It never closes the
// stream itself.
func (a *Analyser) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.unsubscribe()
	applog.Debugf("Analysis: Closing Analyser")
	return nil
}

func toDecibels(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// RMS calculates the Root Mean Square energy of the buffer.
func RMS(buffer []float32) float64 {
	if len(buffer) == 0 {
		return 0.0
	}

	var sumSquare float64
	for _, sample := range buffer {
		s := float64(sample)
		sumSquare += s * s
	}
	return math.Sqrt(sumSquare / float64(len(buffer)))
}
