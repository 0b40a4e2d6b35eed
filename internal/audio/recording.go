// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"

	applog "dentvoice/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder encodes a stream's buffers into a mono PCM WAV file.
type Recorder struct {
	path  string
	scale float64

	mu          sync.Mutex
	file        *os.File
	encoder     *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	frames      int
	writeErr    error
	unsubscribe func()
	stopped     bool
}

// StartRecording creates path and subscribes to stream. bitDepth is 16 or
// 24.
func StartRecording(stream Stream, path string, bitDepth int) (*Recorder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	sampleRate := int(stream.SampleRate())
	r := &Recorder{
		path:    path,
		scale:   float64(int64(1)<<(bitDepth-1) - 1),
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		sampleBuf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, DefaultChunkFrames),
			SourceBitDepth: bitDepth,
		},
	}
	r.unsubscribe = stream.Subscribe(r.write)

	applog.Debugf("Recorder: writing %s (%d Hz, %d bit)", path, sampleRate, bitDepth)
	return r, nil
}

// write runs on the capture goroutine.
func (r *Recorder) write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.writeErr != nil {
		return
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		r.sampleBuf.Data[i] = int(float64(s) * r.scale)
	}

	if err := r.encoder.Write(r.sampleBuf); err != nil {
		r.writeErr = err
		applog.Errorf("Recorder: error writing to %s: %v", r.path, err)
		return
	}
	r.frames += len(samples)
}

// Path is the file being written.
func (r *Recorder) Path() string {
	return r.path
}

// Frames is the number of samples written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Stop unsubscribes and finalizes the WAV header. It is idempotent and
// reports the first write error, if any.
func (r *Recorder) Stop() error {
	r.unsubscribe()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil
	}
	r.stopped = true

	var errs []error
	if r.writeErr != nil {
		errs = append(errs, fmt.Errorf("write: %w", r.writeErr))
	}
	if err := r.encoder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("finalize: %w", err))
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	applog.Debugf("Recorder: stopped %s after %d frames", r.path, r.frames)
	return errors.Join(errs...)
}
