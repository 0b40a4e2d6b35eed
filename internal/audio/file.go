// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	applog "dentvoice/internal/log"

	"github.com/go-audio/wav"
)

// DefaultChunkFrames is the buffer size FileStream publishes, matching the
// default capture buffer.
const DefaultChunkFrames = 512

// FileStream replays decoded mono samples as a Stream. It can be stepped
// deterministically with Advance or played on the wall clock with Play.
type FileStream struct {
	Fanout

	name       string
	sampleRate float64
	samples    []float32
	chunk      int

	mu     sync.Mutex
	pos    int
	carry  float64 // fractional samples owed by previous Advance calls
	closed bool
}

var _ Stream = (*FileStream)(nil)

// OpenFile decodes a PCM WAV file into memory, mixing it down to mono.
func OpenFile(path string) (*FileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: missing audio format", path)
	}

	channels := buf.Format.NumChannels
	bitDepth := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := 1 / float32(int64(1)<<(bitDepth-1))

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += float32(buf.Data[i*channels+c]) * scale
		}
		mono[i] = sum / float32(channels)
	}

	applog.Debugf("FileStream: decoded %s (%d frames, %d ch, %d Hz, %d bit)",
		path, frames, channels, buf.Format.SampleRate, bitDepth)
	s := NewSampleStream(mono, float64(buf.Format.SampleRate))
	s.name = path
	return s, nil
}

// NewSampleStream replays samples held in memory.
func NewSampleStream(samples []float32, sampleRate float64) *FileStream {
	return &FileStream{
		name:       "memory",
		sampleRate: sampleRate,
		samples:    samples,
		chunk:      DefaultChunkFrames,
	}
}

// SampleRate implements Stream.
func (s *FileStream) SampleRate() float64 {
	return s.sampleRate
}

// Duration is the total playback length.
func (s *FileStream) Duration() time.Duration {
	if s.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.samples)) / s.sampleRate * float64(time.Second))
}

// Done reports whether every sample has been published.
func (s *FileStream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= len(s.samples)
}

// Advance publishes the samples covering d of playback, in chunks of at
// most DefaultChunkFrames, and returns how many samples were published.
func (s *FileStream) Advance(d time.Duration) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	want := d.Seconds()*s.sampleRate + s.carry
	n := int(want)
	s.carry = want - float64(n)
	start := s.pos
	end := min(start+n, len(s.samples))
	s.pos = end
	s.mu.Unlock()

	for i := start; i < end; i += s.chunk {
		s.Publish(s.samples[i:min(i+s.chunk, end)])
	}
	return end - start
}

// Play publishes chunks on the wall clock until the samples run out, ctx
// is cancelled or the stream is closed.
func (s *FileStream) Play(ctx context.Context) error {
	interval := time.Duration(float64(s.chunk) / s.sampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !s.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.Advance(interval) == 0 && s.isClosed() {
				return ErrStreamClosed
			}
		}
	}
	return nil
}

func (s *FileStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops playback and drops subscribers.
func (s *FileStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.Shutdown() {
		applog.Debugf("FileStream: closed %s", s.name)
	}
	return nil
}
