// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"dentvoice/internal/config"
	applog "dentvoice/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Microphone captures a PortAudio input device and fans mono buffers out
// to subscribers. It implements Stream.
type Microphone struct {
	Fanout

	cfg     config.AudioConfig
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream
	gate    Gate

	// Pre-allocated mono buffer, reused by every callback.
	mono []float32

	closeOnce sync.Once
	closeErr  error
}

var _ Stream = (*Microphone)(nil)

// OpenMicrophone opens and starts the configured input device. PortAudio
// must be initialized. Failures are classified as ErrDeviceUnavailable or
// ErrPermissionDenied where PortAudio allows telling them apart.
func OpenMicrophone(ctx context.Context, cfg config.AudioConfig) (*Microphone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, classifyError(err)
	}

	channels := cfg.InputChannels
	if channels < 1 {
		channels = 1
	}
	if channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}
	cfg.InputChannels = channels

	m := &Microphone{
		cfg:    cfg,
		device: device,
		gate:   NewGate(cfg.NoiseGate),
		mono:   make([]float32, cfg.FramesPerBuffer),
	}
	if cfg.LowLatency {
		m.latency = device.DefaultLowInputLatency
	} else {
		m.latency = device.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  m.latency,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, m.process)
	if err != nil {
		return nil, classifyError(fmt.Errorf("open input stream on %q: %w", device.Name, err))
	}
	m.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, classifyError(fmt.Errorf("start input stream on %q: %w", device.Name, err))
	}

	if err := ctx.Err(); err != nil {
		m.Close()
		return nil, err
	}

	applog.Infof("Microphone: capturing %q (%d ch, %.0f Hz, %d frames, latency %s)",
		device.Name, channels, cfg.SampleRate, cfg.FramesPerBuffer, m.latency)
	return m, nil
}

// SampleRate implements Stream.
func (m *Microphone) SampleRate() float64 {
	return m.cfg.SampleRate
}

// DeviceName is the name of the capturing device.
func (m *Microphone) DeviceName() string {
	return m.device.Name
}

// process is the PortAudio callback. It runs on the audio thread and must
// not allocate.
func (m *Microphone) process(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := mixDown(m.mono, in, m.cfg.InputChannels)
	buf := m.mono[:n]
	m.gate.Apply(buf)
	m.Publish(buf)
}

// mixDown averages interleaved frames of in into dst and returns the
// number of frames written.
func mixDown(dst, in []float32, channels int) int {
	if channels <= 1 {
		return copy(dst, in)
	}
	frames := len(in) / channels
	if frames > len(dst) {
		frames = len(dst)
	}
	scale := 1 / float32(channels)
	for i := range frames {
		var sum float32
		base := i * channels
		for c := range channels {
			sum += in[base+c]
		}
		dst[i] = sum * scale
	}
	return frames
}

// Close stops capture, closes the PortAudio stream and drops subscribers.
// It is idempotent; later calls return the first result.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		m.Shutdown()
		if m.stream == nil {
			return
		}
		if err := m.stream.Stop(); err != nil {
			m.closeErr = fmt.Errorf("stop input stream: %w", err)
		}
		if err := m.stream.Close(); err != nil && m.closeErr == nil {
			m.closeErr = fmt.Errorf("close input stream: %w", err)
		}
		applog.Infof("Microphone: released %q", m.device.Name)
	})
	return m.closeErr
}
