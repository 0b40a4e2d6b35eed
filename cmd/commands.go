// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dentvoice/internal/audio"
	"dentvoice/internal/config"
	"dentvoice/internal/frame"
	applog "dentvoice/internal/log"
	"dentvoice/internal/render"
	"dentvoice/internal/transport"
	"dentvoice/internal/transport/udp"
	"dentvoice/internal/tui"
	"dentvoice/internal/waveform"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"
)

// Run executes the selected command.
func Run(ctx context.Context, opts *Options, cfg *config.Config) error {
	switch opts.Command {
	case CommandList:
		return List(os.Stdout, opts.Interactive)
	case CommandRender:
		return Render(ctx, cfg, opts.Input, opts.OutputDir, opts.Every, opts.Tail)
	case CommandServe:
		return Serve(ctx, cfg)
	case CommandDictate:
		return Dictate(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q", opts.Command)
	}
}

// NeedsPortAudio reports whether the command talks to audio devices.
func (o *Options) NeedsPortAudio() bool {
	return o.Command != CommandRender
}

// List prints the input devices, or runs the interactive picker and
// prints the chosen settings as a config snippet.
func List(w io.Writer, interactive bool) error {
	if !interactive {
		return audio.ListDevices(w)
	}

	sel, ok, err := tui.StartDeviceListUI()
	if err != nil || !ok {
		return err
	}

	snippet := struct {
		Audio struct {
			InputDevice int     `yaml:"input_device"`
			SampleRate  float64 `yaml:"sample_rate"`
		} `yaml:"audio"`
	}{}
	snippet.Audio.InputDevice = sel.DeviceID
	snippet.Audio.SampleRate = sel.SampleRate

	out, err := yaml.Marshal(snippet)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %s\n%s", sel.DeviceName, out)
	return nil
}

// Dictate runs the terminal dictation UI.
func Dictate(ctx context.Context, cfg *config.Config) error {
	sink, err := NewFrameSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink(sink)

	var fs waveform.FrameSink
	if sink.Len() > 0 {
		fs = sink
	}
	err = tui.RunDictation(ctx, cfg, fs)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Serve captures the microphone headlessly and publishes frames on the
// configured transports until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config) error {
	opts, err := waveform.OptionsFromConfig(cfg.Waveform)
	if err != nil {
		return err
	}

	sink, err := NewFrameSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink(sink)
	if sink.Len() == 0 {
		applog.Warnf("Serve: no transport enabled, frames are only logged")
		sink.AddTransport(transport.NewLoggingTransport())
	}

	surface := render.NewRaster(opts.SurfaceWidth(cfg.Waveform.Width), opts.Height)
	vis, err := waveform.New(surface, opts, waveform.Deps{
		Scheduler: frame.NewTicker(cfg.Waveform.FrameRate),
		Acquire: func(ctx context.Context) (audio.Stream, error) {
			mic, err := audio.OpenMicrophone(ctx, cfg.Audio)
			if err != nil {
				return nil, err
			}
			return mic, nil
		},
		NewAnalyser: waveform.NewAnalyserFactory(cfg.Analyser),
		Sink:        sink,
	})
	if err != nil {
		return err
	}
	defer vis.Close()

	vis.Mount()
	vis.SetActive(true)
	applog.Infof("Serve: publishing %d bars per frame at %d fps", vis.BarCount(), cfg.Waveform.FrameRate)

	<-ctx.Done()
	if err := vis.Err(); err != nil {
		return fmt.Errorf("microphone (%s): %w", waveform.KindOf(err), err)
	}
	return nil
}

// Render replays a WAV file through the visualizer one frame at a time
// and writes every nth frame as a PNG into outDir. tail extra frames of
// the processing animation follow the audio.
func Render(ctx context.Context, cfg *config.Config, input, outDir string, every, tail int) error {
	if every <= 0 {
		every = 1
	}
	opts, err := waveform.OptionsFromConfig(cfg.Waveform)
	if err != nil {
		return err
	}

	stream, err := audio.OpenFile(input)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	interval := cfg.Waveform.FrameInterval()
	clock := frame.NewManual(time.Unix(0, 0).UTC(), interval)
	surface := render.NewRaster(opts.SurfaceWidth(cfg.Waveform.Width), opts.Height)
	vis, err := waveform.New(surface, opts, waveform.Deps{
		Scheduler:   clock,
		Clock:       clock,
		NewAnalyser: waveform.NewAnalyserFactory(cfg.Analyser),
	})
	if err != nil {
		return err
	}
	defer vis.Close()

	vis.SetAudioStream(stream)
	vis.Mount()
	vis.SetActive(true)
	if err := vis.Err(); err != nil {
		return err
	}

	frameNo, written := 0, 0
	step := func() error {
		clock.Step()
		if frameNo%every == 0 {
			path := filepath.Join(outDir, fmt.Sprintf("frame-%05d.png", frameNo))
			if err := surface.SavePNG(path); err != nil {
				return err
			}
			written++
		}
		frameNo++
		return ctx.Err()
	}

	for !stream.Done() {
		stream.Advance(interval)
		if err := step(); err != nil {
			return err
		}
	}

	vis.SetActive(false)
	vis.SetProcessing(true)
	for range tail {
		if err := step(); err != nil {
			return err
		}
	}

	applog.Infof("Render: wrote %d of %d frames (%s of audio) to %s", written, frameNo, stream.Duration(), outDir)
	return nil
}

// NewFrameSink builds a sink over the transports enabled in cfg.
func NewFrameSink(cfg *config.Config) (*transport.Sink, error) {
	sink := transport.NewSink()
	tc := cfg.Transport

	if tc.WebSocketEnabled {
		sink.AddTransport(transport.NewWebSocketTransport(tc.WebSocketAddress, transport.WithMaxRate(tc.WebSocketMaxFPS)))
	}
	if tc.UDPEnabled {
		sender, err := udp.NewUDPSender(tc.UDPTargetAddress)
		if err != nil {
			closeSink(sink)
			return nil, err
		}
		pub, err := udp.NewUDPPublisher(tc.UDPSendInterval, sender)
		if err != nil {
			_ = sender.Close()
			closeSink(sink)
			return nil, err
		}
		pub.Start()
		sink.AddSink(pub)
	}
	if cfg.Debug {
		sink.AddTransport(transport.NewLoggingTransport())
	}
	return sink, nil
}

func closeSink(sink *transport.Sink) {
	if err := sink.Close(); err != nil {
		applog.Warnf("closing transports: %v", err)
	}
}
