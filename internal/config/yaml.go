// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dentvoice/pkg/bitint"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the file LoadConfig looks for when no path is given.
const DefaultPath = "dentvoice.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If
// path is empty it looks for DefaultPath in the working directory and
// falls back to built-in defaults when that is missing. Environment
// overrides are applied after the file, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Audio.InputDevice < MinDeviceID {
		add("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		add("audio.sample_rate must be within [%d, %d], got %.0f", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		add("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > 2 {
		add("audio.input_channels must be 1 or 2, got %d", c.Audio.InputChannels)
	}
	if c.Audio.NoiseGate < 0 || c.Audio.NoiseGate > 1 {
		add("audio.noise_gate must be within [0, 1], got %g", c.Audio.NoiseGate)
	}

	a := c.Analyser
	if !bitint.IsPowerOfTwo(a.FFTSize) || a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		add("analyser.fft_size must be a power of two within [%d, %d], got %d", MinFFTSize, MaxFFTSize, a.FFTSize)
	}
	if a.Smoothing < 0 || a.Smoothing >= 1 {
		add("analyser.smoothing must be within [0, 1), got %g", a.Smoothing)
	}
	if a.MinDecibels >= a.MaxDecibels {
		add("analyser.min_decibels (%g) must be below max_decibels (%g)", a.MinDecibels, a.MaxDecibels)
	}

	w := c.Waveform
	if w.Width <= 0 || w.Height <= 0 {
		add("waveform.width and waveform.height must be positive, got %dx%d", w.Width, w.Height)
	}
	if w.BarWidth <= 0 || w.BarGap < 0 {
		add("waveform.bar_width must be positive and bar_gap non-negative, got %d/%d", w.BarWidth, w.BarGap)
	}
	if w.Width > 0 && w.BarWidth > 0 && w.BarGap >= 0 && w.Width < w.BarWidth+w.BarGap {
		add("waveform.width %d cannot fit a single bar", w.Width)
	}
	switch strings.ToLower(w.Mode) {
	case "static", "scrolling":
	default:
		add("waveform.mode must be \"static\" or \"scrolling\", got %q", w.Mode)
	}
	if _, err := colorful.Hex(w.BarColor); err != nil {
		add("waveform.bar_color %q is not a hex color", w.BarColor)
	}
	if w.HistorySize <= 0 {
		add("waveform.history_size must be positive, got %d", w.HistorySize)
	}
	if w.FrameRate <= 0 || w.FrameRate > MaxFrameRate {
		add("waveform.frame_rate must be within [1, %d], got %d", MaxFrameRate, w.FrameRate)
	}

	if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		add("recording.bit_depth must be 16 or 24, got %d", c.Recording.BitDepth)
	}
	if c.API.BaseURL == "" {
		add("api.base_url must be set")
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		add("transport.websocket_address must be set when the websocket transport is enabled")
	}
	if t.WebSocketMaxFPS < 0 {
		add("transport.websocket_max_fps must not be negative, got %d", t.WebSocketMaxFPS)
	}
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			add("transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			add("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the loaded file.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
	}

	// ENV_API_{...}
	if val, ok := os.LookupEnv("ENV_API_URL"); ok {
		c.API.BaseURL = strings.TrimRight(val, "/")
	}
	if val, ok := os.LookupEnv("ENV_API_TOKEN"); ok {
		c.API.Token = val
	}

	// ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
}
