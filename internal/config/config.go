// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults.
const (
	// Audio capture
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultChannels        = 1           // Mono capture

	// Analyser, mirroring the Web Audio AnalyserNode defaults
	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
	DefaultWindow      = "Blackman"

	// Waveform geometry and colors
	DefaultWidth       = 300
	DefaultHeight      = 60
	DefaultBarWidth    = 3
	DefaultBarGap      = 2
	DefaultMode        = "static"
	DefaultFadeEdges   = true
	DefaultBarColor    = "#4CAF50"
	DefaultHistorySize = 120
	DefaultFrameRate   = 60

	// Recording
	DefaultBitDepth = 16

	// Remote API
	DefaultAPIBaseURL = "http://localhost:8000"
	DefaultAPITimeout = 60 * time.Second

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MinFFTSize    = 32
	MaxFFTSize    = 32768
	MaxFrameRate  = 240
)

// Config is the full runtime configuration, loaded from YAML with
// environment overrides applied on top.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error".
	LogFile   string          `yaml:"log_file"`  // Log destination while the TUI runs (empty: discard).
	Audio     AudioConfig     `yaml:"audio"`
	Analyser  AnalyserConfig  `yaml:"analyser"`
	Waveform  WaveformConfig  `yaml:"waveform"`
	Recording RecordingConfig `yaml:"recording"`
	API       APIConfig       `yaml:"api"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds microphone capture settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels, mixed down to mono.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low input latency.
	NoiseGate       float64 `yaml:"noise_gate"`        // Peak level in [0, 1] below which buffers are silenced (0 disables).
}

// AnalyserConfig tunes the frequency analyser bound to the stream.
type AnalyserConfig struct {
	FFTSize     int     `yaml:"fft_size"`     // Power of two in [32, 32768].
	Smoothing   float64 `yaml:"smoothing"`    // Time constant in [0, 1).
	MinDecibels float64 `yaml:"min_decibels"` // dB mapped to byte 0.
	MaxDecibels float64 `yaml:"max_decibels"` // dB mapped to byte 255.
	Window      string  `yaml:"window"`       // Window function name.
}

// WaveformConfig holds the visualizer's construction options.
type WaveformConfig struct {
	Width       int    `yaml:"width"`        // Requested surface width in pixels.
	Height      int    `yaml:"height"`       // Surface height in pixels.
	BarWidth    int    `yaml:"bar_width"`    // Bar width in pixels.
	BarGap      int    `yaml:"bar_gap"`      // Gap between bars in pixels.
	Mode        string `yaml:"mode"`         // "static" or "scrolling".
	FadeEdges   bool   `yaml:"fade_edges"`   // Fade bars towards the edges.
	BarColor    string `yaml:"bar_color"`    // Hex color for live bars.
	HistorySize int    `yaml:"history_size"` // Snapshots kept in scrolling mode.
	FrameRate   int    `yaml:"frame_rate"`   // Animation ticks per second.
}

// RecordingConfig controls where dictations are written.
type RecordingConfig struct {
	OutputDir string `yaml:"output_dir"` // Directory for dictation WAV files (empty: OS temp dir).
	BitDepth  int    `yaml:"bit_depth"`  // 16 or 24.
	Keep      bool   `yaml:"keep"`       // Keep files after transcription.
}

// APIConfig points at the remote speech-to-text service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// TransportConfig holds settings for publishing rendered frames.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"` // e.g. ":8080"
	WebSocketMaxFPS  int           `yaml:"websocket_max_fps"` // Broadcast rate cap (0: unlimited).
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090"
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
		},
		Analyser: AnalyserConfig{
			FFTSize:     DefaultFFTSize,
			Smoothing:   DefaultSmoothing,
			MinDecibels: DefaultMinDecibels,
			MaxDecibels: DefaultMaxDecibels,
			Window:      DefaultWindow,
		},
		Waveform: WaveformConfig{
			Width:       DefaultWidth,
			Height:      DefaultHeight,
			BarWidth:    DefaultBarWidth,
			BarGap:      DefaultBarGap,
			Mode:        DefaultMode,
			FadeEdges:   DefaultFadeEdges,
			BarColor:    DefaultBarColor,
			HistorySize: DefaultHistorySize,
			FrameRate:   DefaultFrameRate,
		},
		Recording: RecordingConfig{
			BitDepth: DefaultBitDepth,
		},
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultAPITimeout,
		},
		Transport: TransportConfig{
			WebSocketAddress: ":8080",
			WebSocketMaxFPS:  30,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
		},
	}
}

// FrameInterval is the duration of one animation tick.
func (c WaveformConfig) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(c.FrameRate)
}
