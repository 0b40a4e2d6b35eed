// SPDX-License-Identifier: MIT
package waveform

import (
	"fmt"
	"strings"

	"dentvoice/internal/config"

	"github.com/lucasb-eyer/go-colorful"
)

// Mode selects how snapshots are laid out on the surface.
type Mode int

const (
	// Static redraws the latest snapshot every tick.
	Static Mode = iota
	// Scrolling lays the history buffer out left to right.
	Scrolling
)

func (m Mode) String() string {
	switch m {
	case Static:
		return "static"
	case Scrolling:
		return "scrolling"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "static" or "scrolling", case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return Static, nil
	case "scrolling":
		return Scrolling, nil
	default:
		return Static, fmt.Errorf("unknown waveform mode %q (want static or scrolling)", s)
	}
}

// Fixed colors. Processing always overrides the configured bar color.
var (
	ProcessingColor = colorful.Color{R: 0x21 / 255.0, G: 0x96 / 255.0, B: 0xF3 / 255.0} // #2196F3
	Background      = colorful.Color{R: 1, G: 1, B: 1}
	DefaultBarColor = colorful.Color{R: 0x4C / 255.0, G: 0xAF / 255.0, B: 0x50 / 255.0} // #4CAF50
)

const (
	// BackgroundAlpha is applied when clearing, so previous frames fade.
	BackgroundAlpha = 0.95
	// MinFadeAlpha is the alpha of the outermost bars with FadeEdges.
	MinFadeAlpha = 0.5
	// SyntheticScale is the peak height of the processing wave relative
	// to Height.
	SyntheticScale = 0.6
	// SyntheticPeriod divides clock milliseconds in the processing wave.
	SyntheticPeriod = 500
	// SyntheticPhaseStep is the phase offset between adjacent bars.
	SyntheticPhaseStep = 0.2
	// referenceWidth is the layout width surfaces are derived from.
	referenceWidth = 300
)

// Options are fixed at construction.
type Options struct {
	Height      int
	BarWidth    int
	BarGap      int
	Mode        Mode
	FadeEdges   bool
	BarColor    colorful.Color
	HistorySize int
}

// DefaultOptions mirrors the built-in configuration defaults.
func DefaultOptions() Options {
	return Options{
		Height:      config.DefaultHeight,
		BarWidth:    config.DefaultBarWidth,
		BarGap:      config.DefaultBarGap,
		Mode:        Static,
		FadeEdges:   config.DefaultFadeEdges,
		BarColor:    DefaultBarColor,
		HistorySize: config.DefaultHistorySize,
	}
}

// OptionsFromConfig converts the waveform config section.
func OptionsFromConfig(cfg config.WaveformConfig) (Options, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return Options{}, err
	}
	color, err := colorful.Hex(cfg.BarColor)
	if err != nil {
		return Options{}, fmt.Errorf("invalid bar color %q: %w", cfg.BarColor, err)
	}
	opts := Options{
		Height:      cfg.Height,
		BarWidth:    cfg.BarWidth,
		BarGap:      cfg.BarGap,
		Mode:        mode,
		FadeEdges:   cfg.FadeEdges,
		BarColor:    color,
		HistorySize: cfg.HistorySize,
	}
	return opts, opts.validate()
}

func (o Options) validate() error {
	switch {
	case o.Height <= 0:
		return fmt.Errorf("height must be positive, got %d", o.Height)
	case o.BarWidth <= 0:
		return fmt.Errorf("bar width must be positive, got %d", o.BarWidth)
	case o.BarGap < 0:
		return fmt.Errorf("bar gap must not be negative, got %d", o.BarGap)
	case o.HistorySize <= 0:
		return fmt.Errorf("history size must be positive, got %d", o.HistorySize)
	case o.Mode != Static && o.Mode != Scrolling:
		return fmt.Errorf("unknown mode %v", o.Mode)
	}
	return nil
}

// Pitch is the horizontal distance between bar origins.
func (o Options) Pitch() int {
	return o.BarWidth + o.BarGap
}

// BarCount returns floor(width / (barWidth + barGap)).
func (o Options) BarCount(width int) int {
	if width <= 0 || o.Pitch() <= 0 {
		return 0
	}
	return width / o.Pitch()
}

// SurfaceWidth is the width a surface should have to hold a whole number
// of bars within requested pixels. A non-positive request uses the
// 300 pixel reference layout.
func (o Options) SurfaceWidth(requested int) int {
	if requested <= 0 {
		requested = referenceWidth
	}
	return o.BarCount(requested) * o.Pitch()
}
