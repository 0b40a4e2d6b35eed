// SPDX-License-Identifier: MIT
package waveform

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Surface is a drawing target. Coordinates are pixels with the origin at
// the top left; alpha is in [0, 1].
type Surface interface {
	Width() int
	Height() int
	// Clear composites c over the whole surface.
	Clear(c colorful.Color, alpha float64)
	// FillRect composites c over the rectangle, clipped to the surface.
	FillRect(x, y, w, h float64, c colorful.Color, alpha float64)
}

// Frame describes one rendered tick for a FrameSink.
type Frame struct {
	Seq        uint64
	Time       time.Time
	State      State
	Processing bool
	Mode       Mode
	// Synthetic is set when Values come from the processing wave rather
	// than live audio.
	Synthetic bool
	Color     colorful.Color
	// Values holds barCount magnitudes 0..255 drawn this tick, or is
	// empty when nothing was drawn. It is reused after Publish returns.
	Values []uint8
}

// FrameSink receives every rendered frame. Publish runs inside the tick
// and must not block or call back into the visualizer.
type FrameSink interface {
	Publish(f *Frame)
}
