// SPDX-License-Identifier: MIT
// Package render provides drawing surfaces for the waveform visualizer:
// an RGBA raster that can be exported as PNG and a character grid for
// terminals.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"dentvoice/internal/waveform"

	"github.com/lucasb-eyer/go-colorful"
)

// Raster is an in-memory RGBA surface. Drawing is alpha composited, so
// a translucent Clear leaves a faint trace of the previous frame.
type Raster struct {
	img *image.RGBA
}

var _ waveform.Surface = (*Raster)(nil)

// NewRaster returns a transparent surface of width x height pixels.
func NewRaster(width, height int) *Raster {
	return &Raster{img: image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))}
}

func (r *Raster) Width() int  { return r.img.Bounds().Dx() }
func (r *Raster) Height() int { return r.img.Bounds().Dy() }

// Image exposes the backing image.
func (r *Raster) Image() *image.RGBA { return r.img }

// Clear composites c over the whole raster.
func (r *Raster) Clear(c colorful.Color, alpha float64) {
	r.fill(r.img.Bounds(), c, alpha)
}

// FillRect composites c over the rectangle, rounded to whole pixels.
func (r *Raster) FillRect(x, y, w, h float64, c colorful.Color, alpha float64) {
	if w <= 0 || h <= 0 {
		return
	}
	rect := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	).Intersect(r.img.Bounds())
	r.fill(rect, c, alpha)
}

func (r *Raster) fill(rect image.Rectangle, c colorful.Color, alpha float64) {
	if rect.Empty() || alpha <= 0 {
		return
	}
	alpha = min(alpha, 1)
	mask := image.NewUniform(color.Alpha16{A: uint16(math.Round(alpha * 0xffff))})
	draw.DrawMask(r.img, rect, image.NewUniform(c.Clamped()), image.Point{}, mask, image.Point{}, draw.Over)
}

// At returns the color of pixel (x, y).
func (r *Raster) At(x, y int) colorful.Color {
	c, _ := colorful.MakeColor(r.img.At(x, y))
	return c
}

// WritePNG encodes the current contents as PNG.
func (r *Raster) WritePNG(w io.Writer) error {
	return png.Encode(w, r.img)
}

// SavePNG writes the current contents to path.
func (r *Raster) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
