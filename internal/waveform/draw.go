// SPDX-License-Identifier: MIT
package waveform

import (
	"math"
	"time"
)

// resample maps raw onto dst by nearest index: dst[i] takes
// raw[floor(i/len(dst) * len(raw))]. Missing data reads as zero.
func resample(dst, raw []uint8) {
	n := len(dst)
	if len(raw) == 0 {
		clear(dst)
		return
	}
	for i := range dst {
		dst[i] = raw[i*len(raw)/n]
	}
}

// FadeAlpha returns the edge fade alpha of bar i out of barCount: 1 at
// the center falling linearly to MinFadeAlpha at the edges.
func FadeAlpha(i, barCount int) float64 {
	if barCount <= 0 {
		return 1
	}
	center := float64(barCount) / 2
	distance := math.Abs(float64(i) - center)
	return 1 - (distance/center)*(1-MinFadeAlpha)
}

// SyntheticLevel is the processing wave for bar i at time t, in [0, 1].
func SyntheticLevel(t time.Time, i int) float64 {
	phase := float64(t.UnixMilli())/SyntheticPeriod + float64(i)*SyntheticPhaseStep
	return math.Sin(phase)*0.5 + 0.5
}

// drawStatic draws one bottom-anchored bar per value.
func (v *Visualizer) drawStatic(values []uint8, fade bool) {
	height := float64(v.opts.Height)
	pitch := float64(v.opts.Pitch())
	barWidth := float64(v.opts.BarWidth)
	color := v.barColorLocked()

	for i, value := range values {
		barHeight := float64(value) / 255 * height
		alpha := 1.0
		if fade {
			alpha = FadeAlpha(i, len(values))
		}
		v.surface.FillRect(float64(i)*pitch, height-barHeight, barWidth, barHeight, color, alpha)
	}
}

// drawScrolling lays the history out left to right, one snapshot per
// time slot, skipping bars outside the surface.
func (v *Visualizer) drawScrolling() {
	width := float64(v.surface.Width())
	height := float64(v.opts.Height)
	pitch := float64(v.opts.Pitch())
	barWidth := float64(v.opts.BarWidth)
	step := width / float64(v.opts.HistorySize)
	color := v.barColorLocked()

	for k := range v.history.Len() {
		x := float64(k) * step
		for i, value := range v.history.At(k) {
			barX := x + float64(i)*pitch
			if barX+barWidth <= 0 || barX >= width {
				continue
			}
			barHeight := float64(value) / 255 * height
			v.surface.FillRect(barX, height-barHeight, barWidth, barHeight, color, 1)
		}
	}
}

// drawSynthetic renders the processing wave into v.bars and onto the
// surface.
func (v *Visualizer) drawSynthetic(now time.Time) {
	height := float64(v.opts.Height)
	pitch := float64(v.opts.Pitch())
	barWidth := float64(v.opts.BarWidth)

	for i := range v.bars {
		level := SyntheticLevel(now, i)
		barHeight := level * height * SyntheticScale
		v.bars[i] = uint8(math.Round(level * SyntheticScale * 255))
		v.surface.FillRect(float64(i)*pitch, height-barHeight, barWidth, barHeight, ProcessingColor, 1)
	}
}
