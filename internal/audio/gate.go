// SPDX-License-Identifier: MIT
package audio

// Gate silences capture buffers whose peak stays below a threshold, so
// room noise does not animate the waveform or bloat dictations.
type Gate struct {
	threshold float32
}

// NewGate returns a gate for a peak threshold in [0, 1]; values outside
// the range are clamped. A zero threshold never closes.
func NewGate(threshold float64) Gate {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	return Gate{threshold: float32(threshold)}
}

// Threshold returns the configured peak threshold.
func (g Gate) Threshold() float64 {
	return float64(g.threshold)
}

// Peak returns the largest absolute sample value in buf.
func Peak(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Apply zeroes buf in place when its peak is below the threshold and
// reports whether the gate was open.
func (g Gate) Apply(buf []float32) bool {
	if g.threshold == 0 || Peak(buf) >= g.threshold {
		return true
	}
	clear(buf)
	return false
}
