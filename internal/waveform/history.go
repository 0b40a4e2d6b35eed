// SPDX-License-Identifier: MIT
package waveform

// History is a bounded FIFO of frequency snapshots. Pushing beyond
// capacity evicts the oldest snapshot and reuses its storage.
type History struct {
	snaps [][]uint8
	start int
	size  int
}

// NewHistory returns an empty history holding at most capacity snapshots.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{snaps: make([][]uint8, capacity)}
}

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.snaps) }

// Len returns the number of snapshots held.
func (h *History) Len() int { return h.size }

// Push appends a copy of snap.
func (h *History) Push(snap []uint8) {
	var slot int
	if h.size < len(h.snaps) {
		slot = (h.start + h.size) % len(h.snaps)
		h.size++
	} else {
		slot = h.start
		h.start = (h.start + 1) % len(h.snaps)
	}
	h.snaps[slot] = append(h.snaps[slot][:0], snap...)
}

// At returns the i-th snapshot, oldest first. The slice is owned by the
// history and is overwritten by later pushes.
func (h *History) At(i int) []uint8 {
	if i < 0 || i >= h.size {
		return nil
	}
	return h.snaps[(h.start+i)%len(h.snaps)]
}

// Snapshots returns copies of all snapshots, oldest first.
func (h *History) Snapshots() [][]uint8 {
	out := make([][]uint8, h.size)
	for i := range out {
		out[i] = append([]uint8(nil), h.At(i)...)
	}
	return out
}

// Reset empties the history, keeping its storage.
func (h *History) Reset() {
	h.start, h.size = 0, 0
}
