// SPDX-License-Identifier: MIT
// Package transport publishes rendered waveform frames to external
// consumers: WebSocket clients, a UDP listener or the debug log.
package transport

import (
	"dentvoice/internal/waveform"
)

// Transport defines a generic interface for sending frames or events.
// Implementations should be thread-safe and must not block the caller.
type Transport interface {
	Send(data any) error
	Close() error
}

// FrameMessage is the JSON form of a waveform frame.
type FrameMessage struct {
	Type       string `json:"type"`
	Seq        uint64 `json:"seq"`
	Timestamp  int64  `json:"ts"` // Milliseconds since epoch.
	State      string `json:"state"`
	Processing bool   `json:"processing"`
	Mode       string `json:"mode"`
	Synthetic  bool   `json:"synthetic,omitempty"`
	Color      string `json:"color"`
	Bars       []int  `json:"bars"` // 0..255 per bar; empty when nothing is drawn.
}

// NewFrameMessage copies f into a message that outlives the tick.
func NewFrameMessage(f *waveform.Frame) FrameMessage {
	bars := make([]int, len(f.Values))
	for i, v := range f.Values {
		bars[i] = int(v)
	}
	return FrameMessage{
		Type:       "frame",
		Seq:        f.Seq,
		Timestamp:  f.Time.UnixMilli(),
		State:      f.State.String(),
		Processing: f.Processing,
		Mode:       f.Mode.String(),
		Synthetic:  f.Synthetic,
		Color:      f.Color.Hex(),
		Bars:       bars,
	}
}
