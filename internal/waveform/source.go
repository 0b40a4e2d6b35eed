// SPDX-License-Identifier: MIT
package waveform

import (
	"context"

	"dentvoice/internal/audio"
)

// Source is the audio stream bound to an active visualizer. It is either
// Owned, acquired by the visualizer and released on deactivation, or
// Borrowed, supplied by the embedder and never released here.
type Source interface {
	Stream() audio.Stream
	source()
}

// Owned is a stream the visualizer acquired itself.
type Owned struct{ S audio.Stream }

// Borrowed is a stream supplied by the embedder.
type Borrowed struct{ S audio.Stream }

func (o Owned) Stream() audio.Stream    { return o.S }
func (b Borrowed) Stream() audio.Stream { return b.S }
func (Owned) source()                   {}
func (Borrowed) source()                {}

// Acquirer opens a stream the caller then owns, typically the default
// microphone. It must honor ctx cancellation.
type Acquirer func(ctx context.Context) (audio.Stream, error)

// release closes owned streams and leaves borrowed ones alone.
func release(src Source) error {
	switch s := src.(type) {
	case nil:
		return nil
	case Owned:
		if s.S == nil {
			return nil
		}
		return s.S.Close()
	case Borrowed:
		return nil
	default:
		panic("waveform: unknown source type")
	}
}
