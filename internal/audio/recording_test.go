// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"dentvoice/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRoundTrip(t *testing.T) {
	for _, bitDepth := range []int{16, 24} {
		t.Run(fmt.Sprintf("%dbit", bitDepth), func(t *testing.T) {
			wave := utils.GenerateSineWave(4800, 48000, 440, 0.5)
			src := NewSampleStream(wave, 48000)
			path := filepath.Join(t.TempDir(), "dictation.wav")

			rec, err := StartRecording(src, path, bitDepth)
			require.NoError(t, err)
			assert.Equal(t, path, rec.Path())

			src.Advance(time.Second)
			assert.Equal(t, 4800, rec.Frames())
			require.NoError(t, rec.Stop())
			require.NoError(t, rec.Stop())
			assert.Equal(t, 0, src.Subscribers())

			back, err := OpenFile(path)
			require.NoError(t, err)
			assert.Equal(t, 48000.0, back.SampleRate())
			assert.Equal(t, 100*time.Millisecond, back.Duration())

			var got []float32
			back.Subscribe(func(b []float32) { got = append(got, b...) })
			back.Advance(time.Second)
			require.Len(t, got, len(wave))
			for i := range wave {
				if !assert.InDelta(t, wave[i], got[i], 1e-3, "sample %d", i) {
					break
				}
			}
		})
	}
}

func TestRecorderClampsSamples(t *testing.T) {
	src := NewSampleStream([]float32{2, -2, 0}, 8000)
	path := filepath.Join(t.TempDir(), "clip.wav")
	rec, err := StartRecording(src, path, 16)
	require.NoError(t, err)
	src.Advance(time.Second)
	require.NoError(t, rec.Stop())

	back, err := OpenFile(path)
	require.NoError(t, err)
	var got []float32
	back.Subscribe(func(b []float32) { got = append(got, b...) })
	back.Advance(time.Second)
	require.Len(t, got, 3)
	assert.InDelta(t, 1, got[0], 1e-3)
	assert.InDelta(t, -1, got[1], 1e-3)
}

func TestStartRecordingErrors(t *testing.T) {
	src := NewSampleStream(nil, 8000)

	_, err := StartRecording(src, filepath.Join(t.TempDir(), "x.wav"), 8)
	assert.ErrorContains(t, err, "unsupported bit depth")

	_, err = StartRecording(src, filepath.Join(t.TempDir(), "missing", "x.wav"), 16)
	assert.Error(t, err)
}
