// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"testing"

	"dentvoice/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixDown(t *testing.T) {
	dst := make([]float32, 4)

	n := mixDown(dst, []float32{0.2, 0.4, -1, 1, 0.5, 0.5}, 2)
	require.Equal(t, 3, n)
	assert.InDeltaSlice(t, []float32{0.3, 0, 0.5}, dst[:n], 1e-6)

	n = mixDown(dst, []float32{0.1, 0.2}, 1)
	require.Equal(t, 2, n)
	assert.Equal(t, []float32{0.1, 0.2}, dst[:n])
}

func TestMixDownTruncatesToDestination(t *testing.T) {
	dst := make([]float32, 2)
	n := mixDown(dst, make([]float32, 12), 2)
	assert.Equal(t, 2, n)
}

func TestMixDownDoesNotAllocate(t *testing.T) {
	dst := make([]float32, 512)
	in := make([]float32, 1024)
	allocs := testing.AllocsPerRun(100, func() { mixDown(dst, in, 2) })
	assert.Zero(t, allocs)
}

func TestOpenMicrophoneCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OpenMicrophone(ctx, config.NewConfig().Audio)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenMicrophoneOnHardware(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping hardware test in short mode")
	}
	setupPortAudio(t)

	mic, err := OpenMicrophone(context.Background(), config.NewConfig().Audio)
	if err != nil {
		t.Skipf("No usable input device: %v", err)
	}
	assert.Positive(t, mic.SampleRate())
	assert.NotEmpty(t, mic.DeviceName())
	require.NoError(t, mic.Close())
	require.NoError(t, mic.Close())
	assert.Equal(t, 0, mic.Subscribers())
}
