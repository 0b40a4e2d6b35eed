// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	require.NoError(t, mt.Send("a"))
	require.NoError(t, mt.Send(2))

	sent := mt.Sent()
	require.Len(t, sent, 2)
	sent[0] = "mutated"
	assert.Equal(t, "a", mt.Sent()[0], "Sent returns a copy")

	assert.False(t, mt.Closed())
	require.NoError(t, mt.Close())
	assert.True(t, mt.Closed())
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 1024, 44100, 440.0},
		{"Middle C", 1024, 44100, 261.63},
		{"Low Sample Rate", 1024, 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(tt.size, tt.sampleRate, tt.frequency, 0.5)
			require.Len(t, result, tt.size)

			crossCount := 0
			for i := 1; i < tt.size; i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossCount++
				}
			}
			expected := float64(tt.size) / (tt.sampleRate / tt.frequency / 2)
			assert.InDelta(t, expected, float64(crossCount), 0.2*expected)
			assert.LessOrEqual(t, float64(slicesMaxAbs(result)), 0.5+1e-6)
		})
	}
}

func slicesMaxAbs(v []float32) float32 {
	var m float32
	for _, s := range v {
		m = float32(math.Max(float64(m), math.Abs(float64(s))))
	}
	return m
}

func TestGenerateComplexWave(t *testing.T) {
	result := GenerateComplexWave(1024, 44100)
	require.Len(t, result, 1024)
	assert.Greater(t, slicesMaxAbs(result), float32(0.1))
	assert.LessOrEqual(t, slicesMaxAbs(result), float32(0.9))
}

func TestFindPeakBin(t *testing.T) {
	bytes := []uint8{1, 5, 200, 7, 9}
	tests := []struct {
		name     string
		start    int
		end      int
		expected int
	}{
		{"Full Range", 0, 4, 2},
		{"Negative Start", -3, 4, 2},
		{"Out of Range End", 0, 40, 2},
		{"After Peak", 3, 4, 4},
		{"Inverted", 4, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindPeakBin(bytes, tt.start, tt.end))
		})
	}
	assert.Equal(t, 0, FindPeakBin([]float64{}, 0, 10))
	assert.Equal(t, 1, FindPeakBin([]float64{0.1, 0.9, 0.3}, 0, 2))
}
