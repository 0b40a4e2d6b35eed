// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GetLevel()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(prev)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" INFO ", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"Error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debugf("Waveform: tick %d", 1)
	Infof("Waveform: mounted")
	Warnf("Waveform: microphone unavailable")
	Errorf("Transport: send failed: %v", "boom")

	out := buf.String()
	require.NotContains(t, out, "tick 1")
	require.NotContains(t, out, "mounted")
	require.Contains(t, out, "[WARN]  Waveform: microphone unavailable")
	require.Contains(t, out, "[ERROR] Transport: send failed: boom")
}

func TestUnformattedVariants(t *testing.T) {
	buf := captureOutput(t, LevelDebug)

	Debug("a", "b")
	Info("info")
	Warn("warn")
	Error("error")

	out := buf.String()
	for _, want := range []string{"[DEBUG] ab", "[INFO]  info", "[WARN]  warn", "[ERROR] error"} {
		assert.Contains(t, out, want)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
	assert.Equal(t, "DEBUG", LevelDebug.String())
}
