// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dentvoice/internal/audio"
	"dentvoice/internal/config"
	"dentvoice/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Options
	}{
		{
			name: "dictate by default",
			args: nil,
			want: Options{Command: CommandDictate, DeviceID: config.DefaultDeviceID, Mode: config.DefaultMode},
		},
		{
			name: "list interactive with device",
			args: []string{"list", "-i", "--device", "3"},
			want: Options{Command: CommandList, Interactive: true, DeviceID: 3, DeviceSet: true, Mode: config.DefaultMode},
		},
		{
			name: "render with flags",
			args: []string{"render", "in.wav", "-o", "out", "--every", "2", "--tail", "30", "--mode", "scrolling"},
			want: Options{
				Command: CommandRender, Input: "in.wav", OutputDir: "out", Every: 2, Tail: 30,
				DeviceID: config.DefaultDeviceID, Mode: "scrolling", ModeSet: true,
			},
		},
		{
			name: "serve verbose with config",
			args: []string{"serve", "-v", "--config", "x.yaml"},
			want: Options{Command: CommandServe, Verbose: true, ConfigPath: "x.yaml", DeviceID: config.DefaultDeviceID, Mode: config.DefaultMode},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			require.NoError(t, err)
			require.NotNil(t, got)
			if tt.want.Command != CommandRender {
				tt.want.OutputDir, tt.want.Every = "frames", 1
			}
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"render"},
		{"bogus"},
		{"--device", "x"},
	} {
		_, err := parseArgs(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestParseArgsHelp(t *testing.T) {
	got, err := parseArgs([]string{"--help"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestApply(t *testing.T) {
	cfg := config.NewConfig()
	opts := &Options{DeviceID: 2, DeviceSet: true, Mode: "scrolling", ModeSet: true, Verbose: true}
	require.NoError(t, opts.Apply(cfg))
	assert.Equal(t, 2, cfg.Audio.InputDevice)
	assert.Equal(t, "scrolling", cfg.Waveform.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)

	bad := &Options{Mode: "spiral", ModeSet: true}
	assert.Error(t, bad.Apply(config.NewConfig()))

	untouched := config.NewConfig()
	require.NoError(t, (&Options{DeviceID: 7}).Apply(untouched))
	assert.Equal(t, config.DefaultDeviceID, untouched.Audio.InputDevice)
}

func TestNeedsPortAudio(t *testing.T) {
	assert.False(t, (&Options{Command: CommandRender}).NeedsPortAudio())
	assert.True(t, (&Options{Command: CommandServe}).NeedsPortAudio())
	assert.True(t, (&Options{Command: CommandDictate}).NeedsPortAudio())
}

// writeWAV records one second of a sine into a 16-bit WAV file.
func writeWAV(t *testing.T, rate float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	src := audio.NewSampleStream(utils.GenerateSineWave(int(rate), rate, 440, 0.5), rate)
	rec, err := audio.StartRecording(src, path, 16)
	require.NoError(t, err)
	src.Advance(time.Second)
	require.NoError(t, rec.Stop())
	return path
}

func TestRender(t *testing.T) {
	in := writeWAV(t, 8000)
	out := filepath.Join(t.TempDir(), "frames")

	cfg := config.NewConfig()
	require.NoError(t, Render(context.Background(), cfg, in, out, 10, 5))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	// About 60 audio frames plus 5 tail frames, every 10th written.
	assert.InDelta(t, 7, len(entries), 1)
	assert.FileExists(t, filepath.Join(out, "frame-00000.png"))
}

func TestRenderCancelled(t *testing.T) {
	in := writeWAV(t, 8000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Render(ctx, config.NewConfig(), in, t.TempDir(), 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderMissingInput(t *testing.T) {
	err := Render(context.Background(), config.NewConfig(), filepath.Join(t.TempDir(), "none.wav"), t.TempDir(), 1, 0)
	assert.Error(t, err)
}

func TestNewFrameSink(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	cfg := config.NewConfig()
	cfg.Transport.UDPEnabled = true
	cfg.Transport.UDPTargetAddress = conn.LocalAddr().String()
	cfg.Transport.UDPSendInterval = 5 * time.Millisecond
	cfg.Transport.WebSocketEnabled = true
	cfg.Transport.WebSocketAddress = ""
	cfg.Debug = true

	sink, err := NewFrameSink(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, sink.Len())
	assert.NoError(t, sink.Close())

	empty, err := NewFrameSink(config.NewConfig())
	require.NoError(t, err)
	assert.Zero(t, empty.Len())

	bad := config.NewConfig()
	bad.Transport.UDPEnabled = true
	bad.Transport.UDPTargetAddress = "not an address"
	_, err = NewFrameSink(bad)
	assert.Error(t, err)
}
