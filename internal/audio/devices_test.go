// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Errorf("Failed to terminate PortAudio: %v", err)
		}
	})
}

func fakeDevices(t *testing.T, infos []*portaudio.DeviceInfo, def *portaudio.DeviceInfo) {
	t.Helper()
	origDevices, origDefault := paDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origDefault
	})
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return infos, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if def == nil {
			return nil, fmt.Errorf("no default")
		}
		return def, nil
	}
}

var (
	builtinMic = &portaudio.DeviceInfo{
		Name:                    "Built-in Microphone",
		MaxInputChannels:        1,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  3 * time.Millisecond,
		DefaultHighInputLatency: 12 * time.Millisecond,
	}
	speakers = &portaudio.DeviceInfo{
		Name:              "Speakers",
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
	}
	headset = &portaudio.DeviceInfo{
		Name:              "USB Headset",
		MaxInputChannels:  1,
		MaxOutputChannels: 2,
		DefaultSampleRate: 16000,
	}
)

func TestHostDevices(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{builtinMic, speakers, headset}, builtinMic)

	devices, err := HostDevices()
	require.NoError(t, err)
	require.Len(t, devices, 3)

	for i, d := range devices {
		assert.Equal(t, i, d.ID)
	}
	assert.Equal(t, "Input", devices[0].Kind())
	assert.Equal(t, "Output", devices[1].Kind())
	assert.Equal(t, "Input/Output", devices[2].Kind())
	assert.True(t, devices[2].IsInput())
	assert.False(t, devices[1].IsInput())
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{builtinMic, speakers, headset}, builtinMic)

	dev, err := InputDevice(-1)
	require.NoError(t, err)
	assert.Equal(t, builtinMic.Name, dev.Name)

	dev, err = InputDevice(2)
	require.NoError(t, err)
	assert.Equal(t, headset.Name, dev.Name)

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 13, "invalid device ID"},
		{"Non-input device", 1, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
			assert.ErrorIs(t, err, ErrDeviceUnavailable)
		})
	}
}

func TestInputDevice_ListingErrorIsUnavailable(t *testing.T) {
	fakeDevices(t, nil, builtinMic)
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := InputDevice(2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Contains(t, err.Error(), "mock error")
}

func TestInputDevice_NoDefaultIsUnavailable(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{speakers}, nil)

	_, err := InputDevice(-1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestListDevices(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{builtinMic, speakers}, builtinMic)

	var buf bytes.Buffer
	require.NoError(t, ListDevices(&buf))
	out := buf.String()
	assert.Contains(t, out, "[0] Built-in Microphone (Input)")
	assert.Contains(t, out, "[1] Speakers (Output)")
	assert.Contains(t, out, "Latency: Low=3.00ms, High=12.00ms")
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"device unavailable", fmt.Errorf("open: %w", portaudio.DeviceUnavailable), ErrDeviceUnavailable},
		{"invalid device", portaudio.InvalidDevice, ErrDeviceUnavailable},
		{"host error", portaudio.UnanticipatedHostError{Text: "access denied"}, ErrPermissionDenied},
		{"already classified", fmt.Errorf("x: %w", ErrPermissionDenied), ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyError(tt.err), tt.want)
		})
	}

	other := errors.New("sample rate not supported")
	assert.Equal(t, other, classifyError(other))
	assert.NoError(t, classifyError(nil))
}

func TestHostDevicesOnHardware(t *testing.T) {
	setupPortAudio(t)

	devices, err := HostDevices()
	require.NoError(t, err)
	if len(devices) == 0 {
		t.Skip("No audio devices found on system")
	}
	for i, d := range devices {
		assert.Equal(t, i, d.ID)
		assert.NotEmpty(t, d.Name)
	}
}
