// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dentvoice/internal/waveform"
	"dentvoice/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() *waveform.Frame {
	return &waveform.Frame{
		Seq:        7,
		Time:       time.UnixMilli(1700000000123),
		State:      waveform.Capturing,
		Processing: true,
		Mode:       waveform.Scrolling,
		Color:      waveform.ProcessingColor,
		Values:     []uint8{0, 128, 255},
	}
}

func TestNewFrameMessage(t *testing.T) {
	f := testFrame()
	msg := NewFrameMessage(f)
	f.Values[0] = 99

	assert.Equal(t, FrameMessage{
		Type:       "frame",
		Seq:        7,
		Timestamp:  1700000000123,
		State:      "capturing",
		Processing: true,
		Mode:       "scrolling",
		Color:      "#2196f3",
		Bars:       []int{0, 128, 255},
	}, msg)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bars":[0,128,255]`)
	assert.NotContains(t, string(data), "synthetic")
}

type errTransport struct{ closed bool }

func (e *errTransport) Send(any) error { return errors.New("unreachable") }
func (e *errTransport) Close() error {
	e.closed = true
	return nil
}

type countingSink struct{ frames int }

func (c *countingSink) Publish(*waveform.Frame) { c.frames++ }

func TestSinkFansOut(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	nested := &countingSink{}
	s := NewSink(a)
	s.AddTransport(b)
	s.AddSink(nested)
	assert.Equal(t, 3, s.Len())

	s.Publish(testFrame())
	s.Publish(testFrame())

	require.Len(t, a.Sent(), 2)
	require.Len(t, b.Sent(), 2)
	assert.Equal(t, 2, nested.frames)
	msg, ok := a.Sent()[0].(FrameMessage)
	require.True(t, ok)
	assert.Equal(t, uint64(7), msg.Seq)
}

func TestSinkCountsErrorsAndCloses(t *testing.T) {
	bad := &errTransport{}
	good := &utils.MockTransport{}
	s := NewSink(bad, good)

	s.Publish(testFrame())
	s.Publish(testFrame())
	assert.Equal(t, uint64(2), s.SendErrors())
	assert.Len(t, good.Sent(), 2)

	require.NoError(t, s.Close())
	assert.True(t, bad.closed)
	assert.True(t, good.Closed())
	assert.Zero(t, s.Len())
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	assert.NoError(t, lt.Send(NewFrameMessage(testFrame())))
	assert.NoError(t, lt.Send(func() {}))
	assert.NoError(t, lt.Close())
}
