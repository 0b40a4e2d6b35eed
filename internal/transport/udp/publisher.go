// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	applog "dentvoice/internal/log"
	"dentvoice/internal/waveform"
)

// HeaderSize is the fixed part of a packet before the bars.
const HeaderSize = 4 + 8 + 1 + 2

// State byte flags. The low two bits carry waveform.State.
const (
	StateMask     = 0x03
	FlagProcess   = 0x04
	FlagSynthetic = 0x08
)

// UDPPublisher keeps the latest waveform frame and, on every interval,
// packs it into a binary packet sent through a UDPSender. It implements
// waveform.FrameSink. It runs in a separate goroutine managed by Start
// and Stop.
type UDPPublisher struct {
	sender   *UDPSender    // The underlying UDP sender instance.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Latest frame, copied out of the visualizer tick.
	frameMu    sync.Mutex
	hasFrame   bool
	frameTime  time.Time
	frameState uint8
	frameBars  []uint8

	// Reused by buildPacket; only touched by the publisher goroutine.
	sendBars     []uint8
	packetBuffer *bytes.Buffer
}

var _ waveform.FrameSink = (*UDPPublisher)(nil)

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Publish implements waveform.FrameSink by remembering a copy of f.
func (p *UDPPublisher) Publish(f *waveform.Frame) {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()
	p.hasFrame = true
	p.frameTime = f.Time
	p.frameState = EncodeState(f)
	p.frameBars = append(p.frameBars[:0], f.Values...)
}

// EncodeState packs a frame's state and flags into one byte.
func EncodeState(f *waveform.Frame) uint8 {
	b := uint8(f.State) & StateMask
	if f.Processing {
		b |= FlagProcess
	}
	if f.Synthetic {
		b |= FlagSynthetic
	}
	return b
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies keep the goroutine off p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		applog.Infof("UDPPublisher: Initiating stop sequence...")
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Frame time, ns since epoch |
| State             | uint8          | 1            | State and flags         |
| Bar Count         | uint16         | 2            | Number of bars (N)      |
| Bars              | []uint8        | N            | Bar magnitudes 0..255   |
+-----------------------------------------------------------------------------+
*/

// buildAndSendPacket packs the latest frame and sends it. Nothing is sent
// before the first frame arrives.
func (p *UDPPublisher) buildAndSendPacket() {
	p.frameMu.Lock()
	if !p.hasFrame {
		p.frameMu.Unlock()
		return
	}
	ts := p.frameTime.UnixNano()
	state := p.frameState
	p.sendBars = append(p.sendBars[:0], p.frameBars...)
	p.frameMu.Unlock()

	p.sequenceNum++
	if err := writePacket(p.packetBuffer, p.sequenceNum, ts, state, p.sendBars); err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	packetBytes := p.packetBuffer.Bytes()
	if err := p.sender.Send(packetBytes); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
	}
}

func writePacket(buf *bytes.Buffer, seq uint32, ts int64, state uint8, bars []uint8) error {
	if len(bars) > math.MaxUint16 {
		return fmt.Errorf("too many bars: %d", len(bars))
	}
	buf.Reset()
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, ts)
	}
	if err == nil {
		err = buf.WriteByte(state)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(bars)))
	}
	if err == nil {
		_, err = buf.Write(bars)
	}
	return err
}

// Packet is a decoded publisher packet.
type Packet struct {
	Seq       uint32
	Timestamp int64
	State     uint8
	Bars      []uint8
}

// ErrShortPacket reports a packet shorter than its header claims.
var ErrShortPacket = errors.New("udp: short packet")

// DecodePacket parses a packet built by UDPPublisher.
func DecodePacket(data []byte) (Packet, error) {
	var pkt Packet
	r := bytes.NewReader(data)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &pkt.Seq); err != nil {
		return pkt, ErrShortPacket
	}
	if err := binary.Read(r, binary.BigEndian, &pkt.Timestamp); err != nil {
		return pkt, ErrShortPacket
	}
	if err := binary.Read(r, binary.BigEndian, &pkt.State); err != nil {
		return pkt, ErrShortPacket
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return pkt, ErrShortPacket
	}
	pkt.Bars = make([]uint8, count)
	if _, err := io.ReadFull(r, pkt.Bars); err != nil {
		return pkt, ErrShortPacket
	}
	return pkt, nil
}

// Close stops the publisher and closes its sender.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called, stopping publisher...")
	return errors.Join(p.Stop(), p.sender.Close())
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
