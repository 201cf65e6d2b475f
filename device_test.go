package ld2450

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
	"github.com/NieRVoid/ld2450-driver/internal/serialmux"
)

// ackFor synthesizes a well-formed ACK frame for cmd with the given
// status word and result data.
func ackFor(cmd frame.Command, status uint16, data []byte) []byte {
	payload := make([]byte, 0, 4+len(data))
	payload = append(payload, byte(cmd), 0x01)
	payload = binary.LittleEndian.AppendUint16(payload, status)
	payload = append(payload, data...)

	ack := append([]byte{}, frame.ConfigHeader...)
	ack = binary.LittleEndian.AppendUint16(ack, uint16(len(payload)))
	ack = append(ack, payload...)
	ack = append(ack, frame.ConfigFooter...)
	return ack
}

// telemetryFrame builds a complete 30-byte report frame with arbitrary
// target bytes.
func telemetryFrame(fill byte) []byte {
	f := append([]byte{}, frame.ReportHeader...)
	for i := 0; i < frame.ReportFrameLen-len(frame.ReportHeader)-len(frame.ReportFooter); i++ {
		f = append(f, fill)
	}
	return append(f, frame.ReportFooter...)
}

// fakeDevice scripts an LD2450 behind a TestablePort: every well-formed
// command frame written to the port is decoded and answered by the
// handler, whose chunks are queued for subsequent reads. With no handler
// every command is ACKed with a zero status.
type fakeDevice struct {
	*serialmux.TestablePort

	mu       sync.Mutex
	counts   map[frame.Command]int
	payloads map[frame.Command][][]byte

	// handler maps a decoded command to response chunks. attempt counts
	// from 1 per command. A nil return means no response at all.
	handler func(cmd frame.Command, payload []byte, attempt int) [][]byte
}

func newFakeDevice() *fakeDevice {
	d := &fakeDevice{
		TestablePort: serialmux.NewTestablePort(),
		counts:       make(map[frame.Command]int),
		payloads:     make(map[frame.Command][][]byte),
	}
	d.OnWrite = d.handleWrite
	return d
}

func (d *fakeDevice) handleWrite(p []byte) {
	if len(p) < 12 || !bytes.Equal(p[:4], frame.ConfigHeader) || !bytes.Equal(p[len(p)-4:], frame.ConfigFooter) {
		return
	}
	cmd := frame.Command(binary.LittleEndian.Uint16(p[6:8]))
	payload := append([]byte{}, p[8:len(p)-4]...)

	d.mu.Lock()
	d.counts[cmd]++
	attempt := d.counts[cmd]
	d.payloads[cmd] = append(d.payloads[cmd], payload)
	handler := d.handler
	d.mu.Unlock()

	if handler == nil {
		d.AddReadData(ackFor(cmd, 0, nil))
		return
	}
	for _, chunk := range handler(cmd, payload, attempt) {
		d.AddReadData(chunk)
	}
}

func (d *fakeDevice) setHandler(h func(cmd frame.Command, payload []byte, attempt int) [][]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

func (d *fakeDevice) count(cmd frame.Command) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[cmd]
}

func (d *fakeDevice) sentPayloads(cmd frame.Command) [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte{}, d.payloads[cmd]...)
}

// testOptions keeps the tests fast while preserving the ordering of the
// real delays.
func testOptions() Options {
	return Options{
		ConfigTimeout:    200 * time.Millisecond,
		FirmwareTimeout:  60 * time.Millisecond,
		FirmwareAttempts: 3,
		EnterSettle:      time.Millisecond,
		FirmwareSettle:   time.Millisecond,
		RetryBackoff:     time.Millisecond,
		RestartSettle:    5 * time.Millisecond,
		ReadPoll:         2 * time.Millisecond,
	}
}

func newTestSession() (*Session, *fakeDevice) {
	dev := newFakeDevice()
	return New(dev, testOptions()), dev
}
