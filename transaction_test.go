package ld2450

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
)

func TestExecuteSuccess(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	ack, err := s.execute(frame.EndConfig, nil, s.opts.ConfigTimeout)
	require.NoError(t, err)
	assert.Equal(t, ackFor(frame.EndConfig, 0, nil), ack)
	assert.Equal(t, 1, dev.count(frame.EndConfig))
}

// Telemetry frames still arriving when a command is issued must be
// discarded; the ACK that follows them is recovered intact.
func TestExecuteResynchronisesPastTelemetry(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	want := ackFor(frame.EnableConfig, 0, []byte{0x01, 0x00})
	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		return [][]byte{telemetryFrame(0x11), telemetryFrame(0x22), want}
	})

	start := time.Now()
	ack, err := s.execute(frame.EnableConfig, enableConfigValue, s.opts.ConfigTimeout)
	require.NoError(t, err)
	assert.Equal(t, want, ack)
	assert.Less(t, time.Since(start), s.opts.ConfigTimeout, "resynchronisation should complete well before the deadline")
}

func TestExecuteTimeoutCapturesPartialBytes(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	partial := []byte{0xFD, 0xFC, 0xFB, 0xFA, 0x02, 0x00}
	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		return [][]byte{partial}
	})

	_, err := s.execute(frame.EndConfig, nil, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, partial, s.LastFailureData())
}

func TestExecuteOverwritesFailureCapture(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	first := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	second := []byte{0xFD, 0xFC, 0xFB, 0xFA, 0x09}
	reply := first
	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		return [][]byte{reply}
	})

	_, err := s.execute(frame.EndConfig, nil, 30*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	reply = second
	_, err = s.execute(frame.EndConfig, nil, 30*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, second, s.LastFailureData(), "most recent failure should overwrite the previous capture")
}

func TestExecuteBusy(t *testing.T) {
	s, _ := newTestSession()
	defer s.Close()

	s.txSem <- struct{}{} // hold the transaction lock
	defer func() { <-s.txSem }()

	_, err := s.execute(frame.EndConfig, nil, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestExecuteShortWrite(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	dev.ShortWrite = true
	_, err := s.execute(frame.EndConfig, nil, s.opts.ConfigTimeout)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestExecuteWriteError(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	dev.WriteError = assert.AnError
	_, err := s.execute(frame.EndConfig, nil, s.opts.ConfigTimeout)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestExecuteDeviceRejected(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		return [][]byte{ackFor(cmd, 1, nil)}
	})

	_, err := s.execute(frame.RestoreFactory, nil, s.opts.ConfigTimeout)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.ErrorIs(t, err, ErrDeviceRejected)
}

func TestExecuteFlushesStaleInput(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	// A stale ACK from some abandoned earlier attempt is sitting in the
	// input buffer. The transaction must discard it before transmitting.
	dev.AddReadData(ackFor(frame.EndConfig, 1, nil))

	ack, err := s.execute(frame.EndConfig, nil, s.opts.ConfigTimeout)
	require.NoError(t, err)
	assert.Equal(t, ackFor(frame.EndConfig, 0, nil), ack)
}

func TestExecuteClosedSession(t *testing.T) {
	s, _ := newTestSession()
	require.NoError(t, s.Close())

	_, err := s.execute(frame.EndConfig, nil, s.opts.ConfigTimeout)
	assert.ErrorIs(t, err, ErrInvalidState)
}
