package ld2450

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
)

// fwAckData builds the firmware ACK's result data: a 2-byte firmware
// type, the u16 main version and the u32 sub-version, little-endian.
func fwAckData(main uint16, sub uint32) []byte {
	return []byte{
		0x00, 0x01,
		byte(main), byte(main >> 8),
		byte(sub), byte(sub >> 8), byte(sub >> 16), byte(sub >> 24),
	}
}

func TestFirmwareVersionRetriesUntilSuccess(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		if cmd == frame.ReadFirmware {
			if attempt < 3 {
				return nil // first two attempts: no reply at all
			}
			return [][]byte{ackFor(cmd, 0, fwAckData(0x0102, 0x22062416))}
		}
		return [][]byte{ackFor(cmd, 0, nil)}
	})

	version, err := s.FirmwareVersion()
	require.NoError(t, err)
	assert.Equal(t, FirmwareVersion{Main: 0x0102, Sub: 0x22062416}, version)
	assert.Equal(t, "V1.02.22062416", version.String())
	assert.Equal(t, 3, dev.count(frame.ReadFirmware))
}

func TestFirmwareVersionExhaustsRetries(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		if cmd == frame.ReadFirmware {
			return nil
		}
		return [][]byte{ackFor(cmd, 0, nil)}
	})

	_, err := s.FirmwareVersion()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse,
		"exhausted retries surface as an invalid response, not a timeout")
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 3, dev.count(frame.ReadFirmware))
}

func TestFirmwareVersionShortAck(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		if cmd == frame.ReadFirmware {
			return [][]byte{ackFor(cmd, 0, []byte{0x00, 0x01})}
		}
		return [][]byte{ackFor(cmd, 0, nil)}
	})

	_, err := s.FirmwareVersion()
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 3, dev.count(frame.ReadFirmware), "a too-short ack is retried like any other failure")
}

func TestFirmwareVersionFirstTry(t *testing.T) {
	s, dev := newTestSession()
	defer s.Close()

	dev.setHandler(func(cmd frame.Command, payload []byte, attempt int) [][]byte {
		if cmd == frame.ReadFirmware {
			return [][]byte{ackFor(cmd, 0, fwAckData(0x0203, 0x23010101))}
		}
		return [][]byte{ackFor(cmd, 0, nil)}
	})

	version, err := s.FirmwareVersion()
	require.NoError(t, err)
	assert.Equal(t, "V2.03.23010101", version.String())
	assert.Equal(t, 1, dev.count(frame.ReadFirmware), "success short-circuits the retry loop")
}
