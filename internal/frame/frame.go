// Package frame implements the LD2450 configuration frame format: the
// fixed binary envelope used for command/ACK exchanges, and the stream
// assembler that recovers ACK frames from a byte stream shared with the
// sensor's unsolicited telemetry reports.
//
// All multi-byte fields are little-endian. A configuration frame is:
//
//	offset 0   magic header (4 bytes)
//	offset 4   length = payload length + 2 (2 bytes)
//	offset 6   command code (2 bytes)
//	offset 8   payload (0-26 bytes)
//	offset 8+n magic footer (4 bytes)
//
// In an ACK the command-code field carries the low byte of the echoed
// command followed by the 0x01 response marker, and the first two payload
// bytes are the status word (0 = success).
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Command identifies a configuration command word.
type Command uint16

const (
	EnableConfig    Command = 0x00FF
	EndConfig       Command = 0x00FE
	SingleTarget    Command = 0x0080
	MultiTarget     Command = 0x0090
	QueryTargetMode Command = 0x0091
	ReadFirmware    Command = 0x00A0
	SetBaudRate     Command = 0x00A1
	RestoreFactory  Command = 0x00A2
	RestartModule   Command = 0x00A3
	SetBluetooth    Command = 0x00A4
	GetMACAddress   Command = 0x00A5
	QueryRegion     Command = 0x00C1
	SetRegion       Command = 0x00C2
)

var (
	// ConfigHeader and ConfigFooter delimit configuration-family frames
	// (commands and their ACKs).
	ConfigHeader = []byte{0xFD, 0xFC, 0xFB, 0xFA}
	ConfigFooter = []byte{0x04, 0x03, 0x02, 0x01}

	// ReportHeader and ReportFooter delimit telemetry report frames. The
	// assembler uses only the header, to recognise and discard report
	// bytes that arrive while waiting for an ACK.
	ReportHeader = []byte{0xAA, 0xFF, 0x03, 0x00}
	ReportFooter = []byte{0x55, 0xCC}
)

const (
	// MaxValueLen is the largest command payload (SET_REGION: 2-byte
	// filter type plus three 8-byte regions).
	MaxValueLen = 26

	// MaxCommandLen bounds an encoded command frame.
	MaxCommandLen = 8 + MaxValueLen + 4

	// ReportFrameLen is the fixed size of a telemetry report frame.
	ReportFrameLen = 30

	// minAckLen is the shortest buffer Validate will look at: header,
	// length, command echo and status word must all be addressable.
	minAckLen = 10

	// minAckScan is the accumulated length at which the assembler starts
	// checking for the frame footer.
	minAckScan = 12

	// ackMarker is the fixed response value in the high byte of an ACK's
	// command-code field.
	ackMarker = 0x01
)

var (
	ErrTooShort       = errors.New("ack frame too short")
	ErrFraming        = errors.New("ack header/footer mismatch")
	ErrUnexpectedEcho = errors.New("ack command echo mismatch")
	ErrDeviceRejected = errors.New("device rejected command")
	ErrOverflow       = errors.New("ack buffer exhausted")
)

// Encode appends a complete command frame for cmd with the given payload
// to dst and returns the extended slice. Encode does not bound-check the
// payload against a command-specific size; callers pass payloads built by
// this module, and the session's fixed-capacity scratch buffer bounds the
// total in any case.
func Encode(dst []byte, cmd Command, payload []byte) []byte {
	dst = append(dst, ConfigHeader...)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)+2))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(cmd))
	dst = append(dst, payload...)
	dst = append(dst, ConfigFooter...)
	return dst
}

// Validate checks that ack is a well-formed, successful ACK for cmd.
// Every fixed-offset access is length-guarded first, so Validate never
// panics on malformed input.
func Validate(ack []byte, cmd Command) error {
	if len(ack) < minAckLen {
		return ErrTooShort
	}
	if !bytes.Equal(ack[:4], ConfigHeader) || !bytes.Equal(ack[len(ack)-4:], ConfigFooter) {
		return ErrFraming
	}
	if ack[6] != byte(cmd) || ack[7] != ackMarker {
		return ErrUnexpectedEcho
	}
	if binary.LittleEndian.Uint16(ack[8:10]) != 0 {
		return ErrDeviceRejected
	}
	return nil
}
