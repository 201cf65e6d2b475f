package ld2450

import (
	"fmt"
	"sync"
	"time"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
	"github.com/NieRVoid/ld2450-driver/internal/monitoring"
)

// failureCapture is the bounded diagnostic buffer holding the raw bytes
// of the most recent transaction that failed before a complete ACK was
// assembled. At most one snapshot is kept.
type failureCapture struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

func (c *failureCapture) record(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data[:0], b...)
	c.set = true
}

func (c *failureCapture) snapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return nil
	}
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

// execute performs one command/ACK transaction: take the exclusive lock,
// establish a clean synchronisation point by discarding any stale input,
// transmit the command as a single write, then poll the port with short
// bounded reads, feeding the assembler until it produces a candidate ACK
// or the deadline passes. The returned slice is a copy; the session's
// scratch buffers are reused across transactions.
func (s *Session) execute(cmd frame.Command, payload []byte, timeout time.Duration) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrInvalidState
	}
	if !s.acquire(timeout) {
		return nil, fmt.Errorf("%w: command %04x", ErrBusy, uint16(cmd))
	}
	defer s.release()

	if err := s.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("%w: flush input: %v", ErrTransport, err)
	}

	s.cmdBuf = frame.Encode(s.cmdBuf[:0], cmd, payload)
	n, err := s.port.Write(s.cmdBuf)
	if err != nil {
		return nil, fmt.Errorf("%w: command %04x: %v", ErrTransport, uint16(cmd), err)
	}
	if n != len(s.cmdBuf) {
		return nil, fmt.Errorf("%w: command %04x: short write (%d/%d bytes)", ErrTransport, uint16(cmd), n, len(s.cmdBuf))
	}

	ack, err := s.awaitAck(cmd, timeout)
	if err != nil {
		return nil, err
	}

	if verr := frame.Validate(ack, cmd); verr != nil {
		return nil, fmt.Errorf("%w: command %04x: %w", ErrInvalidResponse, uint16(cmd), verr)
	}

	out := make([]byte, len(ack))
	copy(out, ack)
	return out, nil
}

// awaitAck drives the assembler until it yields a candidate frame. Each
// iteration waits for input with a short bounded read; overall elapsed
// time is checked against the deadline every pass, so the loop is never
// unbounded and never a busy spin.
func (s *Session) awaitAck(cmd frame.Command, timeout time.Duration) ([]byte, error) {
	s.asm.Reset()

	if err := s.port.SetReadTimeout(s.opts.ReadPoll); err != nil {
		return nil, fmt.Errorf("%w: set read timeout: %v", ErrTransport, err)
	}

	deadline := time.Now().Add(timeout)
	var chunk [frame.AckCapacity]byte
	for {
		if !time.Now().Before(deadline) {
			return nil, s.ackFailure(cmd, "deadline elapsed")
		}

		n, err := s.port.Read(chunk[:])
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", ErrTransport, err)
		}
		if n == 0 {
			continue // bounded wait elapsed with no new data
		}

		done, ferr := s.asm.Feed(chunk[:n])
		if ferr != nil {
			return nil, s.ackFailure(cmd, ferr.Error())
		}
		if done {
			return s.asm.Bytes(), nil
		}
	}
}

// ackFailure records the partial bytes for diagnostics and returns the
// transaction's timeout error.
func (s *Session) ackFailure(cmd frame.Command, reason string) error {
	got := s.asm.Bytes()
	s.failure.record(got)
	monitoring.HexDump(fmt.Sprintf("ld2450: incomplete ack for command %04x (%s)", uint16(cmd), reason), got)
	return fmt.Errorf("%w: command %04x: %s", ErrTimeout, uint16(cmd), reason)
}
