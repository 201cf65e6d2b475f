package frame

import "bytes"

// AckCapacity is the fixed size of the ACK accumulation buffer. The
// largest real ACK (QUERY_REGION, 40 bytes) fits with room for a little
// leading noise.
const AckCapacity = 64

// Assembler incrementally recovers one configuration ACK frame from a
// byte stream that may also carry telemetry report bytes. Mode
// transitions are not atomic at the sensor, so the first bytes after a
// command are frequently the tail of a report frame rather than the ACK.
//
// The policy is deliberately conservative: while the configuration header
// has not been confirmed, a buffer whose first four bytes match the
// report header is discarded wholesale and accumulation restarts from
// empty. Resynchronisation therefore only ever happens at offset 0; a
// footer-shaped tail in the wrong place never triggers a reset.
type Assembler struct {
	buf        [AckCapacity]byte
	n          int
	headerSeen bool
	done       bool
}

// Reset discards all accumulated bytes and state.
func (a *Assembler) Reset() {
	a.n = 0
	a.headerSeen = false
	a.done = false
}

// Feed consumes the next chunk read from the transport. It returns true
// once the buffer holds a complete candidate ACK frame, and ErrOverflow
// if the accumulation would exceed the fixed capacity before a candidate
// is found. The bytes collected so far remain available via Bytes on
// either outcome.
func (a *Assembler) Feed(chunk []byte) (bool, error) {
	if a.done {
		return true, nil
	}

	overflow := false
	if len(chunk) > AckCapacity-a.n {
		chunk = chunk[:AckCapacity-a.n]
		overflow = true
	}
	copy(a.buf[a.n:], chunk)
	a.n += len(chunk)

	if !a.headerSeen && a.n >= 4 {
		if bytes.Equal(a.buf[:4], ReportHeader) {
			// A report frame arrived instead of our ACK. Start over.
			a.n = 0
			return false, nil
		}
		if bytes.Equal(a.buf[:4], ConfigHeader) {
			a.headerSeen = true
		}
	}

	if a.headerSeen && a.n >= minAckScan {
		if bytes.Equal(a.buf[a.n-4:a.n], ConfigFooter) {
			a.done = true
			return true, nil
		}
	}

	if overflow || a.n == AckCapacity {
		return false, ErrOverflow
	}
	return false, nil
}

// Bytes returns the accumulated bytes. On success this is the candidate
// ACK frame; on failure it is whatever arrived, for diagnostics.
func (a *Assembler) Bytes() []byte {
	return a.buf[:a.n]
}

// Complete reports whether a candidate frame has been assembled.
func (a *Assembler) Complete() bool {
	return a.done
}
