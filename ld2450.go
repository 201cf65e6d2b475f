// Package ld2450 drives the HLK-LD2450 24GHz radar sensor over a serial
// port.
//
// The sensor has two mutually exclusive regimes. In normal mode it
// free-runs, streaming unsolicited target report frames; in
// configuration mode it services command/ACK transactions that read or
// change device settings. Every public configuration operation here
// brackets its command between an enter-configuration and an
// exit-configuration exchange, and the transaction engine resynchronises
// the shared byte stream so that report bytes still in flight around a
// mode transition are discarded rather than misread as an ACK.
//
// A Session serialises all transactions through an exclusive lock, so it
// is safe for concurrent use. The lock is held per transaction, not for
// a whole enter/body/exit bracket: two goroutines issuing bracketed
// operations concurrently can interleave between the three exchanges and
// observe an inconsistent view of the device's mode, even though no
// single transaction is corrupted. Callers that need a fully atomic
// multi-command bracket should serialise at their own level and compose
// one with EnterConfigMode and ExitConfigMode.
package ld2450

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
	"github.com/NieRVoid/ld2450-driver/internal/serialmux"
)

// Error kinds returned by Session operations. Errors are wrapped, match
// with errors.Is.
var (
	// ErrInvalidArgument reports malformed caller input, such as an
	// unknown baud rate index.
	ErrInvalidArgument = errors.New("ld2450: invalid argument")

	// ErrInvalidState reports an operation on a closed session.
	ErrInvalidState = errors.New("ld2450: session closed")

	// ErrBusy reports that the exclusive transaction lock could not be
	// acquired within the operation's time budget.
	ErrBusy = errors.New("ld2450: device busy")

	// ErrTransport reports a failed or short write to the serial port.
	ErrTransport = errors.New("ld2450: transport failure")

	// ErrTimeout reports that no complete ACK candidate arrived before
	// the deadline. The bytes collected so far are retrievable via
	// LastFailureData.
	ErrTimeout = errors.New("ld2450: timed out waiting for ack")

	// ErrInvalidResponse reports an ACK that failed validation, or a
	// retried query that never produced a usable reply.
	ErrInvalidResponse = errors.New("ld2450: invalid response")

	// ErrDeviceRejected reports a nonzero status word in an otherwise
	// well-formed ACK. It is always accompanied by ErrInvalidResponse.
	ErrDeviceRejected = frame.ErrDeviceRejected
)

// Options tunes the session's timeouts and settle delays. The zero value
// takes the defaults, which match the sensor's observed behaviour.
type Options struct {
	// ConfigTimeout bounds a single command/ACK transaction.
	ConfigTimeout time.Duration // default 3s

	// FirmwareTimeout bounds each firmware-version query attempt. It is
	// deliberately shorter than ConfigTimeout so the retry loop gets
	// several attempts within one operation.
	FirmwareTimeout time.Duration // default 1s

	// FirmwareAttempts is the number of firmware-version query attempts.
	FirmwareAttempts int // default 3

	// EnterSettle is the pause after flagging configuration intent,
	// giving the telemetry monitor time to stop consuming the port.
	EnterSettle time.Duration // default 50ms

	// FirmwareSettle is the extra pause after entering configuration
	// mode before the first firmware-version attempt.
	FirmwareSettle time.Duration // default 100ms

	// RetryBackoff is the pause between firmware-version attempts.
	RetryBackoff time.Duration // default 200ms

	// RestartSettle is how long to wait for the module to reboot after a
	// successful restart command.
	RestartSettle time.Duration // default 1s

	// ReadPoll is the bounded sub-wait of each read while polling for an
	// ACK.
	ReadPoll time.Duration // default 10ms
}

func (o Options) withDefaults() Options {
	if o.ConfigTimeout <= 0 {
		o.ConfigTimeout = 3 * time.Second
	}
	if o.FirmwareTimeout <= 0 {
		o.FirmwareTimeout = time.Second
	}
	if o.FirmwareAttempts <= 0 {
		o.FirmwareAttempts = 3
	}
	if o.EnterSettle <= 0 {
		o.EnterSettle = 50 * time.Millisecond
	}
	if o.FirmwareSettle <= 0 {
		o.FirmwareSettle = 100 * time.Millisecond
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	if o.RestartSettle <= 0 {
		o.RestartSettle = time.Second
	}
	if o.ReadPoll <= 0 {
		o.ReadPoll = 10 * time.Millisecond
	}
	return o
}

// Session is the driver's handle on one physical sensor. Create it with
// New or Open and release it with Close.
type Session struct {
	port serialmux.Porter
	opts Options

	// txSem is the exclusive transaction lock. The scratch buffers below
	// are touched only while it is held.
	txSem  chan struct{}
	cmdBuf []byte
	asm    frame.Assembler

	// configuring is the mode flag: false = normal (free-running
	// telemetry), true = configuring. Readable without the lock as a
	// best-effort hint for the telemetry monitor.
	configuring atomic.Bool

	// failure holds the most recent failed-transaction capture; a new
	// failure overwrites the previous one.
	failure failureCapture

	monitor monitorState

	closed atomic.Bool
}

// New wraps an already-open serial port in a Session. The session takes
// ownership of the port; Close closes it.
func New(port serialmux.Porter, opts Options) *Session {
	s := &Session{
		port:   port,
		opts:   opts.withDefaults(),
		txSem:  make(chan struct{}, 1),
		cmdBuf: make([]byte, 0, frame.MaxCommandLen),
	}
	s.monitor.init()
	return s
}

// Open opens the serial port at path with the given port options and
// returns a Session bound to it.
func Open(path string, popts serialmux.PortOptions, opts Options) (*Session, error) {
	port, err := serialmux.Open(path, popts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return New(port, opts), nil
}

// Close shuts the session down and closes the underlying port. Telemetry
// subscribers are unsubscribed and their channels closed.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.monitor.closeAll()
	return s.port.Close()
}

// Configuring reports whether the session is in (or entering)
// configuration mode. Cooperating telemetry consumers poll this to know
// when to leave the byte stream alone. It is a hint, not a
// synchronisation point.
func (s *Session) Configuring() bool {
	return s.configuring.Load()
}

// LastFailureData returns a copy of the raw bytes collected during the
// most recent transaction that failed before a complete ACK was
// assembled. It returns nil if no such failure has occurred.
func (s *Session) LastFailureData() []byte {
	return s.failure.snapshot()
}

// acquire takes the exclusive transaction lock, waiting at most the
// given bound.
func (s *Session) acquire(wait time.Duration) bool {
	select {
	case s.txSem <- struct{}{}:
		return true
	default:
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case s.txSem <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Session) release() {
	<-s.txSem
}
