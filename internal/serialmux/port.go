// Package serialmux abstracts the serial port underneath the LD2450
// driver. The driver needs three capabilities beyond plain byte I/O: a
// read with a bounded wait (so ACK polling is responsive without busy
// spinning), a way to discard buffered input before a transaction, and
// port configuration. The abstraction enables unit testing without real
// serial hardware.
package serialmux

import (
	"io"
	"time"
)

// Porter is the minimal interface the driver requires from a serial
// port. go.bug.st/serial ports satisfy it directly.
type Porter interface {
	io.ReadWriter
	io.Closer

	// SetReadTimeout bounds how long a Read blocks waiting for data.
	// After the timeout elapses with no data, Read returns (0, nil).
	SetReadTimeout(timeout time.Duration) error

	// ResetInputBuffer discards all buffered, unread input.
	ResetInputBuffer() error
}

// Factory defines an interface for creating serial ports. This
// abstraction enables dependency injection of serial port creation.
type Factory interface {
	// Open opens a serial port at the specified path with the given
	// options.
	Open(path string, opts PortOptions) (Porter, error)
}
