package serialmux

import (
	"go.bug.st/serial"
)

// Open opens a real serial port at the given path using the provided
// options.
func Open(path string, opts PortOptions) (Porter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}

// RealFactory implements Factory using go.bug.st/serial.
type RealFactory struct{}

// Open opens a serial port at the specified path with the given options.
func (RealFactory) Open(path string, opts PortOptions) (Porter, error) {
	return Open(path, opts)
}
