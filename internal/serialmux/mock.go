package serialmux

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrPortClosed is returned by TestablePort operations after Close.
var ErrPortClosed = errors.New("serial port closed")

// TestablePort implements Porter with configurable behaviour for
// testing. Reads honour the configured read timeout the way
// go.bug.st/serial does: a Read with no data available blocks until data
// arrives or the timeout elapses, then returns (0, nil). Queued data is
// delivered chunk by chunk, one chunk per Read, mirroring how a UART
// hands bytes to the host in bursts.
type TestablePort struct {
	mu       sync.Mutex
	readCond *sync.Cond

	readChunks [][]byte
	writeBuf   bytes.Buffer

	readTimeout time.Duration
	closed      bool

	// ReadError is returned by the next Read call if set.
	ReadError error

	// WriteError is returned by the next Write call if set.
	WriteError error

	// ShortWrite truncates the next Write to half its length.
	ShortWrite bool

	// OnWrite, if set, is invoked (without the lock held) with a copy of
	// each successfully written chunk. Tests use it to script device
	// responses.
	OnWrite func(p []byte)

	// Counters.
	ReadCalls  int
	WriteCalls int
	FlushCalls int
}

// NewTestablePort creates a TestablePort ready for use.
func NewTestablePort() *TestablePort {
	p := &TestablePort{}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

// Read returns buffered data, waiting up to the configured read timeout
// for some to arrive.
func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadCalls++

	if p.closed {
		return 0, ErrPortClosed
	}
	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}

	if len(p.readChunks) == 0 {
		deadline := time.Now().Add(p.readTimeout)
		for len(p.readChunks) == 0 && !p.closed {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return 0, nil // timeout, go.bug.st style
			}
			waitLocked(p.readCond, remaining)
		}
		if p.closed {
			return 0, ErrPortClosed
		}
	}

	chunk := p.readChunks[0]
	n := copy(b, chunk)
	if n < len(chunk) {
		p.readChunks[0] = chunk[n:]
	} else {
		p.readChunks = p.readChunks[1:]
	}
	return n, nil
}

// waitLocked waits on cond with an upper bound, since sync.Cond has no
// timed wait. The wakeup goroutine re-signals so at most one spurious
// wakeup per call occurs.
func waitLocked(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, cond.Broadcast)
	cond.Wait()
	timer.Stop()
}

// Write captures data written to the port.
func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()

	p.WriteCalls++

	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		p.mu.Unlock()
		return 0, err
	}

	n := len(b)
	if p.ShortWrite {
		p.ShortWrite = false
		n = len(b) / 2
	}
	p.writeBuf.Write(b[:n])
	onWrite := p.OnWrite
	p.mu.Unlock()

	if onWrite != nil && n == len(b) {
		chunk := make([]byte, n)
		copy(chunk, b)
		onWrite(chunk)
	}
	return n, nil
}

// Close marks the port as closed and wakes any blocked readers.
func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.readCond.Broadcast()
	return nil
}

// SetReadTimeout implements Porter.
func (p *TestablePort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.readTimeout = timeout
	return nil
}

// ResetInputBuffer implements Porter by discarding all buffered input.
func (p *TestablePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.FlushCalls++
	p.readChunks = nil
	return nil
}

// AddReadData queues one chunk of data, delivered by a single later Read
// call, and wakes a blocked reader.
func (p *TestablePort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	chunk := make([]byte, len(data))
	copy(chunk, data)
	p.readChunks = append(p.readChunks, chunk)
	p.readCond.Broadcast()
}

// WrittenData returns a copy of everything written to the port.
func (p *TestablePort) WrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, p.writeBuf.Len())
	copy(out, p.writeBuf.Bytes())
	return out
}

// MockFactory implements Factory for testing.
type MockFactory struct {
	mu sync.Mutex

	// Port is the port to return from Open.
	Port Porter

	// Err is returned by Open if set.
	Err error

	// OpenCalls records all Open calls.
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path string
	Opts PortOptions
}

// Open returns the configured port or error.
func (f *MockFactory) Open(path string, opts PortOptions) (Porter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{Path: path, Opts: opts})
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Port, nil
}
