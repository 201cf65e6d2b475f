package ld2450

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
)

// monitorState tracks telemetry subscribers.
type monitorState struct {
	mu          sync.Mutex
	subscribers map[string]chan []byte
	closed      bool
}

func (m *monitorState) init() {
	m.subscribers = make(map[string]chan []byte)
}

func (m *monitorState) publish(frameBytes []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- frameBytes:
		default:
			// slow subscriber, drop rather than stall the monitor
		}
	}
}

func (m *monitorState) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Subscribe registers a channel receiving raw telemetry report frames
// (30 bytes each, header and footer included) seen by Monitor. The
// returned ID identifies the channel for Unsubscribe. Frames are dropped
// rather than queued when the subscriber falls behind.
func (s *Session) Subscribe() (string, <-chan []byte) {
	ch := make(chan []byte, 8)
	id := uuid.NewString()

	s.monitor.mu.Lock()
	defer s.monitor.mu.Unlock()
	if s.monitor.closed {
		close(ch)
		return id, ch
	}
	s.monitor.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Session) Unsubscribe(id string) {
	s.monitor.mu.Lock()
	defer s.monitor.mu.Unlock()
	if ch, ok := s.monitor.subscribers[id]; ok {
		close(ch)
		delete(s.monitor.subscribers, id)
	}
}

// Monitor consumes the sensor's free-running telemetry stream, extracting
// report frames and fanning each one out to subscribers. It honours the
// session's mode flag: while the session is configuring, the monitor
// leaves the port alone so the transaction engine has the byte stream to
// itself, and discards any partially accumulated frame.
//
// Monitor blocks until ctx is cancelled, the session is closed, or the
// port fails. Run it in its own goroutine. Interpretation of the frame
// contents is left to the subscriber.
func (s *Session) Monitor(ctx context.Context) error {
	buf := make([]byte, 2*frame.ReportFrameLen)
	var acc []byte

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.closed.Load() {
			return nil
		}

		if s.configuring.Load() {
			acc = acc[:0]
			time.Sleep(s.opts.ReadPoll)
			continue
		}

		if err := s.port.SetReadTimeout(s.opts.ReadPoll); err != nil {
			return fmt.Errorf("%w: set read timeout: %v", ErrTransport, err)
		}
		n, err := s.port.Read(buf)
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("%w: read: %v", ErrTransport, err)
		}
		if n == 0 {
			continue
		}

		acc = append(acc, buf[:n]...)
		acc = s.extractReports(acc)
	}
}

// extractReports publishes every complete report frame in acc and
// returns the unconsumed remainder.
func (s *Session) extractReports(acc []byte) []byte {
	for {
		i := bytes.Index(acc, frame.ReportHeader)
		if i < 0 {
			// Keep a potential partial header at the tail.
			keep := len(frame.ReportHeader) - 1
			if len(acc) > keep {
				acc = append(acc[:0], acc[len(acc)-keep:]...)
			}
			return acc
		}
		if i > 0 {
			acc = append(acc[:0], acc[i:]...)
		}
		if len(acc) < frame.ReportFrameLen {
			return acc
		}

		candidate := acc[:frame.ReportFrameLen]
		if bytes.Equal(candidate[frame.ReportFrameLen-len(frame.ReportFooter):], frame.ReportFooter) {
			out := make([]byte, frame.ReportFrameLen)
			copy(out, candidate)
			s.monitor.publish(out)
			acc = append(acc[:0], acc[frame.ReportFrameLen:]...)
		} else {
			// Header-shaped bytes without the matching footer: slide past
			// them and rescan.
			acc = append(acc[:0], acc[len(frame.ReportHeader):]...)
		}
	}
}
