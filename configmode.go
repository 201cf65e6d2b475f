package ld2450

import (
	"fmt"
	"time"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
	"github.com/NieRVoid/ld2450-driver/internal/monitoring"
)

// enableConfigValue is the fixed 0x0001 command value for ENABLE_CONFIG
// (and for GET_MAC_ADDRESS, which reuses it).
var enableConfigValue = []byte{0x01, 0x00}

// EnterConfigMode switches the sensor from free-running telemetry into
// configuration mode. It is a no-op if the session is already
// configuring.
//
// The mode flag is raised before anything touches the wire so that a
// cooperating telemetry consumer can observe it and stop reading the
// port; a short settle delay gives it time to do so. If the sensor does
// not acknowledge the switch, the flag is reverted: the session never
// claims to be configuring unless the device agreed.
func (s *Session) EnterConfigMode() error {
	if s.configuring.Load() {
		return nil
	}

	s.configuring.Store(true)
	time.Sleep(s.opts.EnterSettle)
	if err := s.port.ResetInputBuffer(); err != nil {
		s.configuring.Store(false)
		return fmt.Errorf("%w: flush input: %v", ErrTransport, err)
	}

	if _, err := s.execute(frame.EnableConfig, enableConfigValue, s.opts.ConfigTimeout); err != nil {
		s.configuring.Store(false)
		return fmt.Errorf("enter config mode: %w", err)
	}
	return nil
}

// ExitConfigMode returns the sensor to normal free-running mode. It is a
// no-op if the session is not configuring. On failure the session stays
// flagged as configuring: the command channel may well still be open,
// and claiming otherwise would mislead the next caller.
func (s *Session) ExitConfigMode() error {
	if !s.configuring.Load() {
		return nil
	}

	if _, err := s.execute(frame.EndConfig, nil, s.opts.ConfigTimeout); err != nil {
		return fmt.Errorf("exit config mode: %w", err)
	}
	s.configuring.Store(false)
	return nil
}

// withConfigMode runs body bracketed by EnterConfigMode/ExitConfigMode.
// The reported result is the first non-success of {enter, body}; when
// both succeed it is the exit result, so a body whose subsequent exit
// fails is reported as a failure even though the change took effect.
func (s *Session) withConfigMode(body func() error) error {
	if err := s.EnterConfigMode(); err != nil {
		return err
	}

	bodyErr := body()
	exitErr := s.ExitConfigMode()

	if bodyErr != nil {
		return bodyErr
	}
	return exitErr
}

// Restart reboots the radar module.
//
// A successful restart drops the serial link, so no END_CONFIG exchange
// is attempted; after a settle delay the session is forced back to
// normal mode locally. If the restart command itself fails, a regular
// exit is attempted instead.
func (s *Session) Restart() error {
	if err := s.EnterConfigMode(); err != nil {
		return err
	}

	if _, err := s.execute(frame.RestartModule, nil, s.opts.ConfigTimeout); err != nil {
		if exitErr := s.ExitConfigMode(); exitErr != nil {
			monitoring.Logf("ld2450: exit config mode after failed restart: %v", exitErr)
		}
		return fmt.Errorf("restart module: %w", err)
	}

	time.Sleep(s.opts.RestartSettle)
	s.configuring.Store(false)
	return nil
}
