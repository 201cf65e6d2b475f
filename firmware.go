package ld2450

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
	"github.com/NieRVoid/ld2450-driver/internal/monitoring"
)

// FirmwareVersion queries the sensor's firmware revision.
//
// This query is empirically unreliable in the first moments after the
// sensor enters configuration mode, so it gets its own policy: an extra
// settle delay and input flush after entering, then up to
// Options.FirmwareAttempts attempts at the shorter FirmwareTimeout, with
// a backoff and flush between attempts. Exhausting the attempts yields
// ErrInvalidResponse rather than ErrTimeout, distinguishing "the device
// kept answering garbage" from "the device never answered at all".
func (s *Session) FirmwareVersion() (FirmwareVersion, error) {
	var version FirmwareVersion
	err := s.withConfigMode(func() error {
		time.Sleep(s.opts.FirmwareSettle)
		if err := s.port.ResetInputBuffer(); err != nil {
			return fmt.Errorf("%w: flush input: %v", ErrTransport, err)
		}

		var lastErr error
		for attempt := 1; attempt <= s.opts.FirmwareAttempts; attempt++ {
			monitoring.Logf("ld2450: querying firmware version, attempt %d", attempt)

			ack, err := s.execute(frame.ReadFirmware, nil, s.opts.FirmwareTimeout)
			if err == nil {
				if len(ack) >= ackFirmwareOffset+6+ackTrailerLen {
					version.Main = binary.LittleEndian.Uint16(ack[ackFirmwareOffset:])
					version.Sub = binary.LittleEndian.Uint32(ack[ackFirmwareOffset+2:])
					monitoring.Logf("ld2450: firmware version %s", version)
					return nil
				}
				err = fmt.Errorf("%w: firmware ack too short (%d bytes)", ErrInvalidResponse, len(ack))
			}

			lastErr = err
			monitoring.Logf("ld2450: firmware version attempt %d failed: %v", attempt, err)

			if attempt < s.opts.FirmwareAttempts {
				time.Sleep(s.opts.RetryBackoff)
				if ferr := s.port.ResetInputBuffer(); ferr != nil {
					return fmt.Errorf("%w: flush input: %v", ErrTransport, ferr)
				}
			}
		}

		return fmt.Errorf("%w: firmware version query failed after %d attempts: %v",
			ErrInvalidResponse, s.opts.FirmwareAttempts, lastErr)
	})
	return version, err
}
