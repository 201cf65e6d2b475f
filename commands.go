package ld2450

import (
	"encoding/binary"
	"fmt"

	"github.com/NieRVoid/ld2450-driver/internal/frame"
)

// ACK result layout: the command-specific result data of a query starts
// at offset 10, after the header (4), length (2), command echo (2) and
// status word (2). The firmware version ACK carries an extra 2-byte
// firmware-type field, so its data starts at 12.
const (
	ackResultOffset   = 10
	ackFirmwareOffset = 12
	ackTrailerLen     = 4
)

// SetTrackingMode switches the sensor between single-target and
// multi-target tracking.
func (s *Session) SetTrackingMode(mode TrackingMode) error {
	var cmd frame.Command
	switch mode {
	case SingleTarget:
		cmd = frame.SingleTarget
	case MultiTarget:
		cmd = frame.MultiTarget
	default:
		return fmt.Errorf("%w: tracking mode %d", ErrInvalidArgument, uint16(mode))
	}

	return s.withConfigMode(func() error {
		_, err := s.execute(cmd, nil, s.opts.ConfigTimeout)
		return err
	})
}

// TrackingMode queries the sensor's current tracking mode.
func (s *Session) TrackingMode() (TrackingMode, error) {
	var mode TrackingMode
	err := s.withConfigMode(func() error {
		ack, err := s.execute(frame.QueryTargetMode, nil, s.opts.ConfigTimeout)
		if err != nil {
			return err
		}
		if len(ack) < ackResultOffset+2+ackTrailerLen {
			return fmt.Errorf("%w: target mode ack too short (%d bytes)", ErrInvalidResponse, len(ack))
		}
		switch v := binary.LittleEndian.Uint16(ack[ackResultOffset:]); v {
		case uint16(SingleTarget):
			mode = SingleTarget
		case uint16(MultiTarget):
			mode = MultiTarget
		default:
			return fmt.Errorf("%w: unknown target mode %04x", ErrInvalidResponse, v)
		}
		return nil
	})
	return mode, err
}

// SetBaudRate selects an entry in the sensor's baud table. The new rate
// takes effect after the module is restarted.
func (s *Session) SetBaudRate(index BaudRateIndex) error {
	if !index.Valid() {
		return fmt.Errorf("%w: baud rate index %d", ErrInvalidArgument, uint16(index))
	}

	value := binary.LittleEndian.AppendUint16(nil, uint16(index))
	return s.withConfigMode(func() error {
		_, err := s.execute(frame.SetBaudRate, value, s.opts.ConfigTimeout)
		return err
	})
}

// RestoreFactorySettings resets the sensor's configuration to factory
// defaults. The reset takes effect after the module is restarted.
func (s *Session) RestoreFactorySettings() error {
	return s.withConfigMode(func() error {
		_, err := s.execute(frame.RestoreFactory, nil, s.opts.ConfigTimeout)
		return err
	})
}

// SetBluetooth enables or disables the module's Bluetooth radio.
func (s *Session) SetBluetooth(enable bool) error {
	value := []byte{0x00, 0x00}
	if enable {
		value[0] = 0x01
	}
	return s.withConfigMode(func() error {
		_, err := s.execute(frame.SetBluetooth, value, s.opts.ConfigTimeout)
		return err
	})
}

// MACAddress queries the module's Bluetooth MAC address.
func (s *Session) MACAddress() (MACAddress, error) {
	var mac MACAddress
	err := s.withConfigMode(func() error {
		ack, err := s.execute(frame.GetMACAddress, enableConfigValue, s.opts.ConfigTimeout)
		if err != nil {
			return err
		}
		if len(ack) < ackResultOffset+len(mac)+ackTrailerLen {
			return fmt.Errorf("%w: mac address ack too short (%d bytes)", ErrInvalidResponse, len(ack))
		}
		copy(mac[:], ack[ackResultOffset:])
		return nil
	})
	return mac, err
}

// SetRegionFilter configures the sensor's spatial region filter.
func (s *Session) SetRegionFilter(f RegionFilter) error {
	switch f.Type {
	case FilterDisabled, FilterInclude, FilterExclude:
	default:
		return fmt.Errorf("%w: filter type %d", ErrInvalidArgument, uint16(f.Type))
	}

	value := appendRegionFilter(make([]byte, 0, regionValueLen), f)
	return s.withConfigMode(func() error {
		_, err := s.execute(frame.SetRegion, value, s.opts.ConfigTimeout)
		return err
	})
}

// RegionFilter queries the sensor's current region filter configuration.
func (s *Session) RegionFilter() (RegionFilter, error) {
	var f RegionFilter
	err := s.withConfigMode(func() error {
		ack, err := s.execute(frame.QueryRegion, nil, s.opts.ConfigTimeout)
		if err != nil {
			return err
		}
		if len(ack) < ackResultOffset+regionValueLen+ackTrailerLen {
			return fmt.Errorf("%w: region filter ack too short (%d bytes)", ErrInvalidResponse, len(ack))
		}
		f, err = parseRegionFilter(ack[ackResultOffset : len(ack)-ackTrailerLen])
		return err
	})
	return f, err
}
