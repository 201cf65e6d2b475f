package ld2450

import (
	"encoding/binary"
	"fmt"
)

// TrackingMode selects how many targets the sensor tracks at once.
type TrackingMode uint16

const (
	SingleTarget TrackingMode = 0x0001
	MultiTarget  TrackingMode = 0x0002
)

func (m TrackingMode) String() string {
	switch m {
	case SingleTarget:
		return "single-target"
	case MultiTarget:
		return "multi-target"
	default:
		return fmt.Sprintf("tracking-mode(%d)", uint16(m))
	}
}

// BaudRateIndex is an ordinal into the sensor's fixed baud table, not a
// raw baud value. The device default is Baud256000.
type BaudRateIndex uint16

const (
	Baud9600 BaudRateIndex = iota + 1
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
	Baud256000
	Baud460800
)

// Valid reports whether the index selects an entry in the device's baud
// table.
func (b BaudRateIndex) Valid() bool {
	return b >= Baud9600 && b <= Baud460800
}

// BaudRate returns the bits-per-second value the index selects, or 0 for
// an invalid index.
func (b BaudRateIndex) BaudRate() int {
	switch b {
	case Baud9600:
		return 9600
	case Baud19200:
		return 19200
	case Baud38400:
		return 38400
	case Baud57600:
		return 57600
	case Baud115200:
		return 115200
	case Baud230400:
		return 230400
	case Baud256000:
		return 256000
	case Baud460800:
		return 460800
	default:
		return 0
	}
}

func (b BaudRateIndex) String() string {
	if v := b.BaudRate(); v != 0 {
		return fmt.Sprintf("%d baud", v)
	}
	return fmt.Sprintf("baud-index(%d)", uint16(b))
}

// Region is a rectangle in sensor-relative coordinates, centimeters,
// given by two opposite corners. An all-zero region is unconfigured.
type Region struct {
	X1, Y1, X2, Y2 int16
}

// IsZero reports whether the region is unconfigured.
func (r Region) IsZero() bool {
	return r == Region{}
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// FilterType selects how the region filter treats its regions.
type FilterType uint16

const (
	FilterDisabled FilterType = 0
	FilterInclude  FilterType = 1 // detect only inside the regions
	FilterExclude  FilterType = 2 // ignore targets inside the regions
)

func (t FilterType) String() string {
	switch t {
	case FilterDisabled:
		return "disabled"
	case FilterInclude:
		return "include-only"
	case FilterExclude:
		return "exclude"
	default:
		return fmt.Sprintf("filter-type(%d)", uint16(t))
	}
}

// RegionFilter is the sensor's spatial filter configuration: up to three
// rectangular regions and the mode applied to them.
type RegionFilter struct {
	Type    FilterType
	Regions [3]Region
}

// regionValueLen is the wire size of a region filter command value:
// 2-byte filter type plus three 8-byte regions.
const regionValueLen = 26

// appendRegionFilter appends the 26-byte little-endian command value for
// SET_REGION.
func appendRegionFilter(dst []byte, f RegionFilter) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(f.Type))
	for _, r := range f.Regions {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(r.X1))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(r.Y1))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(r.X2))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(r.Y2))
	}
	return dst
}

// parseRegionFilter decodes a 26-byte region filter value.
func parseRegionFilter(data []byte) (RegionFilter, error) {
	var f RegionFilter
	if len(data) < regionValueLen {
		return f, fmt.Errorf("%w: region filter data too short (%d bytes)", ErrInvalidResponse, len(data))
	}
	f.Type = FilterType(binary.LittleEndian.Uint16(data[0:2]))
	for i := range f.Regions {
		off := 2 + i*8
		f.Regions[i] = Region{
			X1: int16(binary.LittleEndian.Uint16(data[off : off+2])),
			Y1: int16(binary.LittleEndian.Uint16(data[off+2 : off+4])),
			X2: int16(binary.LittleEndian.Uint16(data[off+4 : off+6])),
			Y2: int16(binary.LittleEndian.Uint16(data[off+6 : off+8])),
		}
	}
	return f, nil
}

// FirmwareVersion is the sensor's reported firmware revision.
type FirmwareVersion struct {
	Main uint16
	Sub  uint32
}

// String renders the version the way the protocol manual does, e.g.
// "V1.02.22062416": major and minor from the high and low bytes of the
// main version, the sub-version as eight hex digits.
func (v FirmwareVersion) String() string {
	return fmt.Sprintf("V%d.%02d.%08X", v.Main>>8, v.Main&0xFF, v.Sub)
}

// MACAddress is the module's Bluetooth MAC address.
type MACAddress [6]byte

func (m MACAddress) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}
