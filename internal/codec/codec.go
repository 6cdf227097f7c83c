// internal/codec/codec.go
package codec

import (
	"errors"
	"fmt"
)

// RegisterBits is the width of one Modbus register.
const RegisterBits = 16

var (
	// ErrOutOfRange is returned when a bit or channel index falls outside the register.
	ErrOutOfRange = errors.New("codec: index out of range")

	// ErrUnsupportedChannelCount is returned by AllChannelsMask for board widths
	// other than 8 and 16.
	ErrUnsupportedChannelCount = errors.New("codec: unsupported channel count")
)

// Normalize converts between device and host byte order.
// Byte swap is its own inverse, so the same call is used in both directions.
func Normalize(raw uint16, bigEndian bool) uint16 {
	if !bigEndian {
		return raw
	}
	return raw<<8 | raw>>8
}

// Decode unpacks the low count bits of a normalized register.
// Channel i is bit i. Counts above RegisterBits read zeros.
func Decode(normalized uint16, count int) []bool {
	if count < 0 {
		count = 0
	}
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		if i >= RegisterBits {
			continue
		}
		out[i] = (normalized>>uint(i))&1 == 1
	}
	return out
}

// SetBit returns current with one bit forced to value.
// Every other bit, reserved ones included, is left untouched.
func SetBit(current uint16, bitIndex int, value bool) (uint16, error) {
	if bitIndex < 0 || bitIndex >= RegisterBits {
		return current, fmt.Errorf("%w: bit %d not in [0, %d)", ErrOutOfRange, bitIndex, RegisterBits)
	}
	mask := uint16(1) << uint(bitIndex)
	if value {
		return current | mask, nil
	}
	return current &^ mask, nil
}

// AllChannelsMask returns the register value that switches every channel of an
// 8 or 16 channel board on or off.
func AllChannelsMask(count int, value bool) (uint16, error) {
	var mask uint16
	switch count {
	case 8:
		mask = 0x00FF
	case 16:
		mask = 0xFFFF
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedChannelCount, count)
	}
	if !value {
		return 0x0000, nil
	}
	return mask, nil
}
