// internal/writer/layout.go
package writer

// ---- STATUS BLOCK LAYOUT ----
//
// One fixed block of holding registers per device, at BaseSlot * SlotsPerDevice.

const (
	SlotHealthCode     = 0
	SlotLastErrorCode  = 1
	SlotSecondsInError = 2
	SlotErrorCount     = 3
	SlotSlowCount      = 4

	// Slots 5..7 are reserved and written as zero.

	SlotDeviceNameStart = 8
	SlotDeviceNameSlots = 8

	SlotsPerDevice     = 16
	DeviceNameMaxChars = SlotDeviceNameSlots * 2

	// MaxBaseSlot keeps the block inside the 16-bit address space.
	MaxBaseSlot = 0xFFFF / SlotsPerDevice
)

const liveSlots = SlotSlowCount + 1

var slotNames = [liveSlots]string{"health", "last_error", "seconds_in_error", "error_count", "slow_count"}

// Block is the live part of the status block.
type Block struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	ErrorCount     uint16
	SlowCount      uint16
}

func (b Block) regs() [liveSlots]uint16 {
	return [liveSlots]uint16{b.Health, b.LastErrorCode, b.SecondsInError, b.ErrorCount, b.SlowCount}
}

// clamp16 saturates a counter at the register width.
func clamp16(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
