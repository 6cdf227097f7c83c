// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"
)

// registerWriter is the delivery seam. *EndpointClient satisfies it.
type registerWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// StatusPlan locates the status block on the memory endpoint.
type StatusPlan struct {
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// StatusWriter delivers status blocks verbatim.
// No interpretation: the caller decides what the block holds.
type StatusWriter struct {
	plan StatusPlan
	cli  registerWriter

	needFull bool
	last     [liveSlots]uint16
	nameRegs []uint16
}

func NewStatusWriter(plan StatusPlan, cli registerWriter) (*StatusWriter, error) {
	if cli == nil {
		return nil, errors.New("status writer: client required")
	}
	if plan.BaseSlot > MaxBaseSlot {
		return nil, fmt.Errorf("status writer: base slot %d out of range [0, %d]", plan.BaseSlot, MaxBaseSlot)
	}
	return &StatusWriter{
		plan:     plan,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		nameRegs: encodeDeviceNameRegs(plan.DeviceName),
	}, nil
}

// WriteStatus delivers one block into status memory.
// On any write failure, the next call re-asserts the full block.
func (sw *StatusWriter) WriteStatus(b Block) error {
	base := sw.baseAddr()
	cur := b.regs()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base, sw.fullBlockRegs(cur)); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = cur
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: changed live slots only
	// ------------------------------------------------------------
	var errs []string
	for slot, v := range cur {
		if sw.last[slot] == v {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base+uint16(slot), []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", slot, slotNames[slot], err))
			continue
		}
		sw.last[slot] = v
	}

	if len(errs) > 0 {
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *StatusWriter) baseAddr() uint16 {
	return sw.plan.BaseSlot * SlotsPerDevice
}

func (sw *StatusWriter) fullBlockRegs(live [liveSlots]uint16) []uint16 {
	regs := make([]uint16, SlotsPerDevice)
	copy(regs, live[:])

	// Device name always lives at the end of the block.
	copy(regs[SlotDeviceNameStart:], sw.nameRegs)
	return regs
}

// encodeDeviceNameRegs packs up to 16 ASCII characters into 8 registers,
// two bytes per register, high byte first.
func encodeDeviceNameRegs(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := range b {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
