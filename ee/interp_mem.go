package ee

import (
	"github.com/emu-ps2/ee2/bits"
	"github.com/emu-ps2/ee2/bus"
)

// effectiveAddress computes base+signExtend(offset), the operand shape
// every load/store in this instruction set shares.
func effectiveAddress(regs regAccess, base Register, offset uint32) uint32 {
	return regs.Get32(base) + bits.SignExtend16to32(uint16(offset))
}

// executeMemory implements every load/store. Loads/stores go through the
// MMU-translated physical address to the bus, per spec.md §4.4
// ("Loads/stores call the bus through the MMU-translated physical
// address"). Every access panics on misalignment except Lwr, which
// splices per the word-right addressing mode spec.md §4.4 carves out.
func executeMemory(ins Instruction, regs regAccess, c *Core, b bus.Bus) {
	switch ins.Op {
	case OpLb:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		regs.Set32(rt, bits.SignExtend8to32(b.ReadU8(phys)))
	case OpLh:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		regs.Set32(rt, bits.SignExtend16to32(b.ReadU16(phys)))
	case OpLw:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		regs.Set32(rt, b.ReadU32(phys))
	case OpLbu:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		regs.Set32Zero(rt, uint32(b.ReadU8(phys)))
	case OpLhu:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		regs.Set32Zero(rt, uint32(b.ReadU16(phys)))
	case OpLwu:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		regs.Set32Zero(rt, b.ReadU32(phys))
	case OpLwr:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		byteOffset := addr & 0x3
		phys := c.Mmu.VirtualToPhysical(addr&^0x3, c.Mode)
		word := b.ReadU32(phys)
		current := regs.Get32(rt)
		regs.Set32(rt, lwrSplice(current, word, byteOffset))
	case OpLd:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		addr := effectiveAddress(regs, rs, ins.C)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		regs.Set64(rt, b.ReadU64(phys))
	case OpSb:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.C)
		addr := effectiveAddress(regs, rs, ins.B)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		b.WriteU8(phys, uint8(regs.Get32(rt)))
	case OpSh:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.C)
		addr := effectiveAddress(regs, rs, ins.B)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		b.WriteU16(phys, uint16(regs.Get32(rt)))
	case OpSw:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.C)
		addr := effectiveAddress(regs, rs, ins.B)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		b.WriteU32(phys, regs.Get32(rt))
	case OpSd:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.C)
		addr := effectiveAddress(regs, rs, ins.B)
		phys := c.Mmu.VirtualToPhysical(addr, c.Mode)
		b.WriteU64(phys, regs.Get64(rt))
	}
}

// lwrSplice implements the little-endian LWR (load word right) merge:
// the aligned word's high bytes fill in from the low end, keeping the
// destination register's existing high bytes untouched when byteOffset
// is nonzero.
func lwrSplice(current, memWord, byteOffset uint32) uint32 {
	switch byteOffset {
	case 0:
		return memWord
	case 1:
		return (current & 0xFF000000) | (memWord >> 8)
	case 2:
		return (current & 0xFFFF0000) | (memWord >> 16)
	default:
		return (current & 0xFFFFFF00) | (memWord >> 24)
	}
}
