// Package bus defines the physical-address read/write interface the
// Emotion Engine core calls through for every load, store, and
// instruction fetch (spec.md §6), plus a reference flat-memory
// implementation. Adapted from the teacher's segmented vm.Memory
// (vm/memory.go) and generalized to the EE physical address space: bit 31
// of a physical address distinguishes the small on-chip scratchpad (set)
// from main RAM (clear), matching original_source's PhysicalAddress.
package bus

import (
	"fmt"

	"github.com/emu-ps2/ee2/bits"
)

// PhysicalAddress is a 32-bit guest physical address with bit 31 as the
// scratchpad/main-memory discriminator.
type PhysicalAddress uint32

const scratchpadBit = uint32(1) << 31

// Memory constructs a main-memory physical address (bit 31 clear).
func Memory(addr uint32) PhysicalAddress { return PhysicalAddress(addr &^ scratchpadBit) }

// Scratchpad constructs a scratchpad physical address (bit 31 set).
func Scratchpad(offset uint32) PhysicalAddress { return PhysicalAddress(offset | scratchpadBit) }

// IsScratchpad reports whether the address names the scratchpad region.
func (p PhysicalAddress) IsScratchpad() bool { return uint32(p)&scratchpadBit != 0 }

// Offset returns the address with the scratchpad bit masked off.
func (p PhysicalAddress) Offset() uint32 { return uint32(p) &^ scratchpadBit }

// Invalidator is implemented by the code cache; Bus implementations must
// call InvalidateRange before returning from any write that targets main
// memory (spec.md §6, "the bus MUST invoke jit.invalidate_range").
type Invalidator interface {
	InvalidateRange(start, end uint32)
}

// Bus is the interface the core consumes; panics on misalignment or an
// unmapped address, exactly as spec.md §6 and §7 require.
type Bus interface {
	ReadU8(addr PhysicalAddress) uint8
	ReadU16(addr PhysicalAddress) uint16
	ReadU32(addr PhysicalAddress) uint32
	ReadU64(addr PhysicalAddress) uint64
	ReadU128(addr PhysicalAddress) bits.U128
	WriteU8(addr PhysicalAddress, v uint8)
	WriteU16(addr PhysicalAddress, v uint16)
	WriteU32(addr PhysicalAddress, v uint32)
	WriteU64(addr PhysicalAddress, v uint64)
	WriteU128(addr PhysicalAddress, v bits.U128)
}

// FlatMemory is the reference bus implementation: flat main-memory and
// scratchpad backing arrays. Unlike the teacher's multi-segment vm.Memory
// (code/data/heap/stack with per-segment permissions), the EE bus has no
// permission model of its own — access control is the MMU/TLB's job
// (spec.md §4.3) — so this is deliberately a single flat region per space.
type FlatMemory struct {
	main       []byte
	scratchpad []byte
	invalidate Invalidator
}

const scratchpadSize = 16 * 1024

// NewFlatMemory allocates size bytes of main memory and the fixed-size
// scratchpad, wiring invalidator (typically the core's code cache) so
// writes can invalidate overlapping translations.
func NewFlatMemory(size uint32, invalidate Invalidator) *FlatMemory {
	return &FlatMemory{
		main:       make([]byte, size),
		scratchpad: make([]byte, scratchpadSize),
		invalidate: invalidate,
	}
}

func (m *FlatMemory) backing(addr PhysicalAddress) []byte {
	if addr.IsScratchpad() {
		return m.scratchpad
	}
	return m.main
}

func checkAlign(addr PhysicalAddress, width uint32) {
	if uint32(addr)&(width-1) != 0 {
		panic(fmt.Sprintf("unaligned bus access at %#010x (width %d)", uint32(addr), width))
	}
}

func (m *FlatMemory) bounds(addr PhysicalAddress, width uint32) (buf []byte, off uint32) {
	checkAlign(addr, width)
	buf = m.backing(addr)
	off = addr.Offset()
	if off+width > uint32(len(buf)) {
		panic(fmt.Sprintf("unmapped bus access at %#010x", uint32(addr)))
	}
	return buf, off
}

func (m *FlatMemory) ReadU8(addr PhysicalAddress) uint8 {
	buf, off := m.bounds(addr, 1)
	return buf[off]
}

func (m *FlatMemory) ReadU16(addr PhysicalAddress) uint16 {
	buf, off := m.bounds(addr, 2)
	return bits.Uint16LE(buf[off : off+2])
}

func (m *FlatMemory) ReadU32(addr PhysicalAddress) uint32 {
	buf, off := m.bounds(addr, 4)
	return bits.Uint32LE(buf[off : off+4])
}

func (m *FlatMemory) ReadU64(addr PhysicalAddress) uint64 {
	buf, off := m.bounds(addr, 8)
	return bits.Uint64LE(buf[off : off+8])
}

func (m *FlatMemory) ReadU128(addr PhysicalAddress) bits.U128 {
	buf, off := m.bounds(addr, 16)
	return bits.Uint128LE(buf[off : off+16])
}

func (m *FlatMemory) WriteU8(addr PhysicalAddress, v uint8) {
	buf, off := m.bounds(addr, 1)
	buf[off] = v
	m.afterWrite(addr, 1)
}

func (m *FlatMemory) WriteU16(addr PhysicalAddress, v uint16) {
	buf, off := m.bounds(addr, 2)
	bits.PutUint16LE(buf[off:off+2], v)
	m.afterWrite(addr, 2)
}

func (m *FlatMemory) WriteU32(addr PhysicalAddress, v uint32) {
	buf, off := m.bounds(addr, 4)
	bits.PutUint32LE(buf[off:off+4], v)
	m.afterWrite(addr, 4)
}

func (m *FlatMemory) WriteU64(addr PhysicalAddress, v uint64) {
	buf, off := m.bounds(addr, 8)
	bits.PutUint64LE(buf[off:off+8], v)
	m.afterWrite(addr, 8)
}

func (m *FlatMemory) WriteU128(addr PhysicalAddress, v bits.U128) {
	buf, off := m.bounds(addr, 16)
	bits.PutUint128LE(buf[off:off+16], v)
	m.afterWrite(addr, 16)
}

// afterWrite invalidates any code-cache translation covering the write —
// the bus-side half of the SMC contract in spec.md §4.6/§6. Scratchpad
// writes never hold translations (nothing fetches instructions from
// scratchpad) so only main-memory writes call through.
func (m *FlatMemory) afterWrite(addr PhysicalAddress, width uint32) {
	if m.invalidate == nil || addr.IsScratchpad() {
		return
	}
	start := addr.Offset()
	m.invalidate.InvalidateRange(start, start+width)
}
