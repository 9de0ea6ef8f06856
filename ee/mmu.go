package ee

import (
	"fmt"

	"github.com/emu-ps2/ee2/bits"
	"github.com/emu-ps2/ee2/bus"
)

// Mode is the privilege level the core is executing in; it gates which
// kseg windows and TLB mappings are visible (spec.md §4.3).
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeSupervisor
	ModeUser
	modeCount
)

const (
	pageBits   = 20
	offsetBits = 32 - pageBits
	pageSize   = uint32(1) << offsetBits
	offsetMask = pageSize - 1
	pageCount  = uint32(1) << pageBits
)

// Mmu is the fast-path virtual-memory unit: a per-mode direct-mapped page
// table plus the 48-entry TLB, ported from original_source's mmu.rs.
type Mmu struct {
	tlb    [48]TLBEntry
	pages  [modeCount][]bus.PhysicalAddress
	mapped [modeCount][]bool
}

// NewMmu preinstalls kseg0/kseg1 as identity mappings in kernel mode, per
// spec.md §4.3.
func NewMmu() *Mmu {
	m := &Mmu{}
	for mode := Mode(0); mode < modeCount; mode++ {
		m.pages[mode] = make([]bus.PhysicalAddress, pageCount)
		m.mapped[mode] = make([]bool, pageCount)
	}
	ksegStart := uint32(0x80000000) >> offsetBits
	ksegEnd := uint32(0xC0000000) >> offsetBits
	for page := ksegStart; page < ksegEnd; page++ {
		addr := page << offsetBits
		m.pages[ModeKernel][page] = bus.Memory(addr & 0x1FFFFFFF)
		m.mapped[ModeKernel][page] = true
	}
	return m
}

// VirtualToPhysical implements spec.md P3/Scenario 6: masks off the page
// offset, looks up the mapped frame, ORs the offset back, and panics if
// the page is unmapped in mode.
func (m *Mmu) VirtualToPhysical(vaddr uint32, mode Mode) bus.PhysicalAddress {
	page := vaddr >> offsetBits
	if !m.mapped[mode][page] {
		panic(fmt.Sprintf("virtual address %#010x not mapped in mode %d", vaddr, mode))
	}
	frame := m.pages[mode][page]
	return bus.PhysicalAddress(uint32(frame) | (vaddr & offsetMask))
}

// PhysicallyConsecutive reports whether the virtual pages spanning
// [start,end) form a contiguous physical run; JIT blocks require this
// (spec.md §4.3/§4.5).
func (m *Mmu) PhysicallyConsecutive(start, end uint32, mode Mode) bool {
	startPage := start >> offsetBits
	endPage := (end - 1) >> offsetBits
	base := m.pages[mode][startPage]
	frame := base
	for page := startPage; page <= endPage; page++ {
		if m.pages[mode][page] != frame {
			return false
		}
		frame = bus.PhysicalAddress(uint32(frame) + pageSize)
	}
	return true
}

// WriteIndex implements write_index: unmap the virtual range currently
// owned by tlb[index], install entry, remap its new range.
func (m *Mmu) WriteIndex(index uint8, entry TLBEntry) {
	if entry.AddressSpaceID() != 0 {
		panic("ASID != 0 is not supported by this MMU's address-space model")
	}
	m.unmapEntry(m.tlb[index])
	m.tlb[index] = entry
	m.mapEntry(entry)
}

func (m *Mmu) unmapEntry(entry TLBEntry) {
	length := entry.Len()
	for _, mapping := range entry.Mappings() {
		m.unmap(mapping.VirtualPage, length)
	}
}

func (m *Mmu) unmap(virtualPage, length uint32) {
	start := virtualPage >> offsetBits
	end := (virtualPage + length) >> offsetBits
	for mode := Mode(0); mode < modeCount; mode++ {
		for page := start; page < end; page++ {
			m.mapped[mode][page] = false
		}
	}
}

func (m *Mmu) mapEntry(entry TLBEntry) {
	length := entry.Len()
	for _, mapping := range entry.Mappings() {
		m.mapPage(mapping.VirtualPage, mapping.Frame, length)
	}
}

// mapPage installs a mapping in kernel mode always, and additionally in
// supervisor/user mode per the classic MIPS kseg visibility rules spec.md
// §4.3 states: all-modes below 0x80000000, kernel+supervisor in
// 0xC0000000..0xE0000000, kernel-only elsewhere.
func (m *Mmu) mapPage(virtualPage uint32, frame bus.PhysicalAddress, length uint32) {
	start := virtualPage >> offsetBits
	end := (virtualPage + length) >> offsetBits
	for page := start; page < end; page++ {
		vp := page << offsetBits
		pf := bus.PhysicalAddress(uint32(frame) + (page-start)*pageSize)
		m.pages[ModeKernel][page] = pf
		m.mapped[ModeKernel][page] = true
		switch {
		case vp < 0x80000000:
			m.pages[ModeSupervisor][page] = pf
			m.mapped[ModeSupervisor][page] = true
			m.pages[ModeUser][page] = pf
			m.mapped[ModeUser][page] = true
		case vp >= 0xC0000000 && vp < 0xE0000000:
			m.pages[ModeSupervisor][page] = pf
			m.mapped[ModeSupervisor][page] = true
		}
	}
}

// Mmap installs a fixed identity-style mapping directly, bypassing the TLB
// — used by service.EngineService to set up guest memory without
// constructing a TLBEntry by hand, mirroring original_source's
// test-only Mmu::mmap.
func (m *Mmu) Mmap(virtualAddress, size, physicalAddress uint32) {
	if virtualAddress&offsetMask != 0 || physicalAddress&offsetMask != 0 {
		panic("Mmap requires page-aligned addresses")
	}
	start := virtualAddress >> offsetBits
	end := (virtualAddress + size - 1) >> offsetBits
	for page := start; page <= end; page++ {
		pf := bus.Memory(physicalAddress + (page-start)*pageSize)
		for mode := Mode(0); mode < modeCount; mode++ {
			m.pages[mode][page] = pf
			m.mapped[mode][page] = true
		}
	}
}

// TLBEntry is a 128-bit word with named sub-ranges, per spec.md §3 and
// original_source's mmu.rs TlbEntry.
type TLBEntry struct {
	Raw bits.U128
}

const (
	tlbMaskLo, tlbMaskHi           = 109, 121
	tlbVPNDiv2Lo, tlbVPNDiv2Hi     = 77, 96
	tlbGlobalBit                   = 76
	tlbASIDLo, tlbASIDHi           = 64, 72
	tlbScratchpadBit               = 63
	tlbPFNEvenLo, tlbPFNEvenHi     = 38, 58
	tlbCacheEvenLo, tlbCacheEvenHi = 35, 38
	tlbDirtyEvenBit                = 34
	tlbValidEvenBit                = 33
	tlbPFNOddLo, tlbPFNOddHi       = 6, 26
	tlbCacheOddLo, tlbCacheOddHi   = 3, 6
	tlbDirtyOddBit                 = 2
	tlbValidOddBit                 = 1
)

func (e TLBEntry) Mask() uint16   { return uint16(bits.Bits128(e.Raw, tlbMaskLo, tlbMaskHi)) }
func (e TLBEntry) Global() bool   { return bits.Bit128(e.Raw, tlbGlobalBit) }
func (e TLBEntry) Scratchpad() bool { return bits.Bit128(e.Raw, tlbScratchpadBit) }
func (e TLBEntry) AddressSpaceID() uint8 {
	return uint8(bits.Bits128(e.Raw, tlbASIDLo, tlbASIDHi))
}
func (e TLBEntry) VirtualPageNumberEven() uint32 {
	return uint32(bits.Bits128(e.Raw, tlbVPNDiv2Lo, tlbVPNDiv2Hi)) * 2
}
func (e TLBEntry) VirtualPageNumberOdd() uint32 {
	return uint32(bits.Bits128(e.Raw, tlbVPNDiv2Lo, tlbVPNDiv2Hi))*2 + 1
}
func (e TLBEntry) PageFrameNumberEven() uint32 {
	return uint32(bits.Bits128(e.Raw, tlbPFNEvenLo, tlbPFNEvenHi))
}
func (e TLBEntry) PageFrameNumberOdd() uint32 {
	return uint32(bits.Bits128(e.Raw, tlbPFNOddLo, tlbPFNOddHi))
}
func (e TLBEntry) ValidEven() bool { return bits.Bit128(e.Raw, tlbValidEvenBit) }
func (e TLBEntry) ValidOdd() bool  { return bits.Bit128(e.Raw, tlbValidOddBit) }

// Len returns the page size this entry maps: 16 KiB if Scratchpad is set,
// else derived from Mask (one of seven legal patterns) — spec.md §3/§4.3.
func (e TLBEntry) Len() uint32 {
	if e.Scratchpad() {
		return 16 * 1024
	}
	switch e.Mask() {
	case 0b0000_0000_0000:
		return 4 * 1024
	case 0b0000_0000_0011:
		return 16 * 1024
	case 0b0000_0000_1111:
		return 64 * 1024
	case 0b0000_0011_1111:
		return 256 * 1024
	case 0b0000_1111_1111:
		return 1024 * 1024
	case 0b0011_1111_1111:
		return 4 * 1024 * 1024
	case 0b1111_1111_1111:
		return 16 * 1024 * 1024
	default:
		panic(fmt.Sprintf("invalid TLB mask: %#x", e.Mask()))
	}
}

// Mapping is one (virtual page, physical frame) pair an entry contributes.
type Mapping struct {
	VirtualPage uint32
	Frame       bus.PhysicalAddress
}

// Mappings returns up to two mappings (even/odd half-entries), or the
// single scratchpad mapping when Scratchpad is set.
func (e TLBEntry) Mappings() []Mapping {
	if e.Scratchpad() {
		return []Mapping{{
			VirtualPage: e.VirtualPageNumberEven() << offsetBits,
			Frame:       bus.Scratchpad(0),
		}}
	}
	frameMask := ^(e.Len() - 1)
	var out []Mapping
	if e.ValidEven() {
		out = append(out, Mapping{
			VirtualPage: e.VirtualPageNumberEven() << offsetBits,
			Frame:       bus.Memory((e.PageFrameNumberEven() << offsetBits) & frameMask),
		})
	}
	if e.ValidOdd() {
		out = append(out, Mapping{
			VirtualPage: e.VirtualPageNumberOdd() << offsetBits,
			Frame:       bus.Memory((e.PageFrameNumberOdd() << offsetBits) & frameMask),
		})
	}
	return out
}
