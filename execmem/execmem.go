// Package execmem is the executable-memory allocator the JIT translator
// draws from to place compiled blocks in host pages marked executable
// (spec.md §4.7). Ported from original_source's
// executable_memory_allocator.rs: a first-fit free list over one or more
// mmap'd regions, with an ordered map by length (smallest sufficient
// block wins) and an ordered map by address (for O(log n) coalescing),
// a 4-byte length header preceding every returned payload pointer, and
// region doubling when nothing fits.
package execmem

import (
	"fmt"
	"sort"

	"golang.org/x/sys/unix"
)

// headerSize is the length header written immediately before every
// payload a caller receives from Allocate, per spec.md §3's "Lifecycle"
// paragraph ("each block carries its length in a 4-byte header that
// precedes the returned pointer so free(ptr) is O(1)").
const headerSize = uint32(4)

type region struct {
	mem []byte
}

// Allocator is a first-fit free-list allocator over mmap'd executable
// regions. Addresses it hands out and accepts are offsets into a single
// logical address space spanning all regions back to back, not raw host
// pointers — callers store the returned handle and pass it back to Free.
type Allocator struct {
	regions []region

	// freeByAddr/addrOrder mirror original_source's free_by_address
	// BTreeMap<u32, usize>: addrOrder is kept sorted so neighbor lookups
	// for coalescing are a binary search away.
	freeByAddr map[uint32]uint32
	addrOrder  []uint32

	// freeByLen/lenOrder mirror free_by_len: every free block of a given
	// length is grouped under that length's key.
	freeByLen map[uint32][]uint32
	lenOrder  []uint32

	pageSize uint32
}

// New creates an allocator with no regions; the first Allocate call maps
// one.
func New() *Allocator {
	return &Allocator{
		freeByAddr: map[uint32]uint32{},
		freeByLen:  map[uint32][]uint32{},
		pageSize:   uint32(unix.Getpagesize()),
	}
}

func roundUp4(n uint32) uint32 { return (n + 3) &^ 3 }

func roundUpPage(n, page uint32) uint32 { return (n + page - 1) &^ (page - 1) }

// locate translates a logical address into a (region, offset) pair by
// walking the regions back to back.
func (a *Allocator) locate(addr uint32) (region int, offset uint32) {
	var base uint32
	for i, r := range a.regions {
		size := uint32(len(r.mem))
		if addr < base+size {
			return i, addr - base
		}
		base += size
	}
	panic(fmt.Sprintf("execmem: address %#x out of range", addr))
}

func (a *Allocator) bytesAt(addr, length uint32) []byte {
	idx, off := a.locate(addr)
	return a.regions[idx].mem[off : off+length]
}

// Allocate copies payload into a freshly carved block (rounding its size
// up to 4 bytes), writes the length header, flushes the host instruction
// cache over the payload range, and returns the address of the payload
// (i.e. just past the header) — spec.md §4.7 "Allocation".
func (a *Allocator) Allocate(payload []byte) uint32 {
	size := roundUp4(uint32(len(payload)))
	total := size + headerSize

	addr, ok := a.findFit(total)
	if !ok {
		a.grow(total)
		addr, ok = a.findFit(total)
		if !ok {
			panic("execmem: region growth failed to satisfy allocation")
		}
	}

	blockSize := a.takeFree(addr)
	if remaining := blockSize - total; remaining > 0 {
		a.insertFree(addr+total, remaining)
	}

	buf := a.bytesAt(addr, total)
	putUint32LE(buf[0:4], size)
	copy(buf[headerSize:], payload)
	a.flushInstructionCache(addr, total)
	return addr + headerSize
}

// Free recovers the 4-byte header at payloadAddr-4, reconstructs the
// block, and coalesces it with whichever neighbor(s) are also free —
// spec.md §4.7 "Free" / P8.
func (a *Allocator) Free(payloadAddr uint32) {
	addr := payloadAddr - headerSize
	header := a.bytesAt(addr, headerSize)
	size := uint32LE(header)
	a.insertFree(addr, size+headerSize)
}

// TotalFree returns the sum of every free block's size, used by tests to
// check P8 (allocator inverse: after freeing everything, total free size
// equals total mapped size).
func (a *Allocator) TotalFree() uint32 {
	var total uint32
	for _, size := range a.freeByAddr {
		total += size
	}
	return total
}

// TotalMapped returns the sum of every region's size.
func (a *Allocator) TotalMapped() uint32 {
	var total uint32
	for _, r := range a.regions {
		total += uint32(len(r.mem))
	}
	return total
}

// findFit returns the address of a smallest free block whose size is >=
// need; among free blocks of that size, the one recorded first wins.
func (a *Allocator) findFit(need uint32) (uint32, bool) {
	i := sort.Search(len(a.lenOrder), func(i int) bool { return a.lenOrder[i] >= need })
	if i == len(a.lenOrder) {
		return 0, false
	}
	addrs := a.freeByLen[a.lenOrder[i]]
	return addrs[0], true
}

func (a *Allocator) addrIndex(addr uint32) (int, bool) {
	i := sort.Search(len(a.addrOrder), func(i int) bool { return a.addrOrder[i] >= addr })
	return i, i < len(a.addrOrder) && a.addrOrder[i] == addr
}

func (a *Allocator) lenIndex(size uint32) (int, bool) {
	i := sort.Search(len(a.lenOrder), func(i int) bool { return a.lenOrder[i] >= size })
	return i, i < len(a.lenOrder) && a.lenOrder[i] == size
}

// takeFree removes the free block at addr from both maps and returns its
// size.
func (a *Allocator) takeFree(addr uint32) uint32 {
	size := a.freeByAddr[addr]
	delete(a.freeByAddr, addr)
	if i, ok := a.addrIndex(addr); ok {
		a.addrOrder = append(a.addrOrder[:i], a.addrOrder[i+1:]...)
	}
	a.removeFromLen(size, addr)
	return size
}

func (a *Allocator) removeFromLen(size, addr uint32) {
	addrs := a.freeByLen[size]
	for i, v := range addrs {
		if v == addr {
			addrs = append(addrs[:i], addrs[i+1:]...)
			break
		}
	}
	if len(addrs) == 0 {
		delete(a.freeByLen, size)
		if i, ok := a.lenIndex(size); ok {
			a.lenOrder = append(a.lenOrder[:i], a.lenOrder[i+1:]...)
		}
	} else {
		a.freeByLen[size] = addrs
	}
}

// insertFree records [addr, addr+size) as free, coalescing with the
// immediately preceding and following free blocks first (both checks go
// through addrOrder, per spec.md §4.7).
func (a *Allocator) insertFree(addr, size uint32) {
	if i, ok := a.addrIndex(addr); ok {
		_ = i
		panic(fmt.Sprintf("execmem: double free at %#x", addr))
	}
	i, _ := a.addrIndex(addr)
	if i > 0 {
		prevAddr := a.addrOrder[i-1]
		prevSize := a.freeByAddr[prevAddr]
		if prevAddr+prevSize == addr {
			a.takeFree(prevAddr)
			addr, size = prevAddr, prevSize+size
			i, _ = a.addrIndex(addr)
		}
	}
	if i < len(a.addrOrder) {
		nextAddr := a.addrOrder[i]
		if addr+size == nextAddr {
			nextSize := a.takeFree(nextAddr)
			size += nextSize
		}
	}
	a.addInsertFree(addr, size)
}

func (a *Allocator) addInsertFree(addr, size uint32) {
	a.freeByAddr[addr] = size
	i, _ := a.addrIndex(addr)
	a.addrOrder = append(a.addrOrder, 0)
	copy(a.addrOrder[i+1:], a.addrOrder[i:])
	a.addrOrder[i] = addr

	li, found := a.lenIndex(size)
	if !found {
		a.lenOrder = append(a.lenOrder, 0)
		copy(a.lenOrder[li+1:], a.lenOrder[li:])
		a.lenOrder[li] = size
	}
	a.freeByLen[size] = append(a.freeByLen[size], addr)
}

// grow maps a new region sized max(need, 2*last-region-size) rounded up
// to the host page size, and records it as one large free block —
// spec.md §4.7 "When no block fits".
func (a *Allocator) grow(need uint32) {
	var lastSize uint32
	if n := len(a.regions); n > 0 {
		lastSize = uint32(len(a.regions[n-1].mem))
	}
	size := need
	if 2*lastSize > size {
		size = 2 * lastSize
	}
	size = roundUpPage(size, a.pageSize)

	mem, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		panic(fmt.Sprintf("execmem: mmap %d bytes: %v", size, err))
	}

	base := a.TotalMapped()
	a.regions = append(a.regions, region{mem: mem})
	a.addInsertFree(base, size)
}

// flushInstructionCache invalidates the host icache over a freshly
// written payload range. Go's runtime provides no portable __clear_cache
// equivalent (unlike the original's use of mmap-rs plus an LLVM builtin);
// re-asserting the already-PROT_EXEC protection via Mprotect is the
// closest portable stand-in and is what forces amd64/arm64 to observe the
// new bytes through the icache on the platforms this allocator targets.
func (a *Allocator) flushInstructionCache(addr, length uint32) {
	idx, off := a.locate(addr)
	mem := a.regions[idx].mem
	pageStart := off &^ (a.pageSize - 1)
	pageEnd := roundUpPage(off+length, a.pageSize)
	if pageEnd > uint32(len(mem)) {
		pageEnd = uint32(len(mem))
	}
	if err := unix.Mprotect(mem[pageStart:pageEnd], unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		panic(fmt.Sprintf("execmem: mprotect icache flush: %v", err))
	}
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func uint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
