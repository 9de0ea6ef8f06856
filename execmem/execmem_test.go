package execmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateWritesHeaderAndPayload(t *testing.T) {
	a := New()
	payload := []byte{1, 2, 3}
	addr := a.Allocate(payload)

	got := a.bytesAt(addr, uint32(len(payload)))
	require.Equal(t, payload, got)
}

func TestFreeCoalescesWithBothNeighbors(t *testing.T) {
	a := New()
	p1 := a.Allocate(make([]byte, 16))
	p2 := a.Allocate(make([]byte, 16))
	p3 := a.Allocate(make([]byte, 16))

	mapped := a.TotalMapped()

	a.Free(p1)
	a.Free(p3)
	a.Free(p2)

	// P8: after freeing everything, total free size equals total mapped
	// size and (implicitly, since this asserts a single coalesced block)
	// no free block has an adjacent free block.
	require.Equal(t, mapped, a.TotalFree())
	require.Len(t, a.addrOrder, 1, "expected full coalescing into one free block")
}

func TestAllocateReusesFreedSpaceBeforeGrowing(t *testing.T) {
	a := New()
	p1 := a.Allocate(make([]byte, 32))
	regionsBefore := len(a.regions)
	a.Free(p1)

	_ = a.Allocate(make([]byte, 32))
	require.Equal(t, regionsBefore, len(a.regions), "reused freed block instead of mapping a new region")
}

func TestAllocateGrowsWhenNoBlockFits(t *testing.T) {
	a := New()
	_ = a.Allocate(make([]byte, int(a.pageSize)*3))
	require.GreaterOrEqual(t, len(a.regions), 1)
}

func TestSmallestSufficientBlockIsChosenFirst(t *testing.T) {
	a := New()
	small := a.Allocate(make([]byte, 16))
	_ = a.Allocate(make([]byte, 16)) // keeps the two freed blocks apart
	big := a.Allocate(make([]byte, 256))
	_ = a.Allocate(make([]byte, 16)) // keeps big apart from the region's tail
	a.Free(small)
	a.Free(big)

	// A request that fits both freed blocks should reuse the smaller one
	// rather than carve into the larger one.
	addr := a.Allocate(make([]byte, 8))
	require.Equal(t, small, addr)
}
