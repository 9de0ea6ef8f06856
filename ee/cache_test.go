package ee

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// coveredSlots recomputes, straight from the dense cache entry vector
// rather than the bitset, which slots ought to be covered — the
// independent oracle TestCacheCoverageBitsetMatchesEntries checks the
// maintained bitset against.
func coveredSlots(c *codeCache) map[uint32]bool {
	want := map[uint32]bool{}
	for _, e := range c.cache {
		for s := e.Start / instructionSize; s < e.End/instructionSize; s++ {
			want[s] = true
		}
	}
	return want
}

// TestCacheCoverageBitsetMatchesEntries is spec.md P4: for any physical
// slot s, covered[s] is set iff at least one CacheEntry's [start,end)
// contains s*4.
func TestCacheCoverageBitsetMatchesEntries(t *testing.T) {
	c := newCodeCache(256*instructionSize, nil)
	c.add(cacheEntry{Start: 0, End: 3 * instructionSize})
	c.add(cacheEntry{Start: 10 * instructionSize, End: 12 * instructionSize})
	c.add(cacheEntry{Start: 40 * instructionSize, End: 41 * instructionSize})

	want := coveredSlots(c)
	for slot := uint32(0); slot < c.slots; slot++ {
		require.Equal(t, want[slot], c.coveredBit(slot), "slot %d", slot)
	}

	// Evicting one entry must clear exactly its slots (unless another
	// live entry still covers them).
	c.remove(0)
	want = coveredSlots(c)
	for slot := uint32(0); slot < c.slots; slot++ {
		require.Equal(t, want[slot], c.coveredBit(slot), "slot %d after remove", slot)
	}
}

// TestInvalidateRangeRemovesAllOverlap is spec.md P5: after
// invalidate_range(r), no CacheEntry remains whose [start,end)
// intersects r.
func TestInvalidateRangeRemovesAllOverlap(t *testing.T) {
	c := newCodeCache(256*instructionSize, nil)
	c.add(cacheEntry{Start: 0, End: 4 * instructionSize})
	c.add(cacheEntry{Start: 4 * instructionSize, End: 8 * instructionSize})
	c.add(cacheEntry{Start: 8 * instructionSize, End: 16 * instructionSize})
	c.add(cacheEntry{Start: 20 * instructionSize, End: 24 * instructionSize})
	require.Len(t, c.cache, 4)

	rangeStart, rangeEnd := uint32(2*instructionSize), uint32(9*instructionSize)
	c.InvalidateRange(rangeStart, rangeEnd)

	for _, e := range c.cache {
		require.False(t, e.Start < rangeEnd && rangeStart < e.End,
			"entry [%d,%d) survived invalidation of [%d,%d)", e.Start, e.End, rangeStart, rangeEnd)
	}
	// The entry outside the invalidated range must still be live.
	require.Len(t, c.cache, 1)
	require.Equal(t, uint32(20*instructionSize), c.cache[0].Start)
}
