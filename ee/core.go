// Package ee is the Emotion Engine core: architectural state, the
// instruction decoder's hand twin, the interpreter, the JIT translator,
// the code cache, and the MMU — the "core" spec.md §1 scopes this
// repository around.
package ee

import (
	"fmt"

	"github.com/emu-ps2/ee2/bus"
	"github.com/emu-ps2/ee2/execmem"
)

// Core owns every piece of architectural state plus the supporting
// machinery (MMU, code cache, executable-memory allocator) the teacher's
// vm.CPU/vm.State pairing owns for the ARM core — generalized here to
// MIPS-III/EE semantics per spec.md §3.
type Core struct {
	PC   uint32
	Regs RegisterFile
	CP0  *Control
	FPU  *FPU
	Mmu  *Mmu
	Mode Mode

	Cycles uint64

	delayedTarget    uint32
	hasDelayedTarget bool

	cache *codeCache
	exec  *execAllocator
}

// NewCore builds a Core with a fresh register file, CP0 bank, FPU bank,
// MMU (kseg0/1 preinstalled), and a code cache sized for physMemSize
// bytes of guest physical address space. cacheCapacity is not used: the
// cache always admits cacheIndexMaxSize entries before evicting, whatever
// value is passed (see CacheCapacity).
func NewCore(physMemSize uint32, cacheCapacity int) *Core {
	exec := newExecAllocator()
	c := &Core{
		CP0:  NewControl(),
		FPU:  &FPU{},
		Mmu:  NewMmu(),
		Mode: ModeKernel,
		exec: exec,
	}
	c.cache = newCodeCache(physMemSize, exec)
	return c
}

// SetDelayedBranchTarget is the core's half of the "exported runtime
// callback" spec.md §6 names (`set_delayed_branch_target`): both the
// interpreter and every compiled branch closure call through here, so
// there is exactly one place that asserts the 4-byte alignment invariant
// spec.md §4.5 requires of a delayed-branch target.
func (c *Core) SetDelayedBranchTarget(target uint32) {
	if target&0x3 != 0 {
		panic(fmt.Sprintf("delayed branch target %#010x is not 4-byte aligned", target))
	}
	c.delayedTarget = target
	c.hasDelayedTarget = true
}

// Step runs until budget cycles have been charged, resolving PC through
// the MMU, consulting the code cache, and either running a compiled block
// or interpreting one instruction — spec.md §2's data flow paragraph and
// §5 (single-threaded cooperative stepper: step(N, bus)).
func (c *Core) Step(budget uint64, b bus.Bus) error {
	var charged uint64
	for charged < budget {
		physPC := c.Mmu.VirtualToPhysical(c.PC, c.Mode)
		startVPC := c.PC
		entry := c.cache.CacheEntryFor(uint32(physPC), func() cacheEntry {
			return c.compileOrInterpretEntry(uint32(physPC), startVPC, b)
		})

		if entry.isJitted() {
			n := entry.Block.Run(c, b)
			// Straight-line blocks advance by their instruction count; a
			// block ending in a branch+delay-slot pair instead latches a
			// target via SetDelayedBranchTarget during Run, consumed here
			// the same way interpretDecoded consumes it for the interpreter.
			nextPC := startVPC + uint32(n)*instructionSize
			if c.hasDelayedTarget {
				nextPC = c.delayedTarget
				c.hasDelayedTarget = false
			}
			c.PC = nextPC
			charged += uint64(n)
			c.Cycles += uint64(n)
			c.CP0.Step(uint64(n))
			continue
		}

		if err := c.interpretDecoded(entry.Interp, b); err != nil {
			charged++
			c.Cycles++
			c.CP0.Step(1)
			return err
		}
		charged++
		c.Cycles++
		c.CP0.Step(1)
	}
	return nil
}

// compileOrInterpretEntry is the cache-miss path: try the JIT translator
// first; if it gives up immediately (block-size contract, spec.md §4.5),
// fall back to a single interpreted cache entry, per spec.md §4.6
// "Lookup".
func (c *Core) compileOrInterpretEntry(physPC, virtPC uint32, b bus.Bus) cacheEntry {
	if block, end := translateBlock(c, physPC, virtPC, b); block != nil {
		return cacheEntry{Start: physPC, End: end, Block: block}
	}
	word := b.ReadU32(bus.Memory(physPC))
	return cacheEntry{Start: physPC, End: physPC + instructionSize, Interp: Decode(word)}
}

// Invalidator exposes the code cache as a bus.Invalidator so a Bus
// implementation (bus.FlatMemory) can be wired to call InvalidateRange
// before returning from a write, per spec.md §6's bus contract.
func (c *Core) Invalidator() bus.Invalidator { return c.cache }

// CacheEntryCount reports how many translations currently live in the
// code cache, for the monitor/API front ends.
func (c *Core) CacheEntryCount() int { return len(c.cache.cache) }

// CacheCapacity reports the maximum number of live translations the
// cache admits before evicting, per spec.md §4.6.
func (c *Core) CacheCapacity() int { return cacheIndexMaxSize }

// InvalidateRange force-invalidates a physical range without requiring a
// bus write, used by the monitor/API's "invalidate" endpoint to exercise
// SMC behavior over the wire.
func (c *Core) InvalidateRange(start, end uint32) { c.cache.InvalidateRange(start, end) }
