package ee

import (
	"github.com/emu-ps2/ee2/bits"
	"github.com/emu-ps2/ee2/bus"
	"github.com/emu-ps2/ee2/execmem"
)

// execAllocator adapts execmem.Allocator to the ee package's bookkeeping:
// every compiled block still reserves and frees a real executable-memory
// block sized to its closure count, so the allocator's mmap/free
// lifecycle (§4.7) is genuinely exercised by the JIT even though
// dispatch never jumps into host machine code — see the Open Question
// recorded in DESIGN.md ("JIT backend").
type execAllocator struct {
	alloc *execmem.Allocator
}

func newExecAllocator() *execAllocator {
	return &execAllocator{alloc: execmem.New()}
}

// Allocate reserves n bytes (one per compiled op, a stand-in payload
// since there is no real machine code to store) and returns the token
// CompiledBlock.code carries until the block is evicted.
func (e *execAllocator) Allocate(n int) uint32 {
	if n < 1 {
		n = 1
	}
	return e.alloc.Allocate(make([]byte, n))
}

func (e *execAllocator) Free(token uint32) {
	e.alloc.Free(token)
}

// cachedWidth tracks the narrowest width known to be coherent for a
// cached register: spec.md §4.5's register-caching rule ("narrower reads
// are materialized by truncation; if cached at a smaller size, the cache
// is first written back and reloaded at the requested size").
type cachedWidth uint8

const (
	width32 cachedWidth = iota
	width64
	width128
)

type regCacheSlot struct {
	value  bits.U128
	width  cachedWidth
	dirty  bool
	filled bool
}

// RegisterCache is the per-block register-caching table spec.md §4.5
// describes: a compiled block's ops read/write through here instead of
// touching Core.Regs directly, so that a run of instructions which only
// ever needs (say) the low 32 bits of a register never pays for a full
// 128-bit round trip through the architectural register file until a
// control-flow edge forces a write-back.
type RegisterCache struct {
	slots [registerCount]regCacheSlot
	regs  *RegisterFile
}

func newRegisterCache(regs *RegisterFile) *RegisterCache {
	return &RegisterCache{regs: regs}
}

func (rc *RegisterCache) ensure(r Register) *regCacheSlot {
	s := &rc.slots[r]
	if !s.filled {
		s.value = rc.regs.Get128(r)
		s.width = width128
		s.filled = true
	}
	return s
}

// reload is the "cached at a smaller size" path: write back whatever is
// dirty, then refetch at full width (Core.Regs is always the authority
// for bits the cache hasn't promoted to yet).
func (rc *RegisterCache) reload(r Register) *regCacheSlot {
	s := &rc.slots[r]
	if s.filled && s.dirty {
		rc.regs.Set128(r, s.value)
	}
	s.value = rc.regs.Get128(r)
	s.width = width128
	s.filled = true
	s.dirty = false
	return s
}

func (rc *RegisterCache) Get32(r Register) uint32 {
	if r == Zero {
		return 0
	}
	s := rc.ensure(r)
	return uint32(s.value.Lo)
}

func (rc *RegisterCache) Get64(r Register) uint64 {
	if r == Zero {
		return 0
	}
	s := rc.ensure(r)
	if s.width == width32 {
		s = rc.reload(r)
	}
	return s.value.Lo
}

func (rc *RegisterCache) Get128(r Register) bits.U128 {
	if r == Zero {
		return bits.U128{}
	}
	s := rc.ensure(r)
	if s.width != width128 {
		s = rc.reload(r)
	}
	return s.value
}

func (rc *RegisterCache) GetUpper64(r Register) uint64 {
	if r == Zero {
		return 0
	}
	s := rc.ensure(r)
	if s.width != width128 {
		s = rc.reload(r)
	}
	return s.value.Hi
}

func (rc *RegisterCache) Set32(r Register, v uint32) {
	if r == Zero {
		return
	}
	s := rc.ensure(r)
	s.value = s.value.SetLower64(bits.SignExtend32to64(v))
	if s.width > width64 {
		s.width = width64
	}
	s.dirty = true
}

func (rc *RegisterCache) Set32Zero(r Register, v uint32) {
	if r == Zero {
		return
	}
	s := rc.ensure(r)
	s.value = s.value.SetLower64(uint64(v))
	if s.width > width64 {
		s.width = width64
	}
	s.dirty = true
}

func (rc *RegisterCache) Set64(r Register, v uint64) {
	if r == Zero {
		return
	}
	s := rc.ensure(r)
	s.value = s.value.SetLower64(v)
	if s.width > width64 {
		s.width = width64
	}
	s.dirty = true
}

func (rc *RegisterCache) Set128(r Register, v bits.U128) {
	if r == Zero {
		return
	}
	s := rc.ensure(r)
	s.value = v
	s.width = width128
	s.dirty = true
}

func (rc *RegisterCache) SetUpper64(r Register, v uint64) {
	if r == Zero {
		return
	}
	s := rc.ensure(r)
	s.value = s.value.SetUpper64(v)
	s.width = width128
	s.dirty = true
}

// WriteBackAll flushes every dirty entry to the architectural register
// file. Called at every control-flow edge (here: always at block exit,
// since a compiled block always ends at a branch or a translation-gave-up
// boundary) per spec.md §4.5.
func (rc *RegisterCache) WriteBackAll() {
	for r := Register(0); r < registerCount; r++ {
		s := &rc.slots[r]
		if s.filled && s.dirty {
			rc.regs.Set128(Register(r), s.value)
			s.dirty = false
		}
	}
}

var _ regAccess = (*RegisterCache)(nil)

// blockOp is the "host IR" a compiled block is a sequence of: a Go
// closure over the block's RegisterCache, the Core (for CP0/FPU/MMU/
// delayed-branch-target), and the bus. See DESIGN.md's JIT-backend Open
// Question: this stands in for emitted host machine code since no
// Cranelift-equivalent code generator exists anywhere in this pack.
type blockOp func(rc *RegisterCache, c *Core, b bus.Bus)

// CompiledBlock is one JIT translation: a fixed sequence of ops plus the
// executable-memory token reserved for it (freed by the code cache on
// eviction, cache.go's remove()).
type CompiledBlock struct {
	ops           []blockOp
	instructions  int
	code          uint32
}

// Run executes every op against a fresh RegisterCache, writes back dirty
// registers at the end (the block's single control-flow edge), and
// returns the instruction count the caller should charge as cycles.
func (cb *CompiledBlock) Run(c *Core, b bus.Bus) int {
	rc := newRegisterCache(&c.Regs)
	for _, op := range cb.ops {
		op(rc, c, b)
	}
	rc.WriteBackAll()
	return cb.instructions
}

// jitUnsupported reports instructions the translator never compiles:
// Syscall and Break always end a block (spec.md §4.5 "stops at the first
// of: ... syscall"), since crossing into host-call territory mid-block
// has no closure-based equivalent worth building here.
func jitUnsupported(op Opcode) bool {
	return op == OpSyscall || op == OpBreak
}

// maxBlockInstructions caps how far a single translation runs through
// straight-line code before it stops and hands control back to Core.Step.
// Without a cap, a long straight-line run (most commonly large all-zero
// BSS regions, which decode as SLL $zero, $zero, 0 — an effective NOP)
// would translate indefinitely until it walked off the end of mapped
// memory. Real dynamic recompilers bound basic blocks the same way so
// translation cost per cache miss stays fixed regardless of what the
// guest code looks like.
const maxBlockInstructions = 128

// translateBlock implements spec.md §4.5: linear translation starting at
// physPC (with virtPC the matching architectural address, needed for
// branch-target arithmetic), stopping at the first unhandled instruction,
// at a branch (after also translating its delay slot, unless that slot
// is itself a branch), at a syscall/break, where the next virtual page is
// not physically consecutive with the block's start (Mmu.
// PhysicallyConsecutive), or after maxBlockInstructions straight-line
// instructions. Returns (nil, physPC) if nothing could be
// translated — the "block size contract" the caller
// (Core.compileOrInterpretEntry) falls back to an interpreted entry for.
func translateBlock(c *Core, physPC, virtPC uint32, b bus.Bus) (*CompiledBlock, uint32) {
	var ops []blockOp
	phys, virt := physPC, virtPC

	fetch := func(at uint32) Instruction {
		return Decode(b.ReadU32(bus.Memory(at)))
	}

	for len(ops) < maxBlockInstructions {
		if !c.Mmu.PhysicallyConsecutive(virtPC, virt+instructionSize, c.Mode) {
			break
		}
		ins := fetch(phys)
		if jitUnsupported(ins.Op) {
			break
		}
		ops = append(ops, compileOp(ins, virt))
		phys += instructionSize
		virt += instructionSize

		if ins.IsBranch() {
			if !c.Mmu.PhysicallyConsecutive(virtPC, virt+instructionSize, c.Mode) {
				// The delay slot lies outside the consecutive run: leave the
				// branch out so it is executed together with its delay slot.
				ops = ops[:len(ops)-1]
				phys -= instructionSize
				break
			}
			delayIns := fetch(phys)
			if delayIns.IsBranch() {
				break
			}
			ops = append(ops, compileOp(delayIns, virt))
			phys += instructionSize
			virt += instructionSize
			break
		}
	}

	if len(ops) == 0 {
		return nil, physPC
	}
	token := c.exec.Allocate(len(ops))
	return &CompiledBlock{ops: ops, instructions: len(ops), code: token}, phys
}

// compileOp closes over one decoded instruction and the virtual address
// it was fetched from (needed only for branch-target arithmetic), and
// returns a blockOp that reproduces execute()'s semantics against the
// block's RegisterCache — the same function the interpreter calls, so
// P6 holds structurally rather than by careful duplication.
func compileOp(ins Instruction, vpc uint32) blockOp {
	return func(rc *RegisterCache, c *Core, b bus.Bus) {
		execute(ins, vpc, rc, c, b)
	}
}
