package ee

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emu-ps2/ee2/bits"
	"github.com/emu-ps2/ee2/bus"
)

// newTestCore builds a Core with a flat 64 KiB physical memory wired to
// the cache's invalidator, and puts the core in kernel mode so kseg0
// (virtual 0x8000_0000..) identity-maps to physical 0x0000_0000.. —
// spec.md P3.
func newTestCore(t *testing.T) (*Core, *bus.FlatMemory) {
	t.Helper()
	core := NewCore(64*1024, 64)
	mem := bus.NewFlatMemory(64*1024, core.Invalidator())
	return core, mem
}

func kseg0(phys uint32) uint32 { return 0x80000000 | phys }

func writeWords(mem *bus.FlatMemory, phys uint32, words ...uint32) {
	for i, w := range words {
		mem.WriteU32(bus.Memory(phys+uint32(i*4)), w)
	}
}

// TestDecodeLui matches spec.md §8 Scenario 1's encoding.
func TestDecodeLui(t *testing.T) {
	ins := Decode(0x3C011234)
	require.Equal(t, OpLui, ins.Op)
	require.Equal(t, uint32(1), ins.A)
	require.Equal(t, uint32(0x1234), ins.B)
}

// rtype, itype and jtype build raw instruction words directly from their
// field positions, independently of Decode/encodeForRoundTrip, so
// TestDecodeReencodeRoundTrip exercises both against a word neither of
// them produced.
func rtype(rs, rt, rd, shamt, funct uint32) uint32 {
	return rs<<21 | rt<<16 | rd<<11 | shamt<<6 | funct
}

func itype(op, rs, rt, imm uint32) uint32 {
	return op<<26 | rs<<21 | rt<<16 | (imm & 0xFFFF)
}

func jtype(op, target uint32) uint32 {
	return op<<26 | (target & 0x3FFFFFF)
}

// encodeForRoundTrip re-encodes a decoded Instruction back into a 32-bit
// word via the inverse of its format's fixed bits — spec.md P2's decoder
// totality property, checked only by TestDecodeReencodeRoundTrip, so it
// lives here rather than as production API surface (the instruction ABI
// spec.md §6 names never asks for an encoder, only decode/Display/
// predicates/raw_definitions/raw_uses).
func encodeForRoundTrip(ins Instruction) uint32 {
	pack := func(opcode, rs, rt, rd, shamt, funct uint32) uint32 {
		return (opcode&0x3F)<<26 | (rs&0x1F)<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 | (shamt&0x1F)<<6 | (funct & 0x3F)
	}
	rWord := func(rs, rt, rd, shamt, funct uint32) uint32 { return pack(0, rs, rt, rd, shamt, funct) }
	iWord := func(op, rs, rt, imm uint32) uint32 {
		return (op&0x3F)<<26 | (rs&0x1F)<<21 | (rt&0x1F)<<16 | (imm & 0xFFFF)
	}
	jWord := func(op, target uint32) uint32 {
		return (op&0x3F)<<26 | (target & 0x3FFFFFF)
	}

	switch ins.Op {
	case OpAdd:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100000)
	case OpAddu:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100001)
	case OpSub:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100010)
	case OpSubu:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100011)
	case OpAnd:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100100)
	case OpOr:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100101)
	case OpXor:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100110)
	case OpNor:
		return rWord(ins.B, ins.C, ins.A, 0, 0b100111)
	case OpSlt:
		return rWord(ins.B, ins.C, ins.A, 0, 0b101010)
	case OpSltu:
		return rWord(ins.B, ins.C, ins.A, 0, 0b101011)
	case OpDadd:
		return rWord(ins.B, ins.C, ins.A, 0, 0b101100)
	case OpDaddu:
		return rWord(ins.B, ins.C, ins.A, 0, 0b101101)
	case OpDsub:
		return rWord(ins.B, ins.C, ins.A, 0, 0b101110)
	case OpDsubu:
		return rWord(ins.B, ins.C, ins.A, 0, 0b101111)
	case OpSll:
		return rWord(0, ins.B, ins.A, ins.C, 0b000000)
	case OpSrl:
		return rWord(0, ins.B, ins.A, ins.C, 0b000010)
	case OpSra:
		return rWord(0, ins.B, ins.A, ins.C, 0b000011)
	case OpDsll:
		return rWord(0, ins.B, ins.A, ins.C, 0b111000)
	case OpDsrl:
		return rWord(0, ins.B, ins.A, ins.C, 0b111010)
	case OpDsra:
		return rWord(0, ins.B, ins.A, ins.C, 0b111011)
	case OpDsll32:
		return rWord(0, ins.B, ins.A, ins.C, 0b111100)
	case OpDsrl32:
		return rWord(0, ins.B, ins.A, ins.C, 0b111110)
	case OpDsra32:
		return rWord(0, ins.B, ins.A, ins.C, 0b111111)
	case OpSllv:
		return rWord(ins.C, ins.B, ins.A, 0, 0b000100)
	case OpSrlv:
		return rWord(ins.C, ins.B, ins.A, 0, 0b000110)
	case OpSrav:
		return rWord(ins.C, ins.B, ins.A, 0, 0b000111)
	case OpDsllv:
		return rWord(ins.C, ins.B, ins.A, 0, 0b010100)
	case OpDsrlv:
		return rWord(ins.C, ins.B, ins.A, 0, 0b010110)
	case OpDsrav:
		return rWord(ins.C, ins.B, ins.A, 0, 0b010111)
	case OpJr:
		return rWord(ins.A, 0, 0, 0, 0b001000)
	case OpJalr:
		return rWord(ins.B, 0, ins.A, 0, 0b001001)
	case OpSyscall:
		return rWord(0, 0, 0, 0, 0b001100)
	case OpBreak:
		return rWord(0, 0, 0, 0, 0b001101)
	case OpMfhi:
		return rWord(0, 0, ins.A, 0, 0b010000)
	case OpMthi:
		return rWord(ins.A, 0, 0, 0, 0b010001)
	case OpMflo:
		return rWord(0, 0, ins.A, 0, 0b010010)
	case OpMtlo:
		return rWord(ins.A, 0, 0, 0, 0b010011)
	case OpMult:
		return rWord(ins.A, ins.B, 0, 0, 0b011000)
	case OpMultu:
		return rWord(ins.A, ins.B, 0, 0, 0b011001)
	case OpDiv:
		return rWord(ins.A, ins.B, 0, 0, 0b011010)
	case OpDivu:
		return rWord(ins.A, ins.B, 0, 0, 0b011011)
	case OpBltz:
		return iWord(0b000001, ins.A, 0, ins.B)
	case OpBgez:
		return iWord(0b000001, ins.A, 1, ins.B)
	case OpJ:
		return jWord(0b000010, ins.A)
	case OpJal:
		return jWord(0b000011, ins.B)
	case OpBeq:
		return iWord(0b000100, ins.A, ins.B, ins.C)
	case OpBne:
		return iWord(0b000101, ins.A, ins.B, ins.C)
	case OpBlez:
		return iWord(0b000110, ins.A, 0, ins.B)
	case OpBgtz:
		return iWord(0b000111, ins.A, 0, ins.B)
	case OpBeql:
		return iWord(0b010100, ins.A, ins.B, ins.C)
	case OpBnel:
		return iWord(0b010101, ins.A, ins.B, ins.C)
	case OpAddi:
		return iWord(0b001000, ins.B, ins.A, ins.C)
	case OpAddiu:
		return iWord(0b001001, ins.B, ins.A, ins.C)
	case OpSlti:
		return iWord(0b001010, ins.B, ins.A, ins.C)
	case OpSltiu:
		return iWord(0b001011, ins.B, ins.A, ins.C)
	case OpAndi:
		return iWord(0b001100, ins.B, ins.A, ins.C)
	case OpOri:
		return iWord(0b001101, ins.B, ins.A, ins.C)
	case OpXori:
		return iWord(0b001110, ins.B, ins.A, ins.C)
	case OpLui:
		return iWord(0b001111, 0, ins.A, ins.B)
	case OpMfc0:
		return pack(0b010000, 0, ins.A, ins.B, 0, 0)
	case OpMtc0:
		return pack(0b010000, 4, ins.B, ins.A, 0, 0)
	case OpMfc1:
		return pack(0b010001, 0, ins.A, ins.B, 0, 0)
	case OpMtc1:
		return pack(0b010001, 4, ins.B, ins.A, 0, 0)
	case OpLb:
		return iWord(0b100000, ins.B, ins.A, ins.C)
	case OpLh:
		return iWord(0b100001, ins.B, ins.A, ins.C)
	case OpLw:
		return iWord(0b100011, ins.B, ins.A, ins.C)
	case OpLbu:
		return iWord(0b100100, ins.B, ins.A, ins.C)
	case OpLhu:
		return iWord(0b100101, ins.B, ins.A, ins.C)
	case OpLwr:
		return iWord(0b100110, ins.B, ins.A, ins.C)
	case OpLwu:
		return iWord(0b100111, ins.B, ins.A, ins.C)
	case OpSb:
		return iWord(0b101000, ins.C, ins.A, ins.B)
	case OpSh:
		return iWord(0b101001, ins.C, ins.A, ins.B)
	case OpSw:
		return iWord(0b101011, ins.C, ins.A, ins.B)
	case OpLd:
		return iWord(0b110111, ins.B, ins.A, ins.C)
	case OpSd:
		return iWord(0b111111, ins.C, ins.A, ins.B)
	default:
		panic(fmt.Sprintf("encodeForRoundTrip: unhandled opcode %v", ins.Op))
	}
}

// TestDecodeReencodeRoundTrip is spec.md P2: decoding a word, re-encoding
// the result through the inverse of its format's fixed bits, and decoding
// again must yield an equivalent Instruction. Covers every opcode this
// core decodes.
func TestDecodeReencodeRoundTrip(t *testing.T) {
	words := []uint32{
		rtype(1, 2, 3, 0, 0b100000),  // add
		rtype(1, 2, 3, 0, 0b100001),  // addu
		rtype(1, 2, 3, 0, 0b100010),  // sub
		rtype(1, 2, 3, 0, 0b100011),  // subu
		rtype(1, 2, 3, 0, 0b100100),  // and
		rtype(1, 2, 3, 0, 0b100101),  // or
		rtype(1, 2, 3, 0, 0b100110),  // xor
		rtype(1, 2, 3, 0, 0b100111),  // nor
		rtype(1, 2, 3, 0, 0b101010),  // slt
		rtype(1, 2, 3, 0, 0b101011),  // sltu
		rtype(0, 2, 3, 4, 0b000000),  // sll
		rtype(0, 2, 3, 4, 0b000010),  // srl
		rtype(0, 2, 3, 4, 0b000011),  // sra
		rtype(1, 2, 3, 0, 0b000100),  // sllv
		rtype(1, 2, 3, 0, 0b000110),  // srlv
		rtype(1, 2, 3, 0, 0b000111),  // srav
		rtype(1, 0, 0, 0, 0b001000),  // jr
		rtype(1, 0, 3, 0, 0b001001),  // jalr
		rtype(0, 0, 0, 0, 0b001100),  // syscall
		rtype(0, 0, 0, 0, 0b001101),  // break
		rtype(0, 0, 3, 0, 0b010000),  // mfhi
		rtype(1, 0, 0, 0, 0b010001),  // mthi
		rtype(0, 0, 3, 0, 0b010010),  // mflo
		rtype(1, 0, 0, 0, 0b010011),  // mtlo
		rtype(1, 2, 0, 0, 0b011000),  // mult
		rtype(1, 2, 0, 0, 0b011001),  // multu
		rtype(1, 2, 0, 0, 0b011010),  // div
		rtype(1, 2, 0, 0, 0b011011),  // divu
		rtype(1, 2, 3, 0, 0b101100),  // dadd
		rtype(1, 2, 3, 0, 0b101101),  // daddu
		rtype(1, 2, 3, 0, 0b101110),  // dsub
		rtype(1, 2, 3, 0, 0b101111),  // dsubu
		rtype(1, 2, 3, 0, 0b010100),  // dsllv
		rtype(1, 2, 3, 0, 0b010110),  // dsrlv
		rtype(1, 2, 3, 0, 0b010111),  // dsrav
		rtype(0, 2, 3, 4, 0b111000),  // dsll
		rtype(0, 2, 3, 4, 0b111010),  // dsrl
		rtype(0, 2, 3, 4, 0b111011),  // dsra
		rtype(0, 2, 3, 4, 0b111100),  // dsll32
		rtype(0, 2, 3, 4, 0b111110),  // dsrl32
		rtype(0, 2, 3, 4, 0b111111),  // dsra32
		itype(0b000001, 1, 0, 0x1234), // bltz
		itype(0b000001, 1, 1, 0x1234), // bgez
		jtype(0b000010, 0xABCDEF),     // j
		jtype(0b000011, 0xABCDEF),     // jal
		itype(0b000100, 1, 2, 0x1234), // beq
		itype(0b000101, 1, 2, 0x1234), // bne
		itype(0b000110, 1, 0, 0x1234), // blez
		itype(0b000111, 1, 0, 0x1234), // bgtz
		itype(0b010100, 1, 2, 0x1234), // beql
		itype(0b010101, 1, 2, 0x1234), // bnel
		itype(0b001000, 1, 2, 0x1234), // addi
		itype(0b001001, 1, 2, 0x1234), // addiu
		itype(0b001010, 1, 2, 0x1234), // slti
		itype(0b001011, 1, 2, 0x1234), // sltiu
		itype(0b001100, 1, 2, 0x1234), // andi
		itype(0b001101, 1, 2, 0x1234), // ori
		itype(0b001110, 1, 2, 0x1234), // xori
		itype(0b001111, 0, 1, 0x1234), // lui
		rtype(0, 2, 5, 0, 0) | 0b010000<<26, // mfc0
		rtype(4, 2, 5, 0, 0) | 0b010000<<26, // mtc0
		rtype(0, 2, 6, 0, 0) | 0b010001<<26, // mfc1
		rtype(4, 2, 6, 0, 0) | 0b010001<<26, // mtc1
		itype(0b100000, 1, 2, 0x1234), // lb
		itype(0b100001, 1, 2, 0x1234), // lh
		itype(0b100011, 1, 2, 0x1234), // lw
		itype(0b100100, 1, 2, 0x1234), // lbu
		itype(0b100101, 1, 2, 0x1234), // lhu
		itype(0b100110, 1, 2, 0x1234), // lwr
		itype(0b100111, 1, 2, 0x1234), // lwu
		itype(0b101000, 1, 2, 0x1234), // sb
		itype(0b101001, 1, 2, 0x1234), // sh
		itype(0b101011, 1, 2, 0x1234), // sw
		itype(0b110111, 1, 2, 0x1234), // ld
		itype(0b111111, 1, 2, 0x1234), // sd
	}

	for _, word := range words {
		want := Decode(word)
		reencoded := encodeForRoundTrip(want)
		got := Decode(reencoded)
		require.Equal(t, want, got, "word %#010x (%s) did not round-trip", word, want)
	}
}

// TestInterpretLuiSignExtends checks spec.md §4.4's "32-bit arithmetic
// results are sign-extended to 64 bits" rule. Note: spec.md's Scenario 1
// prose gives 0xFFFFFFFF_12340000 as the expected post-interpret value,
// but 0x1234<<16 = 0x12340000 has its sign bit (bit 31) clear, so a
// faithful sign extension of that specific immediate is
// 0x0000000012340000, not 0xFFFFFFFF12340000. Implemented per the
// invariant spec.md states (sign-extend bit 31), not per the scenario's
// apparently inconsistent concrete number.
func TestInterpretLuiSignExtends(t *testing.T) {
	core, _ := newTestCore(t)
	execute(Instruction{Op: OpLui, A: 1, B: 0x1234}, 0, &core.Regs, core, nil)
	require.Equal(t, uint64(0x0000000012340000), core.Regs.Get64(Register(1)))

	// A genuinely negative immediate (bit 15 set, landing in bit 31 after
	// the <<16 shift) does sign-extend with 0xFFFFFFFF above it.
	execute(Instruction{Op: OpLui, A: 1, B: 0x8234}, 0, &core.Regs, core, nil)
	require.Equal(t, uint64(0xFFFFFFFF82340000), core.Regs.Get64(Register(1)))
}

// TestBranchNotTakenFallsThroughDelaySlot is spec.md §8 Scenario 2.
func TestBranchNotTakenFallsThroughDelaySlot(t *testing.T) {
	core, mem := newTestCore(t)
	writeWords(mem, 0x1000,
		0x24020001, // addiu r2, r0, 1
		0x00021100, // sll r2, r2, 4
		0x10400002, // beq r2, r0, +2
		0x00000000, // nop (delay slot)
		0x00000000, // nop
	)
	core.PC = kseg0(0x1000)
	core.Mode = ModeKernel

	for i := 0; i < 6; i++ {
		require.NoError(t, core.interpretOne(mem))
	}

	require.Equal(t, kseg0(0x1018), core.PC)
	require.Equal(t, uint64(16), core.Regs.Get64(Register(2)))
}

// TestJalDelaySlot is spec.md §8 Scenario 4.
func TestJalDelaySlot(t *testing.T) {
	core, mem := newTestCore(t)
	// jal 0x3000 ; addiu r3, r0, 7 -- at pc 0x4000
	jal := uint32(0b000011)<<26 | (0x3000 >> 2)
	addiu := uint32(0b001001)<<26 | (3 << 16) | 7
	writeWords(mem, 0x4000, jal, addiu)
	core.PC = kseg0(0x4000)
	core.Mode = ModeKernel

	require.NoError(t, core.interpretOne(mem))
	require.NoError(t, core.interpretOne(mem))

	require.Equal(t, kseg0(0x3000), core.PC)
	require.Equal(t, uint64(kseg0(0x4008)), core.Regs.Get64(Ra))
	require.Equal(t, uint64(7), core.Regs.Get64(Register(3)))
}

// TestDivisionByZero is spec.md §8 Scenario 5.
func TestDivisionByZero(t *testing.T) {
	core, _ := newTestCore(t)
	core.Regs.Set32(Register(4), 0xDEADBEEF)
	core.Regs.Set32(Register(5), 0)
	execute(Instruction{Op: OpDiv, A: 4, B: 5}, 0, &core.Regs, core, nil)

	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), core.Regs.Get64(Lo))
	require.Equal(t, uint64(0xFFFFFFFFDEADBEEF), core.Regs.Get64(Hi))
}

// TestIntMinDividedByNegativeOne is the other DIV architectural sentinel
// spec.md §4.4 names.
func TestIntMinDividedByNegativeOne(t *testing.T) {
	core, _ := newTestCore(t)
	core.Regs.Set32(Register(4), 0x80000000)
	core.Regs.Set32(Register(5), 0xFFFFFFFF)
	execute(Instruction{Op: OpDiv, A: 4, B: 5}, 0, &core.Regs, core, nil)

	require.Equal(t, uint64(0xFFFFFFFF80000000), core.Regs.Get64(Lo))
	require.Equal(t, uint64(0), core.Regs.Get64(Hi))
}

// TestTLBRoundTrip is spec.md §8 Scenario 6.
func TestTLBRoundTrip(t *testing.T) {
	core, _ := newTestCore(t)
	entry := buildTLBEntry(0x00100000, 0x00800000)
	core.Mmu.WriteIndex(0, entry)

	phys := core.Mmu.VirtualToPhysical(0x00100ABC, ModeUser)
	require.Equal(t, bus.PhysicalAddress(0x00800ABC), phys)

	entry2 := buildTLBEntry(0x00100000, 0x00900000)
	core.Mmu.WriteIndex(0, entry2)
	phys2 := core.Mmu.VirtualToPhysical(0x00100ABC, ModeUser)
	require.Equal(t, bus.PhysicalAddress(0x00900ABC), phys2)
}

// TestKsegIdentityMapping is spec.md P3.
func TestKsegIdentityMapping(t *testing.T) {
	core, _ := newTestCore(t)
	for _, v := range []uint32{0x80000000, 0x80001234, 0x9FFFFFFF} {
		require.Equal(t, bus.PhysicalAddress(v&0x1FFFFFFF), core.Mmu.VirtualToPhysical(v, ModeKernel))
	}
}

// TestZeroRegisterAlwaysReadsZero is spec.md P1.
func TestZeroRegisterAlwaysReadsZero(t *testing.T) {
	core, _ := newTestCore(t)
	core.Regs.Set32(Zero, 0xFFFFFFFF)
	core.Regs.Set64(Zero, 0xFFFFFFFFFFFFFFFF)
	core.Regs.Set128(Zero, bits.U128{Lo: 1, Hi: 1})
	require.Equal(t, uint64(0), core.Regs.Get64(Zero))
	require.Equal(t, bits.U128{}, core.Regs.Get128(Zero))
}

// TestSMCInvalidatesJittedEntry is spec.md §8 Scenario 3 / P5.
func TestSMCInvalidatesJittedEntry(t *testing.T) {
	core, mem := newTestCore(t)
	writeWords(mem, 0x2000,
		0x24020001,                // addiu r2, r0, 1
		0x24030001,                // addiu r3, r0, 1
		0x24040001,                // addiu r4, r0, 1
		0x24050001,                // addiu r5, r0, 1
		uint32(0b000000)<<26|0xC, // syscall, stops translation here
	)
	core.PC = kseg0(0x2000)
	core.Mode = ModeKernel

	require.NoError(t, core.Step(1, mem))
	slot := uint32(0x2000) / instructionSize
	_, cachedBefore := core.cache.starts[slot].view()
	require.True(t, cachedBefore, "expected block at 0x2000 to be cached after first step")

	mem.WriteU32(bus.Memory(0x2008), 0)

	_, cachedAfter := core.cache.starts[slot].view()
	require.False(t, cachedAfter, "SMC write should have invalidated the translation covering it")
}

// TestJITInterpreterEquivalence is spec.md P6: running an ALU instruction
// through the JIT's RegisterCache path must produce the same
// architectural state as interpreting it directly.
func TestJITInterpreterEquivalence(t *testing.T) {
	ins := Instruction{Op: OpAddu, A: 3, B: 1, C: 2}

	interp, _ := newTestCore(t)
	interp.Regs.Set32(Register(1), 10)
	interp.Regs.Set32(Register(2), 32)
	execute(ins, 0, &interp.Regs, interp, nil)

	jitted, _ := newTestCore(t)
	jitted.Regs.Set32(Register(1), 10)
	jitted.Regs.Set32(Register(2), 32)
	rc := newRegisterCache(&jitted.Regs)
	execute(ins, 0, rc, jitted, nil)
	rc.WriteBackAll()

	require.Equal(t, interp.Regs.Get64(Register(3)), jitted.Regs.Get64(Register(3)))
}

// TestDelaySlotAppliesOnce is spec.md P7.
func TestDelaySlotAppliesOnce(t *testing.T) {
	core, mem := newTestCore(t)
	// beq r0, r0, +1 ; addiu r8, r0, 5 (delay slot, must apply exactly once)
	beq := uint32(0b000100)<<26 | 1
	addiu := uint32(0b001001)<<26 | (8 << 16) | 5
	writeWords(mem, 0x5000, beq, addiu)
	core.PC = kseg0(0x5000)
	core.Mode = ModeKernel

	require.NoError(t, core.interpretOne(mem)) // beq, taken: latches target
	require.NoError(t, core.interpretOne(mem)) // delay slot executes once

	require.Equal(t, uint64(5), core.Regs.Get64(Register(8)))
	target := kseg0(0x5000) + 4 + 1*4
	require.Equal(t, target, core.PC)
}

// buildTLBEntry constructs a 4 KiB-page TLB entry mapping virtualPage
// (the even half) to frame, valid, matching mmu.go's TLBEntry bit layout.
func buildTLBEntry(virtualPage, frame uint32) TLBEntry {
	vpnDiv2 := uint64((virtualPage >> 12) / 2)
	pfnEven := uint64(frame >> 12)
	var raw bits.U128
	raw = setRange128(raw, 77, 96, vpnDiv2)
	raw = setRange128(raw, 38, 58, pfnEven)
	raw = setBit(raw, 33)
	return TLBEntry{Raw: raw}
}

func setBits(word uint64, lo, hi uint, value uint64) uint64 {
	mask := (uint64(1)<<(hi-lo) - 1) << lo
	return word&^mask | (value<<lo)&mask
}

// setRange128 writes value into bit range [lo, hi) of a 128-bit word,
// straddling the Lo/Hi boundary at bit 64 if necessary.
func setRange128(u bits.U128, lo, hi uint, value uint64) bits.U128 {
	switch {
	case hi <= 64:
		u.Lo = setBits(u.Lo, lo, hi, value)
	case lo >= 64:
		u.Hi = setBits(u.Hi, lo-64, hi-64, value)
	default:
		lowWidth := 64 - lo
		u.Lo = setBits(u.Lo, lo, 64, value)
		u.Hi = setBits(u.Hi, 0, hi-64, value>>lowWidth)
	}
	return u
}

func setBit(u bits.U128, i uint) bits.U128 {
	if i < 64 {
		u.Lo |= 1 << i
	} else {
		u.Hi |= 1 << (i - 64)
	}
	return u
}
