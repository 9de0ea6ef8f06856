package ee

import (
	"fmt"

	"github.com/emu-ps2/ee2/bits"
)

// Register names the 32 general-purpose registers plus Hi/Lo, addressed
// uniformly — original_source's register.rs folds Hi/Lo into the same
// enum as the GPRs so multiply/divide results are "just registers" to
// everything downstream (interpreter dispatch, JIT register cache).
type Register uint8

const (
	Zero Register = iota
	At
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	Gp
	Sp
	Fp
	Ra
	Lo
	Hi
	registerCount
)

var registerNames = [registerCount]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
	"lo", "hi",
}

func (r Register) String() string {
	if int(r) >= len(registerNames) {
		return fmt.Sprintf("r%d", uint8(r))
	}
	return registerNames[r]
}

// RegisterFromIndex masks value to the 5-bit GPR field; used by the
// decoder's A/B/C operand slots.
func RegisterFromIndex(value uint32) Register { return Register(value & 0x1F) }

// RegisterFile holds the 34 addressable 128-bit registers (32 GPRs + Lo +
// Hi). Reads/writes to Zero are always/never observed respectively —
// spec.md P1.
type RegisterFile struct {
	regs [registerCount]bits.U128
}

// Get32 returns the low 32 bits.
func (f *RegisterFile) Get32(r Register) uint32 { return uint32(f.regs[r].Lo) }

// Get64 returns the low 64 bits.
func (f *RegisterFile) Get64(r Register) uint64 { return f.regs[r].Lo }

// Get128 returns the full 128-bit value.
func (f *RegisterFile) Get128(r Register) bits.U128 { return f.regs[r] }

// GetUpper64 returns bits 64..128.
func (f *RegisterFile) GetUpper64(r Register) uint64 { return f.regs[r].Hi }

// Set32 sign-extends v to 64 bits and writes it (preserving the upper 64
// bits of the 128-bit register) — every 32-bit ALU result in the
// interpreter goes through this path (spec.md §4.4: "32-bit arithmetic
// results are sign-extended to 64 bits before being written").
func (f *RegisterFile) Set32(r Register, v uint32) {
	if r == Zero {
		return
	}
	f.regs[r] = f.regs[r].SetLower64(bits.SignExtend32to64(v))
}

// Set32Zero writes v zero-extended rather than sign-extended (used for
// the few instructions whose architectural result is unsigned, e.g.
// unsigned loads).
func (f *RegisterFile) Set32Zero(r Register, v uint32) {
	if r == Zero {
		return
	}
	f.regs[r] = f.regs[r].SetLower64(uint64(v))
}

// Set64 overwrites the low 64 bits, preserving the upper 64.
func (f *RegisterFile) Set64(r Register, v uint64) {
	if r == Zero {
		return
	}
	f.regs[r] = f.regs[r].SetLower64(v)
}

// Set128 overwrites the register fully.
func (f *RegisterFile) Set128(r Register, v bits.U128) {
	if r == Zero {
		return
	}
	f.regs[r] = v
}

// SetUpper64 overwrites bits 64..128, preserving the lower 64 — backs the
// Hi1/Lo1-style high-half multiply/divide accessors spec.md §4.2 names.
func (f *RegisterFile) SetUpper64(r Register, v uint64) {
	if r == Zero {
		return
	}
	f.regs[r] = f.regs[r].SetUpper64(v)
}
