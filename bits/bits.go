// Package bits provides bit-range extraction, sign extension, and
// little-endian byte marshaling for the 8/16/32/64/128-bit words the
// Emotion Engine core operates on.
package bits

// Range is an inclusive-exclusive bit range [Lo, Hi) counted from bit 0.
type Range struct {
	Lo, Hi uint
}

// R builds a Range, the short way callers spell it at call sites.
func R(lo, hi uint) Range { return Range{Lo: lo, Hi: hi} }

// Mask32 returns a mask covering r within a 32-bit word.
func Mask32(r Range) uint32 {
	if r.Hi >= 32 {
		return ^uint32(0) << r.Lo
	}
	return (uint32(1)<<(r.Hi-r.Lo) - 1) << r.Lo
}

// Bits32 extracts r from v, right-justified.
func Bits32(v uint32, r Range) uint32 {
	return (v & Mask32(r)) >> r.Lo
}

// Bit32 reports whether bit i of v is set.
func Bit32(v uint32, i uint) bool {
	return v&(1<<i) != 0
}

// SetBits32 returns v with r replaced by value (masked to fit r).
func SetBits32(v uint32, r Range, value uint32) uint32 {
	mask := Mask32(r)
	return v&^mask | (value<<r.Lo)&mask
}

// Mask64 returns a mask covering r within a 64-bit word.
func Mask64(r Range) uint64 {
	if r.Hi >= 64 {
		return ^uint64(0) << r.Lo
	}
	return (uint64(1)<<(r.Hi-r.Lo) - 1) << r.Lo
}

// Bits64 extracts r from v, right-justified.
func Bits64(v uint64, r Range) uint64 {
	return (v & Mask64(r)) >> r.Lo
}

// Bit64 reports whether bit i of v is set.
func Bit64(v uint64, i uint) bool {
	return v&(1<<i) != 0
}

// SetBits64 returns v with r replaced by value (masked to fit r).
func SetBits64(v uint64, r Range, value uint64) uint64 {
	mask := Mask64(r)
	return v&^mask | (value<<r.Lo)&mask
}

// SignExtend8to32 sign-extends an 8-bit value into a 32-bit word.
func SignExtend8to32(v uint8) uint32 { return uint32(int32(int8(v))) }

// SignExtend16to32 sign-extends a 16-bit value into a 32-bit word.
func SignExtend16to32(v uint16) uint32 { return uint32(int32(int16(v))) }

// SignExtend32to64 sign-extends a 32-bit value into a 64-bit word, the
// operation the interpreter performs on every ALU result before it is
// written into a 128-bit register.
func SignExtend32to64(v uint32) uint64 { return uint64(int64(int32(v))) }

// SignExtend8to64 sign-extends an 8-bit value into a 64-bit word.
func SignExtend8to64(v uint8) uint64 { return uint64(int64(int8(v))) }

// SignExtend16to64 sign-extends a 16-bit value into a 64-bit word.
func SignExtend16to64(v uint16) uint64 { return uint64(int64(int16(v))) }

// U128 is a minimal 128-bit unsigned integer: Go has no native uint128, so
// the register file represents each GPR as a pair of uint64 halves (the
// same shape original_source's register.rs gets from Rust's builtin u128).
type U128 struct {
	Lo, Hi uint64
}

// FromU64 zero-extends a 64-bit value to 128 bits.
func FromU64(v uint64) U128 { return U128{Lo: v} }

// FromSignExtend64 sign-extends a 64-bit value to 128 bits.
func FromSignExtend64(v uint64) U128 {
	if int64(v) < 0 {
		return U128{Lo: v, Hi: ^uint64(0)}
	}
	return U128{Lo: v}
}

// SetLower64 overwrites the low 64 bits, preserving the upper 64 — the
// contract register.GetRegister/SetRegister from the Rust source name as
// "writes of u64 preserve the upper 64 bits" (spec.md §4.2).
func (u U128) SetLower64(v uint64) U128 { return U128{Lo: v, Hi: u.Hi} }

// SetUpper64 overwrites the upper 64 bits, preserving the lower 64.
func (u U128) SetUpper64(v uint64) U128 { return U128{Lo: u.Lo, Hi: v} }

// PutUint128LE writes u into b[0:16] little-endian.
func PutUint128LE(b []byte, u U128) {
	putUint64LE(b[0:8], u.Lo)
	putUint64LE(b[8:16], u.Hi)
}

// Uint128LE reads a little-endian 128-bit value from b[0:16].
func Uint128LE(b []byte) U128 {
	return U128{Lo: uint64LE(b[0:8]), Hi: uint64LE(b[8:16])}
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func uint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// PutUint64LE writes v into b[0:8] little-endian.
func PutUint64LE(b []byte, v uint64) { putUint64LE(b, v) }

// Uint64LE reads a little-endian 64-bit value from b[0:8].
func Uint64LE(b []byte) uint64 { return uint64LE(b) }

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func uint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// PutUint32LE writes v into b[0:4] little-endian.
func PutUint32LE(b []byte, v uint32) { putUint32LE(b, v) }

// Uint32LE reads a little-endian 32-bit value from b[0:4].
func Uint32LE(b []byte) uint32 { return uint32LE(b) }

// Bits128 extracts the bit range [lo, hi) (hi-lo <= 64) from a 128-bit
// value represented as two 64-bit halves, straddling the Lo/Hi boundary at
// bit 64 if necessary — used by the TLB entry's named sub-ranges, which
// original_source expresses as plain bit ranges over a native u128.
func Bits128(u U128, lo, hi uint) uint64 {
	switch {
	case hi <= 64:
		return Bits64(u.Lo, R(lo, hi))
	case lo >= 64:
		return Bits64(u.Hi, R(lo-64, hi-64))
	default:
		lowPart := u.Lo >> lo
		highBits := hi - 64
		highPart := Bits64(u.Hi, R(0, highBits))
		return lowPart | highPart<<(64-lo)
	}
}

// Bit128 reports whether bit i of u is set.
func Bit128(u U128, i uint) bool {
	if i < 64 {
		return Bit64(u.Lo, i)
	}
	return Bit64(u.Hi, i-64)
}

// PutUint16LE writes v into b[0:2] little-endian.
func PutUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// Uint16LE reads a little-endian 16-bit value from b[0:2].
func Uint16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
