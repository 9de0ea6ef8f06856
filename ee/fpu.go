package ee

import "math"

// FPRegister names one of the 32 CP1 single-precision slots.
type FPRegister uint8

const fpRegisterCount = 32

// FPRegisterFromIndex masks value to the 5-bit FPR field.
func FPRegisterFromIndex(value uint32) FPRegister { return FPRegister(value & 0x1F) }

// FPU is the CP1 register bank: 32 single-precision slots with raw-bits
// aliasing, matching spec.md §3's fpr[0..32].
type FPU struct {
	regs [fpRegisterCount]uint32
}

// GetBits returns the raw 32-bit pattern (used by Mfc1/Mtc1, which move
// bit patterns, not interpreted floats).
func (f *FPU) GetBits(r FPRegister) uint32 { return f.regs[r] }

// SetBits writes the raw 32-bit pattern.
func (f *FPU) SetBits(r FPRegister, v uint32) { f.regs[r] = v }

// GetFloat32 reinterprets the register as an IEEE-754 single.
func (f *FPU) GetFloat32(r FPRegister) float32 { return math.Float32frombits(f.regs[r]) }

// SetFloat32 stores v's bit pattern.
func (f *FPU) SetFloat32(r FPRegister, v float32) { f.regs[r] = math.Float32bits(v) }
