package ee

import (
	"fmt"

	"github.com/emu-ps2/ee2/bits"
	"github.com/emu-ps2/ee2/bus"
)

// regAccess is the GPR surface both the interpreter (backed directly by
// Core.Regs) and JIT-compiled blocks (backed by a per-block
// RegisterCache) read and write through. execute() is written once
// against this interface so the two execution paths can never drift —
// the mechanism spec.md P6 (JIT/interpreter equivalence) relies on.
type regAccess interface {
	Get32(r Register) uint32
	Get64(r Register) uint64
	Get128(r Register) bits.U128
	GetUpper64(r Register) uint64
	Set32(r Register, v uint32)
	Set32Zero(r Register, v uint32)
	Set64(r Register, v uint64)
	Set128(r Register, v bits.U128)
	SetUpper64(r Register, v uint64)
}

var _ regAccess = (*RegisterFile)(nil)

// interpretOne fetches, decodes, and executes the instruction at the
// core's current physical PC.
func (c *Core) interpretOne(b bus.Bus) error {
	physPC := c.Mmu.VirtualToPhysical(c.PC, c.Mode)
	word := b.ReadU32(bus.Memory(physPC))
	return c.interpretDecoded(Decode(word), b)
}

// interpretDecoded runs one already-decoded instruction. It implements
// spec.md §4.4's delay-slot protocol: next_pc is computed from the
// previously-latched delayed_branch_target (if any) before the current
// instruction runs, and the current instruction may latch a new target
// for the following step by calling Core.SetDelayedBranchTarget.
func (c *Core) interpretDecoded(ins Instruction, b bus.Bus) error {
	thisPC := c.PC
	nextPC := thisPC + 4
	if c.hasDelayedTarget {
		nextPC = c.delayedTarget
		c.hasDelayedTarget = false
	}

	if ins.Op == OpSyscall {
		err := c.syscall()
		c.PC = nextPC
		return err
	}
	if ins.Op == OpBreak {
		c.PC = nextPC
		return fmt.Errorf("break instruction hit at %#010x", thisPC)
	}

	execute(ins, thisPC, &c.Regs, c, b)
	c.PC = nextPC
	return nil
}

// execute runs every instruction except Syscall/Break (the interpreter
// handles those itself; the JIT translator never compiles them into a
// block — see jit.go). Shared verbatim by the interpreter and by every
// JIT-compiled closure.
func execute(ins Instruction, thisPC uint32, regs regAccess, c *Core, b bus.Bus) {
	switch ins.Op {
	case OpAdd, OpAddu, OpSub, OpSubu, OpAnd, OpOr, OpXor, OpNor, OpSlt, OpSltu,
		OpSll, OpSrl, OpSra, OpSllv, OpSrlv, OpSrav,
		OpDadd, OpDaddu, OpDsub, OpDsubu, OpDsllv, OpDsrlv, OpDsrav,
		OpDsll, OpDsrl, OpDsra, OpDsll32, OpDsrl32, OpDsra32,
		OpAddi, OpAddiu, OpSlti, OpSltiu, OpAndi, OpOri, OpXori, OpLui:
		executeALU(ins, regs)
	case OpMfhi, OpMthi, OpMflo, OpMtlo, OpMult, OpMultu, OpDiv, OpDivu:
		executeMulDiv(ins, regs)
	case OpJr, OpJalr, OpJ, OpJal, OpBeq, OpBne, OpBlez, OpBgtz, OpBeql, OpBnel, OpBltz, OpBgez:
		executeBranch(ins, thisPC, regs, c)
	case OpMfc0, OpMtc0:
		executeCop0(ins, regs, c)
	case OpMfc1, OpMtc1:
		executeCop1(ins, regs, c)
	case OpLb, OpLh, OpLw, OpLbu, OpLhu, OpLwr, OpLwu, OpLd, OpSb, OpSh, OpSw, OpSd:
		executeMemory(ins, regs, c, b)
	default:
		panic(fmt.Sprintf("unimplemented instruction: %s", ins))
	}
}

func executeCop0(ins Instruction, regs regAccess, c *Core) {
	switch ins.Op {
	case OpMfc0:
		regs.Set32(RegisterFromIndex(ins.A), c.CP0.Get(ControlRegister(ins.B)))
	case OpMtc0:
		c.CP0.Set(ControlRegister(ins.A), regs.Get32(RegisterFromIndex(ins.B)))
	}
}

func executeCop1(ins Instruction, regs regAccess, c *Core) {
	switch ins.Op {
	case OpMfc1:
		regs.Set32(RegisterFromIndex(ins.A), c.FPU.GetBits(FPRegister(ins.B)))
	case OpMtc1:
		c.FPU.SetBits(FPRegister(ins.A), regs.Get32(RegisterFromIndex(ins.B)))
	}
}
