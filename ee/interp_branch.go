package ee

import "github.com/emu-ps2/ee2/bits"

// branchTarget computes a PC-relative branch target: the displacement is
// relative to the delay-slot address (thisPC+4), the standard MIPS rule.
func branchTarget(thisPC uint32, imm16 uint32) uint32 {
	return thisPC + 4 + bits.SignExtend16to32(uint16(imm16))*4
}

// jumpTarget computes a J-format absolute target: the top 4 bits of the
// current instruction's address combined with the 26-bit field shifted
// left 2.
func jumpTarget(thisPC, field uint32) uint32 {
	return (thisPC & 0xF0000000) | (field << 2)
}

// executeBranch implements every branch/jump variant. Per spec.md §4.4,
// a taken branch (or any unconditional jump) latches its target via
// Core.SetDelayedBranchTarget for the following step to consume; a
// not-taken regular branch latches nothing (the default next_pc = pc+4
// already walks into, and through, the delay slot). A not-taken
// "likely" branch latches thisPC+8 directly, annulling the delay slot
// per spec.md §4.4's "likely branches ... skip the delay slot instruction
// on not-taken by advancing next_pc by 4".
func executeBranch(ins Instruction, thisPC uint32, regs regAccess, c *Core) {
	switch ins.Op {
	case OpJr:
		rs := RegisterFromIndex(ins.A)
		c.SetDelayedBranchTarget(regs.Get32(rs))
	case OpJalr:
		rd, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set32(rd, thisPC+8)
		c.SetDelayedBranchTarget(regs.Get32(rs))
	case OpJ:
		c.SetDelayedBranchTarget(jumpTarget(thisPC, ins.A))
	case OpJal:
		regs.Set32(Ra, thisPC+8)
		c.SetDelayedBranchTarget(jumpTarget(thisPC, ins.B))
	case OpBeq:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		if regs.Get64(rs) == regs.Get64(rt) {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.C))
		}
	case OpBne:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		if regs.Get64(rs) != regs.Get64(rt) {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.C))
		}
	case OpBlez:
		rs := RegisterFromIndex(ins.A)
		if int64(regs.Get64(rs)) <= 0 {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.B))
		}
	case OpBgtz:
		rs := RegisterFromIndex(ins.A)
		if int64(regs.Get64(rs)) > 0 {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.B))
		}
	case OpBltz:
		rs := RegisterFromIndex(ins.A)
		if int64(regs.Get64(rs)) < 0 {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.B))
		}
	case OpBgez:
		rs := RegisterFromIndex(ins.A)
		if int64(regs.Get64(rs)) >= 0 {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.B))
		}
	case OpBeql:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		if regs.Get64(rs) == regs.Get64(rt) {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.C))
		} else {
			c.SetDelayedBranchTarget(thisPC + 8)
		}
	case OpBnel:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		if regs.Get64(rs) != regs.Get64(rt) {
			c.SetDelayedBranchTarget(branchTarget(thisPC, ins.C))
		} else {
			c.SetDelayedBranchTarget(thisPC + 8)
		}
	}
}
