package ee

import "github.com/emu-ps2/ee2/bits"

// executeALU implements every arithmetic/logic/shift/immediate
// instruction. 32-bit results are sign-extended to 64 bits before being
// written into the 128-bit register, per spec.md §4.4.
func executeALU(ins Instruction, regs regAccess) {
	switch ins.Op {
	case OpAdd:
		rd, rs, rt := reg3(ins)
		// wraps on overflow; no exception (spec.md Design Notes iii)
		regs.Set32(rd, regs.Get32(rs)+regs.Get32(rt))
	case OpAddu:
		rd, rs, rt := reg3(ins)
		regs.Set32(rd, regs.Get32(rs)+regs.Get32(rt))
	case OpSub:
		rd, rs, rt := reg3(ins)
		// wraps on overflow; no exception (spec.md Design Notes iii)
		regs.Set32(rd, regs.Get32(rs)-regs.Get32(rt))
	case OpSubu:
		rd, rs, rt := reg3(ins)
		regs.Set32(rd, regs.Get32(rs)-regs.Get32(rt))
	case OpAnd:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, regs.Get64(rs)&regs.Get64(rt))
	case OpOr:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, regs.Get64(rs)|regs.Get64(rt))
	case OpXor:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, regs.Get64(rs)^regs.Get64(rt))
	case OpNor:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, ^(regs.Get64(rs) | regs.Get64(rt)))
	case OpSlt:
		rd, rs, rt := reg3(ins)
		if int64(regs.Get64(rs)) < int64(regs.Get64(rt)) {
			regs.Set64(rd, 1)
		} else {
			regs.Set64(rd, 0)
		}
	case OpSltu:
		rd, rs, rt := reg3(ins)
		if regs.Get64(rs) < regs.Get64(rt) {
			regs.Set64(rd, 1)
		} else {
			regs.Set64(rd, 0)
		}
	case OpSll:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set32(rd, regs.Get32(rt)<<(ins.C&0x1F))
	case OpSrl:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set32(rd, regs.Get32(rt)>>(ins.C&0x1F))
	case OpSra:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set32(rd, uint32(int32(regs.Get32(rt))>>(ins.C&0x1F)))
	case OpSllv:
		rd, rt, rs := reg3(ins)
		regs.Set32(rd, regs.Get32(rt)<<(regs.Get32(rs)&0x1F))
	case OpSrlv:
		rd, rt, rs := reg3(ins)
		regs.Set32(rd, regs.Get32(rt)>>(regs.Get32(rs)&0x1F))
	case OpSrav:
		rd, rt, rs := reg3(ins)
		regs.Set32(rd, uint32(int32(regs.Get32(rt))>>(regs.Get32(rs)&0x1F)))
	case OpDadd:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, regs.Get64(rs)+regs.Get64(rt))
	case OpDaddu:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, regs.Get64(rs)+regs.Get64(rt))
	case OpDsub:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, regs.Get64(rs)-regs.Get64(rt))
	case OpDsubu:
		rd, rs, rt := reg3(ins)
		regs.Set64(rd, regs.Get64(rs)-regs.Get64(rt))
	case OpDsllv:
		rd, rt, rs := reg3(ins)
		regs.Set64(rd, regs.Get64(rt)<<(regs.Get64(rs)&0x3F))
	case OpDsrlv:
		rd, rt, rs := reg3(ins)
		regs.Set64(rd, regs.Get64(rt)>>(regs.Get64(rs)&0x3F))
	case OpDsrav:
		rd, rt, rs := reg3(ins)
		regs.Set64(rd, uint64(int64(regs.Get64(rt))>>(regs.Get64(rs)&0x3F)))
	case OpDsll:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rd, regs.Get64(rt)<<(ins.C&0x3F))
	case OpDsrl:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rd, regs.Get64(rt)>>(ins.C&0x3F))
	case OpDsra:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rd, uint64(int64(regs.Get64(rt))>>(ins.C&0x3F)))
	case OpDsll32:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rd, regs.Get64(rt)<<(32+(ins.C&0x1F)))
	case OpDsrl32:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rd, regs.Get64(rt)>>(32+(ins.C&0x1F)))
	case OpDsra32:
		rd, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rd, uint64(int64(regs.Get64(rt))>>(32+(ins.C&0x1F))))
	case OpAddi:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		// wraps on overflow; no exception (spec.md Design Notes iii)
		regs.Set32(rt, regs.Get32(rs)+bits.SignExtend16to32(uint16(ins.C)))
	case OpAddiu:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set32(rt, regs.Get32(rs)+bits.SignExtend16to32(uint16(ins.C)))
	case OpSlti:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		if int64(regs.Get64(rs)) < int64(int32(bits.SignExtend16to32(uint16(ins.C)))) {
			regs.Set64(rt, 1)
		} else {
			regs.Set64(rt, 0)
		}
	case OpSltiu:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		imm := uint64(bits.SignExtend16to32(uint16(ins.C)))
		if regs.Get64(rs) < imm {
			regs.Set64(rt, 1)
		} else {
			regs.Set64(rt, 0)
		}
	case OpAndi:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rt, regs.Get64(rs)&uint64(uint16(ins.C)))
	case OpOri:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rt, regs.Get64(rs)|uint64(uint16(ins.C)))
	case OpXori:
		rt, rs := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		regs.Set64(rt, regs.Get64(rs)^uint64(uint16(ins.C)))
	case OpLui:
		rt := RegisterFromIndex(ins.A)
		regs.Set32(rt, uint32(ins.B)<<16)
	}
}

// reg3 decodes the common (A=def, B=use, C=use) GPR-triple shape most
// SPECIAL-format instructions share.
func reg3(ins Instruction) (a, b, c Register) {
	return RegisterFromIndex(ins.A), RegisterFromIndex(ins.B), RegisterFromIndex(ins.C)
}

// executeMulDiv implements Hi/Lo-producing and Hi/Lo-consuming
// instructions, including the architectural divide-by-zero and
// INT_MIN/-1 sentinels spec.md §4.4/Scenario 5 require.
func executeMulDiv(ins Instruction, regs regAccess) {
	switch ins.Op {
	case OpMfhi:
		regs.Set64(RegisterFromIndex(ins.A), regs.Get64(Hi))
	case OpMthi:
		regs.Set64(Hi, regs.Get64(RegisterFromIndex(ins.A)))
	case OpMflo:
		regs.Set64(RegisterFromIndex(ins.A), regs.Get64(Lo))
	case OpMtlo:
		regs.Set64(Lo, regs.Get64(RegisterFromIndex(ins.A)))
	case OpMult:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		a := int64(int32(regs.Get32(rs)))
		bv := int64(int32(regs.Get32(rt)))
		product := a * bv
		regs.Set64(Lo, bits.SignExtend32to64(uint32(product)))
		regs.Set64(Hi, bits.SignExtend32to64(uint32(product>>32)))
	case OpMultu:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		product := uint64(regs.Get32(rs)) * uint64(regs.Get32(rt))
		regs.Set64(Lo, bits.SignExtend32to64(uint32(product)))
		regs.Set64(Hi, bits.SignExtend32to64(uint32(product>>32)))
	case OpDiv:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		dividend := int32(regs.Get32(rs))
		divisor := int32(regs.Get32(rt))
		switch {
		case divisor == 0:
			// architectural sentinel, spec.md §4.4/Scenario 5: quotient
			// = -1, remainder = dividend.
			regs.Set64(Lo, bits.SignExtend32to64(uint32(int32(-1))))
			regs.Set64(Hi, bits.SignExtend32to64(uint32(dividend)))
		case dividend == -0x80000000 && divisor == -1:
			regs.Set64(Lo, bits.SignExtend32to64(uint32(dividend)))
			regs.Set64(Hi, 0)
		default:
			regs.Set64(Lo, bits.SignExtend32to64(uint32(dividend/divisor)))
			regs.Set64(Hi, bits.SignExtend32to64(uint32(dividend%divisor)))
		}
	case OpDivu:
		rs, rt := RegisterFromIndex(ins.A), RegisterFromIndex(ins.B)
		dividend := regs.Get32(rs)
		divisor := regs.Get32(rt)
		if divisor == 0 {
			regs.Set64(Lo, bits.SignExtend32to64(uint32(int32(-1))))
			regs.Set64(Hi, bits.SignExtend32to64(dividend))
			return
		}
		regs.Set64(Lo, bits.SignExtend32to64(dividend/divisor))
		regs.Set64(Hi, bits.SignExtend32to64(dividend%divisor))
	}
}
