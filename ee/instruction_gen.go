package ee

// This file is the hand-authored output of cmd/decodergen run against
// isa/ee_core.yaml — the decision-tree algorithm it implements is ported
// faithfully from original_source's decoder_generator, but the actual
// binary cannot be executed in this environment, so its output is written
// by hand here, kept in lockstep with the YAML spec. Slot convention: each
// Instruction carries up to three raw uint32 operand slots (A, B, C) in
// the order they appear in the format string (definitions first, then
// uses) — see the per-opcode comment beside each decode arm. Predicate
// methods and the RawDefinitions/RawUses definition/use tables are kept
// in lockstep with isa/ee_core.yaml's predicates:/defs:/uses: lists the
// same way.

import "fmt"

// Opcode tags the ~70-variant closed instruction set this core decodes.
type Opcode uint8

const (
	OpUnknown Opcode = iota
	OpAdd
	OpAddu
	OpSub
	OpSubu
	OpAnd
	OpOr
	OpXor
	OpNor
	OpSlt
	OpSltu
	OpSll
	OpSrl
	OpSra
	OpSllv
	OpSrlv
	OpSrav
	OpJr
	OpJalr
	OpSyscall
	OpBreak
	OpMfhi
	OpMthi
	OpMflo
	OpMtlo
	OpMult
	OpMultu
	OpDiv
	OpDivu
	OpDadd
	OpDaddu
	OpDsub
	OpDsubu
	OpDsllv
	OpDsrlv
	OpDsrav
	OpDsll
	OpDsrl
	OpDsra
	OpDsll32
	OpDsrl32
	OpDsra32
	OpBltz
	OpBgez
	OpJ
	OpJal
	OpBeq
	OpBne
	OpBlez
	OpBgtz
	OpBeql
	OpBnel
	OpAddi
	OpAddiu
	OpSlti
	OpSltiu
	OpAndi
	OpOri
	OpXori
	OpLui
	OpMfc0
	OpMtc0
	OpMfc1
	OpMtc1
	OpLb
	OpLh
	OpLw
	OpLbu
	OpLhu
	OpLwr
	OpLwu
	OpSb
	OpSh
	OpSw
	OpLd
	OpSd
)

// Instruction is the decoded tagged union; A/B/C hold raw operand values
// (register numbers, the shift amount, the sign-undecided 16-bit
// immediate, or the 26-bit jump target) per Opcode.
type Instruction struct {
	Op      Opcode
	A, B, C uint32
}

func decodeRS(data uint32) uint32      { return (data >> 21) & 0x1F }
func decodeRT(data uint32) uint32      { return (data >> 16) & 0x1F }
func decodeRD(data uint32) uint32      { return (data >> 11) & 0x1F }
func decodeShamt(data uint32) uint32   { return (data >> 6) & 0x1F }
func decodeImm16(data uint32) uint32   { return data & 0xFFFF }
func decodeTarget(data uint32) uint32  { return data & 0x03FFFFFF }
func decodeCop0Reg(data uint32) uint32 { return (data >> 11) & 0x1F }
func decodeFS(data uint32) uint32      { return (data >> 11) & 0x1F }
func decodeFT(data uint32) uint32      { return (data >> 16) & 0x1F }

// Decode implements the generator's decision tree: split on the 6-bit
// opcode field first (bits 31..26, always discriminating since every
// mnemonic fixes it), then recurse into funct/rt/rs sub-fields exactly as
// original_source's DecisionTree::new would for this encoding set.
func Decode(data uint32) Instruction {
	rs, rt, rd := decodeRS(data), decodeRT(data), decodeRD(data)
	shamt, imm16, target := decodeShamt(data), decodeImm16(data), decodeTarget(data)
	cop0reg, fs, ft := decodeCop0Reg(data), decodeFS(data), decodeFT(data)
	_ = ft

	opcode := data >> 26
	switch opcode {
	case 0b000000: // SPECIAL
		switch data & 0x3F {
		case 0b100000:
			return Instruction{OpAdd, rd, rs, rt}
		case 0b100001:
			return Instruction{OpAddu, rd, rs, rt}
		case 0b100010:
			return Instruction{OpSub, rd, rs, rt}
		case 0b100011:
			return Instruction{OpSubu, rd, rs, rt}
		case 0b100100:
			return Instruction{OpAnd, rd, rs, rt}
		case 0b100101:
			return Instruction{OpOr, rd, rs, rt}
		case 0b100110:
			return Instruction{OpXor, rd, rs, rt}
		case 0b100111:
			return Instruction{OpNor, rd, rs, rt}
		case 0b101010:
			return Instruction{OpSlt, rd, rs, rt}
		case 0b101011:
			return Instruction{OpSltu, rd, rs, rt}
		case 0b000000:
			return Instruction{OpSll, rd, rt, shamt}
		case 0b000010:
			return Instruction{OpSrl, rd, rt, shamt}
		case 0b000011:
			return Instruction{OpSra, rd, rt, shamt}
		case 0b000100:
			return Instruction{OpSllv, rd, rt, rs}
		case 0b000110:
			return Instruction{OpSrlv, rd, rt, rs}
		case 0b000111:
			return Instruction{OpSrav, rd, rt, rs}
		case 0b001000:
			return Instruction{Op: OpJr, A: rs}
		case 0b001001:
			return Instruction{OpJalr, rd, rs, 0}
		case 0b001100:
			return Instruction{Op: OpSyscall}
		case 0b001101:
			return Instruction{Op: OpBreak}
		case 0b010000:
			return Instruction{Op: OpMfhi, A: rd}
		case 0b010001:
			return Instruction{Op: OpMthi, A: rs}
		case 0b010010:
			return Instruction{Op: OpMflo, A: rd}
		case 0b010011:
			return Instruction{Op: OpMtlo, A: rs}
		case 0b011000:
			return Instruction{OpMult, rs, rt, 0}
		case 0b011001:
			return Instruction{OpMultu, rs, rt, 0}
		case 0b011010:
			return Instruction{OpDiv, rs, rt, 0}
		case 0b011011:
			return Instruction{OpDivu, rs, rt, 0}
		case 0b101100:
			return Instruction{OpDadd, rd, rs, rt}
		case 0b101101:
			return Instruction{OpDaddu, rd, rs, rt}
		case 0b101110:
			return Instruction{OpDsub, rd, rs, rt}
		case 0b101111:
			return Instruction{OpDsubu, rd, rs, rt}
		case 0b010100:
			return Instruction{OpDsllv, rd, rt, rs}
		case 0b010110:
			return Instruction{OpDsrlv, rd, rt, rs}
		case 0b010111:
			return Instruction{OpDsrav, rd, rt, rs}
		case 0b111000:
			return Instruction{OpDsll, rd, rt, shamt}
		case 0b111010:
			return Instruction{OpDsrl, rd, rt, shamt}
		case 0b111011:
			return Instruction{OpDsra, rd, rt, shamt}
		case 0b111100:
			return Instruction{OpDsll32, rd, rt, shamt}
		case 0b111110:
			return Instruction{OpDsrl32, rd, rt, shamt}
		case 0b111111:
			return Instruction{OpDsra32, rd, rt, shamt}
		default:
			panic(fmt.Sprintf("undecodable SPECIAL instruction: %#034b", data))
		}
	case 0b000001: // REGIMM
		switch rt {
		case 0:
			return Instruction{OpBltz, rs, imm16, 0}
		case 1:
			return Instruction{OpBgez, rs, imm16, 0}
		default:
			panic(fmt.Sprintf("undecodable REGIMM instruction: %#034b", data))
		}
	case 0b000010:
		return Instruction{Op: OpJ, A: target}
	case 0b000011:
		return Instruction{OpJal, rd /* link reg filled by interpreter */, target, 0}
	case 0b000100:
		return Instruction{OpBeq, rs, rt, imm16}
	case 0b000101:
		return Instruction{OpBne, rs, rt, imm16}
	case 0b000110:
		return Instruction{OpBlez, rs, imm16, 0}
	case 0b000111:
		return Instruction{OpBgtz, rs, imm16, 0}
	case 0b010100:
		return Instruction{OpBeql, rs, rt, imm16}
	case 0b010101:
		return Instruction{OpBnel, rs, rt, imm16}
	case 0b001000:
		return Instruction{OpAddi, rt, rs, imm16}
	case 0b001001:
		return Instruction{OpAddiu, rt, rs, imm16}
	case 0b001010:
		return Instruction{OpSlti, rt, rs, imm16}
	case 0b001011:
		return Instruction{OpSltiu, rt, rs, imm16}
	case 0b001100:
		return Instruction{OpAndi, rt, rs, imm16}
	case 0b001101:
		return Instruction{OpOri, rt, rs, imm16}
	case 0b001110:
		return Instruction{OpXori, rt, rs, imm16}
	case 0b001111:
		return Instruction{Op: OpLui, A: rt, B: imm16}
	case 0b010000: // COP0
		switch rs {
		case 0:
			return Instruction{Op: OpMfc0, A: rt, B: cop0reg}
		case 4:
			return Instruction{Op: OpMtc0, A: cop0reg, B: rt}
		default:
			panic(fmt.Sprintf("undecodable COP0 instruction: %#034b", data))
		}
	case 0b010001: // COP1
		switch rs {
		case 0:
			return Instruction{Op: OpMfc1, A: rt, B: fs}
		case 4:
			return Instruction{Op: OpMtc1, A: fs, B: rt}
		default:
			panic(fmt.Sprintf("undecodable COP1 instruction: %#034b", data))
		}
	case 0b100000:
		return Instruction{OpLb, rt, rs, imm16}
	case 0b100001:
		return Instruction{OpLh, rt, rs, imm16}
	case 0b100011:
		return Instruction{OpLw, rt, rs, imm16}
	case 0b100100:
		return Instruction{OpLbu, rt, rs, imm16}
	case 0b100101:
		return Instruction{OpLhu, rt, rs, imm16}
	case 0b100110:
		return Instruction{OpLwr, rt, rs, imm16}
	case 0b100111:
		return Instruction{OpLwu, rt, rs, imm16}
	case 0b101000:
		return Instruction{OpSb, rt, imm16, rs}
	case 0b101001:
		return Instruction{OpSh, rt, imm16, rs}
	case 0b101011:
		return Instruction{OpSw, rt, imm16, rs}
	case 0b110111:
		return Instruction{OpLd, rt, rs, imm16}
	case 0b111111:
		return Instruction{OpSd, rt, imm16, rs}
	default:
		panic(fmt.Sprintf("undecodable instruction word: %#034b", data))
	}
}

var mnemonics = map[Opcode]string{
	OpAdd: "add", OpAddu: "addu", OpSub: "sub", OpSubu: "subu", OpAnd: "and",
	OpOr: "or", OpXor: "xor", OpNor: "nor", OpSlt: "slt", OpSltu: "sltu",
	OpSll: "sll", OpSrl: "srl", OpSra: "sra", OpSllv: "sllv", OpSrlv: "srlv",
	OpSrav: "srav", OpJr: "jr", OpJalr: "jalr", OpSyscall: "syscall",
	OpBreak: "break", OpMfhi: "mfhi", OpMthi: "mthi", OpMflo: "mflo",
	OpMtlo: "mtlo", OpMult: "mult", OpMultu: "multu", OpDiv: "div",
	OpDivu: "divu", OpDadd: "dadd", OpDaddu: "daddu", OpDsub: "dsub",
	OpDsubu: "dsubu", OpDsllv: "dsllv", OpDsrlv: "dsrlv", OpDsrav: "dsrav",
	OpDsll: "dsll", OpDsrl: "dsrl", OpDsra: "dsra", OpDsll32: "dsll32",
	OpDsrl32: "dsrl32", OpDsra32: "dsra32", OpBltz: "bltz", OpBgez: "bgez",
	OpJ: "j", OpJal: "jal", OpBeq: "beq", OpBne: "bne", OpBlez: "blez",
	OpBgtz: "bgtz", OpBeql: "beql", OpBnel: "bnel", OpAddi: "addi",
	OpAddiu: "addiu", OpSlti: "slti", OpSltiu: "sltiu", OpAndi: "andi",
	OpOri: "ori", OpXori: "xori", OpLui: "lui", OpMfc0: "mfc0", OpMtc0: "mtc0",
	OpMfc1: "mfc1", OpMtc1: "mtc1", OpLb: "lb", OpLh: "lh", OpLw: "lw",
	OpLbu: "lbu", OpLhu: "lhu", OpLwr: "lwr", OpLwu: "lwu", OpSb: "sb",
	OpSh: "sh", OpSw: "sw", OpLd: "ld", OpSd: "sd",
}

// IsNop reports whether ins has no observable effect — "sll $0, $0, 0" is
// the canonical guest NOP encoding (word 0x00000000).
func (ins Instruction) IsNop() bool {
	return ins.Op == OpSll && ins.A == 0 && ins.B == 0 && ins.C == 0
}

// IsBranch reports whether ins is a branch or jump that writes the
// delayed-branch-target latch (spec.md §4.4).
func (ins Instruction) IsBranch() bool {
	switch ins.Op {
	case OpJr, OpJalr, OpJ, OpJal, OpBeq, OpBne, OpBlez, OpBgtz, OpBeql, OpBnel, OpBltz, OpBgez:
		return true
	default:
		return false
	}
}

// IsLikely reports whether ins is a "likely" branch that skips its delay
// slot when not taken.
func (ins Instruction) IsLikely() bool {
	return ins.Op == OpBeql || ins.Op == OpBnel
}

// IsLoad reports whether ins reads guest memory.
func (ins Instruction) IsLoad() bool {
	switch ins.Op {
	case OpLb, OpLh, OpLw, OpLbu, OpLhu, OpLwr, OpLwu, OpLd:
		return true
	default:
		return false
	}
}

// IsStore reports whether ins writes guest memory.
func (ins Instruction) IsStore() bool {
	switch ins.Op {
	case OpSb, OpSh, OpSw, OpSd:
		return true
	default:
		return false
	}
}

// IsMultiplyDivide reports whether ins is one of the Hi/Lo-defining
// multiply/divide instructions.
func (ins Instruction) IsMultiplyDivide() bool {
	switch ins.Op {
	case OpMult, OpMultu, OpDiv, OpDivu:
		return true
	default:
		return false
	}
}

// OccurrenceKind distinguishes which of the three independently-addressed
// register banks an Occurrence names.
type OccurrenceKind uint8

const (
	OccurrenceCore OccurrenceKind = iota
	OccurrenceControl
	OccurrenceFPU
)

// Occurrence is a single register reference as named by an instruction's
// definition/use table.
type Occurrence struct {
	Kind    OccurrenceKind
	Core    Register
	Control ControlRegister
	FPU     FPRegister
}

func coreOccurrence(r Register) *Occurrence { return &Occurrence{Kind: OccurrenceCore, Core: r} }
func controlOccurrence(r ControlRegister) *Occurrence {
	return &Occurrence{Kind: OccurrenceControl, Control: r}
}
func fpuOccurrence(r FPRegister) *Occurrence { return &Occurrence{Kind: OccurrenceFPU, FPU: r} }

// NonZero reports o unless it names the always-zero core register, which
// carries no real dependency.
func (o Occurrence) NonZero() (Occurrence, bool) {
	if o.Kind == OccurrenceCore && o.Core == Zero {
		return Occurrence{}, false
	}
	return o, true
}

// nonZeroOccurrences walks a RawDefinitions/RawUses array up to its first
// nil (Go's stand-in for Rust's Option::None), dropping any always-zero
// core register occurrence.
func nonZeroOccurrences(raw []*Occurrence) []Occurrence {
	var out []Occurrence
	for _, o := range raw {
		if o == nil {
			break
		}
		if nz, ok := o.NonZero(); ok {
			out = append(out, nz)
		}
	}
	return out
}

// RawDefinitions returns ins's defined register occurrences, front-packed
// and nil-padded to width 2 (the widest definition list in this
// instruction set: mult/div's Hi,Lo pair) — the fixed-width table
// isa/ee_core.yaml's format strings and defs: lists encode, and cmd/
// decodergen's emitDefsUses would produce verbatim from that spec.
func (ins Instruction) RawDefinitions() [2]*Occurrence {
	switch ins.Op {
	case OpAdd, OpAddu, OpSub, OpSubu, OpAnd, OpOr, OpXor, OpNor, OpSlt, OpSltu,
		OpDadd, OpDaddu, OpDsub, OpDsubu,
		OpSll, OpSrl, OpSra, OpSllv, OpSrlv, OpSrav,
		OpDsll, OpDsrl, OpDsra, OpDsll32, OpDsrl32, OpDsra32, OpDsllv, OpDsrlv, OpDsrav,
		OpJalr, OpMfhi, OpMflo, OpJal,
		OpAddi, OpAddiu, OpSlti, OpSltiu, OpAndi, OpOri, OpXori, OpLui,
		OpMfc0, OpMfc1,
		OpLb, OpLh, OpLw, OpLbu, OpLhu, OpLwr, OpLwu, OpLd:
		return [2]*Occurrence{coreOccurrence(Register(ins.A)), nil}
	case OpMthi:
		return [2]*Occurrence{coreOccurrence(Hi), nil}
	case OpMtlo:
		return [2]*Occurrence{coreOccurrence(Lo), nil}
	case OpMult, OpMultu, OpDiv, OpDivu:
		return [2]*Occurrence{coreOccurrence(Hi), coreOccurrence(Lo)}
	default:
		return [2]*Occurrence{}
	}
}

// RawUses returns ins's used register occurrences, front-packed and
// nil-padded to width 2, mirroring RawDefinitions.
func (ins Instruction) RawUses() [2]*Occurrence {
	switch ins.Op {
	case OpAdd, OpAddu, OpSub, OpSubu, OpAnd, OpOr, OpXor, OpNor, OpSlt, OpSltu,
		OpDadd, OpDaddu, OpDsub, OpDsubu,
		OpSllv, OpSrlv, OpSrav, OpDsllv, OpDsrlv, OpDsrav:
		return [2]*Occurrence{coreOccurrence(Register(ins.B)), coreOccurrence(Register(ins.C))}
	case OpMult, OpMultu, OpDiv, OpDivu,
		OpBeq, OpBne, OpBeql, OpBnel:
		return [2]*Occurrence{coreOccurrence(Register(ins.A)), coreOccurrence(Register(ins.B))}
	case OpSll, OpSrl, OpSra, OpDsll, OpDsrl, OpDsra, OpDsll32, OpDsrl32, OpDsra32,
		OpJalr, OpAddi, OpAddiu, OpSlti, OpSltiu, OpAndi, OpOri, OpXori,
		OpLb, OpLh, OpLw, OpLbu, OpLhu, OpLwr, OpLwu, OpLd:
		return [2]*Occurrence{coreOccurrence(Register(ins.B)), nil}
	case OpJr, OpMthi, OpMtlo, OpBltz, OpBgez, OpBlez, OpBgtz:
		return [2]*Occurrence{coreOccurrence(Register(ins.A)), nil}
	case OpMfhi:
		return [2]*Occurrence{coreOccurrence(Hi), nil}
	case OpMflo:
		return [2]*Occurrence{coreOccurrence(Lo), nil}
	case OpMfc0:
		return [2]*Occurrence{controlOccurrence(ControlRegister(ins.B)), nil}
	case OpMtc0:
		return [2]*Occurrence{controlOccurrence(ControlRegister(ins.A)), coreOccurrence(Register(ins.B))}
	case OpMfc1:
		return [2]*Occurrence{fpuOccurrence(FPRegister(ins.B)), nil}
	case OpMtc1:
		return [2]*Occurrence{fpuOccurrence(FPRegister(ins.A)), coreOccurrence(Register(ins.B))}
	case OpSb, OpSh, OpSw, OpSd:
		return [2]*Occurrence{coreOccurrence(Register(ins.A)), coreOccurrence(Register(ins.C))}
	default:
		return [2]*Occurrence{}
	}
}

// Definitions returns ins's defined occurrences, dropping any that would
// resolve to the always-zero core register.
func (ins Instruction) Definitions() []Occurrence {
	raw := ins.RawDefinitions()
	return nonZeroOccurrences(raw[:])
}

// Uses returns ins's used occurrences, dropping any that would resolve to
// the always-zero core register.
func (ins Instruction) Uses() []Occurrence {
	raw := ins.RawUses()
	return nonZeroOccurrences(raw[:])
}

func (ins Instruction) String() string {
	m, ok := mnemonics[ins.Op]
	if !ok {
		return fmt.Sprintf("unknown(%#08x)", uint32(ins.Op))
	}
	switch ins.Op {
	case OpSyscall, OpBreak:
		return m
	case OpJr:
		return fmt.Sprintf("%s r%d", m, ins.A)
	case OpMfhi, OpMflo:
		return fmt.Sprintf("%s r%d", m, ins.A)
	case OpMthi, OpMtlo:
		return fmt.Sprintf("%s r%d", m, ins.A)
	case OpJ:
		return fmt.Sprintf("%s %#x", m, ins.A<<2)
	case OpJal:
		return fmt.Sprintf("%s %#x", m, ins.B<<2)
	case OpJalr:
		return fmt.Sprintf("%s r%d, r%d", m, ins.A, ins.B)
	case OpLui:
		return fmt.Sprintf("%s r%d, %#x", m, ins.A, ins.B)
	default:
		return fmt.Sprintf("%s r%d, r%d, r%d", m, ins.A, ins.B, ins.C)
	}
}
