// Command decodergen reads a declarative instruction-encoding spec (see
// isa/ee_core.yaml) and emits the Go source for the tagged-union Instruction
// type, its decoder, predicate methods, and the definition/use tables — the
// offline step spec.md §4.1 describes. It emits no String method: the
// formatter lives only in ee/instruction_gen.go's hand-authored twin. Ported from original_source's decoder_generator crate; the
// decision-tree algorithm (not discriminating-bit heuristics) is identical.
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type encoding struct {
	bits, mask uint32
	format     string
}

type decisionNode struct {
	leaf       string
	isLeaf     bool
	rangeLo    uint32
	rangeHi    uint32
	childOrder []uint32
	children   map[uint32]*decisionNode
}

func newDecisionTree(encodings []encoding) *decisionNode {
	if len(encodings) == 0 {
		panic("cannot create a decision tree with no encodings")
	}
	if len(encodings) == 1 && encodings[0].mask == 0 {
		return &decisionNode{leaf: encodings[0].format, isLeaf: true}
	}

	discriminant := ^uint32(0)
	for _, e := range encodings {
		discriminant &= e.mask
	}
	if discriminant == 0 {
		panic("no discriminating bits in encodings")
	}

	rangeStart := trailingZeros32(discriminant)
	rangeEnd := rangeStart + trailingOnes32(discriminant>>rangeStart)
	discMask := uint32(0)
	if rangeEnd < 32 {
		discMask = ^uint32(0)<<rangeStart&(uint32(1)<<rangeEnd-1)
	} else {
		discMask = ^uint32(0) << rangeStart
	}

	groups := map[uint32][]encoding{}
	for _, e := range encodings {
		bits := (e.bits & discMask) >> rangeStart
		groups[bits] = append(groups[bits], encoding{
			bits:   e.bits,
			mask:   e.mask &^ discMask,
			format: e.format,
		})
	}

	var keys []uint32
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	children := make(map[uint32]*decisionNode, len(groups))
	for _, k := range keys {
		children[k] = newDecisionTree(groups[k])
	}
	return &decisionNode{
		rangeLo:    rangeStart,
		rangeHi:    rangeEnd,
		childOrder: keys,
		children:   children,
	}
}

func trailingZeros32(v uint32) uint32 {
	if v == 0 {
		return 32
	}
	var n uint32
	for v&1 == 0 {
		v >>= 1
		n++
	}
	return n
}

func trailingOnes32(v uint32) uint32 {
	var n uint32
	for v&1 == 1 {
		v >>= 1
		n++
	}
	return n
}

var operandPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)(:[^}]*)?\}`)

// instrFormat is the Go port of original_source's InstructionFormat — it
// reads `[lhs =] mnemonic op1, op2` strings directly rather than going
// through a brace-templated format; same semantics, fewer moving parts.
type instrFormat struct {
	raw string
}

func (f instrFormat) mnemonic() string {
	s := f.raw
	if i := strings.IndexByte(s, '='); i >= 0 {
		s = s[i+1:]
	}
	return strings.Fields(s)[0]
}

func (f instrFormat) constructorName() string {
	m := f.mnemonic()
	if m == "" {
		return ""
	}
	return strings.ToUpper(m[:1]) + m[1:]
}

// splitOperands returns every operand name in raw (right of any leading
// mnemonic), in left-to-right order, split into defs (before '=') and uses
// (after '=', or everything if there's no '=').
func splitOperands(raw string) (defs, uses []string) {
	lhs, rhs := "", raw
	if i := strings.IndexByte(raw, '='); i >= 0 {
		lhs, rhs = raw[:i], raw[i+1:]
	}
	parseOperands := func(s string) []string {
		fields := strings.Fields(s)
		if len(fields) <= 1 {
			return nil
		}
		var out []string
		for _, f := range fields[1:] {
			out = append(out, strings.TrimSuffix(strings.TrimSuffix(f, ","), ","))
		}
		return out
	}
	// The left-hand side carries no mnemonic: every field is a definition.
	for _, f := range strings.Fields(lhs) {
		defs = append(defs, strings.TrimSuffix(f, ","))
	}
	uses = parseOperands(rhs)
	return defs, uses
}

func operandsOf(raw string) []string {
	defs, uses := splitOperands(raw)
	return append(append([]string{}, defs...), uses...)
}

type operandSpec struct {
	Type   string `yaml:"type"`
	Decode string `yaml:"decode"`
}

type instructionEntry struct {
	Format     string   `yaml:"format"`
	Predicates []string `yaml:"predicates"`
	Defs       []string `yaml:"defs"`
	Uses       []string `yaml:"uses"`
}

type spec struct {
	Imports      string                     `yaml:"imports"`
	Operands     map[string]operandSpec     `yaml:"operands"`
	Instructions map[string]yaml.Node       `yaml:"instructions"`
	order        []string
	entries      map[string]instructionEntry
}

func loadSpec(path string) *spec {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		panic(err)
	}
	doc := root.Content[0]
	s := &spec{Operands: map[string]operandSpec{}, entries: map[string]instructionEntry{}}
	for i := 0; i < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		val := doc.Content[i+1]
		switch key {
		case "imports":
			s.Imports = val.Value
		case "operands":
			if err := val.Decode(&s.Operands); err != nil {
				panic(err)
			}
		case "instructions":
			for j := 0; j < len(val.Content); j += 2 {
				pattern := val.Content[j].Value
				entryNode := val.Content[j+1]
				var entry instructionEntry
				if entryNode.Kind == yaml.ScalarNode {
					entry.Format = entryNode.Value
				} else if err := entryNode.Decode(&entry); err != nil {
					panic(err)
				}
				s.order = append(s.order, pattern)
				s.entries[pattern] = entry
			}
		}
	}
	return s
}

func parsePattern(pattern string) (bits, mask uint32) {
	for _, c := range pattern {
		switch c {
		case ' ':
			continue
		case '0':
			bits, mask = bits<<1, mask<<1|1
		case '1':
			bits, mask = bits<<1|1, mask<<1|1
		case '.':
			bits, mask = bits<<1, mask<<1
		default:
			panic(fmt.Sprintf("invalid character in encoding: %q", c))
		}
	}
	return bits, mask
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: decodergen <spec.yaml>")
		os.Exit(1)
	}
	s := loadSpec(os.Args[1])

	var encodings []encoding
	for _, pattern := range s.order {
		bits, mask := parsePattern(pattern)
		encodings = append(encodings, encoding{bits: bits, mask: mask, format: s.entries[pattern].Format})
	}
	tree := newDecisionTree(encodings)

	var buf bytes.Buffer
	fmt.Fprintln(&buf, s.Imports)
	fmt.Fprintln(&buf, `import "fmt"`)
	fmt.Fprintln(&buf, "func bits32(v uint32, lo, hi uint) uint32 { return (v & ((uint32(1)<<(hi-lo) - 1) << lo)) >> lo }")
	emitInstructionType(&buf, s, encodings)
	emitDecoder(&buf, s, tree, encodings)
	emitStringer(&buf, encodings)
	emitPredicates(&buf, s)
	emitDefsUses(&buf, s)

	out, err := format.Source(buf.Bytes())
	if err != nil {
		// emit unformatted source so the failure is diagnosable
		os.Stdout.Write(buf.Bytes())
		fmt.Fprintln(os.Stderr, "gofmt failed:", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func emitInstructionType(buf *bytes.Buffer, s *spec, encodings []encoding) {
	fmt.Fprintln(buf, "type Instruction struct {")
	fmt.Fprintln(buf, "\tOp Opcode")
	fmt.Fprintln(buf, "\tA, B, C uint32 // operand slots, interpreted per Op")
	fmt.Fprintln(buf, "}")
	fmt.Fprintln(buf, "type Opcode uint8")
	fmt.Fprintln(buf, "const (")
	fmt.Fprintln(buf, "\tOpUnknown Opcode = iota")
	for _, e := range encodings {
		fmt.Fprintf(buf, "\tOp%s\n", instrFormat{e.format}.constructorName())
	}
	fmt.Fprintln(buf, ")")
}

func emitDecoder(buf *bytes.Buffer, s *spec, tree *decisionNode, encodings []encoding) {
	byFormat := map[string]string{}
	for _, e := range encodings {
		byFormat[e.format] = instrFormat{e.format}.constructorName()
	}

	fmt.Fprintln(buf, "func Decode(data uint32) Instruction {")
	var names []string
	for name := range s.Operands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		decode := strings.ReplaceAll(s.Operands[name].Decode, "{}", "data")
		fmt.Fprintf(buf, "\t%s := func() uint32 { return uint32(%s) }\n", name, decode)
	}
	fmt.Fprintln(buf, "\tswitch {")
	fmt.Fprintln(buf, "\tdefault:")
	emitTreeArm(buf, tree, byFormat, 2)
	fmt.Fprintln(buf, "\t}")
	fmt.Fprintln(buf, "}")
}

// emitTreeArm walks the decision tree emitting one nested switch per
// discriminating bit range, exactly the shape original_source's generator
// produces for its Rust match chain (see instruction_decoder in
// decoder_generator/src/main.rs).
func emitTreeArm(buf *bytes.Buffer, node *decisionNode, byFormat map[string]string, indent int) {
	pad := strings.Repeat("\t", indent)
	if node.isLeaf {
		f := instrFormat{node.leaf}
		ops := operandsOf(node.leaf)
		fmt.Fprintf(buf, "%sreturn Instruction{Op: Op%s", pad, f.constructorName())
		slots := []string{"A", "B", "C"}
		for i, op := range ops {
			if i >= len(slots) {
				break
			}
			fmt.Fprintf(buf, ", %s: %s()", slots[i], op)
		}
		fmt.Fprintln(buf, "}")
		return
	}
	fmt.Fprintf(buf, "%sswitch bits32(data, %d, %d) {\n", pad, node.rangeLo, node.rangeHi)
	for _, k := range node.childOrder {
		width := node.rangeHi - node.rangeLo
		fmt.Fprintf(buf, "%scase 0b%0*b:\n", pad, width, k)
		emitTreeArm(buf, node.children[k], byFormat, indent+1)
	}
	full := uint32(1) << (node.rangeHi - node.rangeLo)
	if uint32(len(node.childOrder)) == full {
		fmt.Fprintf(buf, "%sdefault:\n%s\tpanic(\"unreachable\")\n", pad, pad)
	} else {
		fmt.Fprintf(buf, "%sdefault:\n%s\tpanic(fmt.Sprintf(\"undecodable instruction word: %%#034b\", data))\n", pad, pad)
	}
	fmt.Fprintln(buf, pad+"}")
}

func emitStringer(buf *bytes.Buffer, encodings []encoding) {
	fmt.Fprintln(buf, "// String formats are emitted per-mnemonic in ee/instruction_gen.go's hand-authored twin.")
}

// exportedName capitalizes p's first letter so a YAML predicate name like
// "isLoad" becomes the Go method name IsLoad.
func exportedName(p string) string {
	if p == "" {
		return p
	}
	return strings.ToUpper(p[:1]) + p[1:]
}

// emitPredicates emits one boolean method per distinct name appearing in
// any instruction's predicates: list, true for exactly the opcodes that
// name it — the Go rendering of original_source's `matches!` predicate
// methods (decoder_generator/src/main.rs's emit_predicates).
func emitPredicates(buf *bytes.Buffer, s *spec) {
	predicateOpcodes := map[string][]string{}
	var predNames []string
	for _, pattern := range s.order {
		entry := s.entries[pattern]
		for _, p := range entry.Predicates {
			if _, ok := predicateOpcodes[p]; !ok {
				predNames = append(predNames, p)
			}
			predicateOpcodes[p] = append(predicateOpcodes[p], instrFormat{entry.Format}.constructorName())
		}
	}
	if len(predNames) == 0 {
		return
	}
	sort.Strings(predNames)
	for _, p := range predNames {
		var cases []string
		for _, o := range predicateOpcodes[p] {
			cases = append(cases, "Op"+o)
		}
		fmt.Fprintf(buf, "func (ins Instruction) %s() bool {\n", exportedName(p))
		fmt.Fprintln(buf, "\tswitch ins.Op {")
		fmt.Fprintf(buf, "\tcase %s:\n", strings.Join(cases, ", "))
		fmt.Fprintln(buf, "\t\treturn true")
		fmt.Fprintln(buf, "\tdefault:")
		fmt.Fprintln(buf, "\t\treturn false")
		fmt.Fprintln(buf, "\t}")
		fmt.Fprintln(buf, "}")
		fmt.Fprintln(buf)
	}
}

// occRef is one resolved definition/use operand: which of the three
// register banks it names, and the Go expression that reads it off a
// decoded Instruction (or, for an implicit defs:/uses: name like Hi/Lo, the
// bare identifier itself).
type occRef struct {
	kind string // "Core", "Control", or "FPU"
	expr string
}

// registerKindOf maps an operand's declared type to the Occurrence bank it
// belongs to. Primitive integer types return "" and are excluded from
// definitions/uses per the YAML header's immediate rule.
func registerKindOf(operandType string) string {
	switch operandType {
	case "Register":
		return "Core"
	case "ControlRegister":
		return "Control"
	case "FPRegister":
		return "FPU"
	default:
		return ""
	}
}

func occurrenceCtor(kind string) string {
	switch kind {
	case "Core":
		return "coreOccurrence"
	case "Control":
		return "controlOccurrence"
	case "FPU":
		return "fpuOccurrence"
	default:
		panic("unknown occurrence kind " + kind)
	}
}

func occurrenceGoType(kind string) string {
	switch kind {
	case "Core":
		return "Register"
	case "Control":
		return "ControlRegister"
	case "FPU":
		return "FPRegister"
	default:
		panic("unknown occurrence kind " + kind)
	}
}

// occurrencesFor resolves one instruction entry's format-string operands
// (bound to decode slots A/B/C in the same left-to-right order emitTreeArm
// assigns them) plus any explicit defs:/uses: names into the definition
// and use lists a RawDefinitions/RawUses case needs.
func occurrencesFor(entry instructionEntry, s *spec) (defs, uses []occRef) {
	formatDefs, formatUses := splitOperands(entry.Format)
	slots := []string{"A", "B", "C"}
	slotOf := map[string]string{}
	for i, op := range operandsOf(entry.Format) {
		if i < len(slots) {
			slotOf[op] = slots[i]
		}
	}

	for _, name := range formatDefs {
		kind := registerKindOf(s.Operands[name].Type)
		if kind == "" {
			continue
		}
		defs = append(defs, occRef{kind: kind, expr: fmt.Sprintf("%s(ins.%s)", occurrenceGoType(kind), slotOf[name])})
	}
	for _, name := range formatUses {
		kind := registerKindOf(s.Operands[name].Type)
		if kind == "" {
			continue
		}
		uses = append(uses, occRef{kind: kind, expr: fmt.Sprintf("%s(ins.%s)", occurrenceGoType(kind), slotOf[name])})
	}
	for _, name := range entry.Defs {
		defs = append(defs, occRef{kind: "Core", expr: name})
	}
	for _, name := range entry.Uses {
		uses = append(uses, occRef{kind: "Core", expr: name})
	}
	return defs, uses
}

// occurrenceBoilerplate is emitted once: the Occurrence sum type spec.md
// names (a register reference tagged by which of the three independently
// addressed banks it belongs to) plus its constructors and the zero-filter
// original_source's Occurrence::non_zero performs.
const occurrenceBoilerplate = `
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

// nonZeroOccurrences walks a raw_definitions/raw_uses array up to its
// first None, dropping any always-zero core register occurrence.
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
`

// emitDefsUses emits the Occurrence type plus the two fixed-width
// definition/use tables spec.md §4.1 names: RawDefinitions and RawUses,
// each a switch over Opcode returning an array of *Occurrence terminated
// by the first nil (Go's stand-in for Option::None), plus the Definitions/
// Uses convenience wrappers that filter that array down to the non-zero
// occurrences a caller (e.g. a hazard check) actually cares about.
func emitDefsUses(buf *bytes.Buffer, s *spec) {
	fmt.Fprintln(buf, occurrenceBoilerplate)

	type row struct {
		ctor string
		defs []occRef
		uses []occRef
	}
	var rows []row
	maxDefs, maxUses := 0, 0
	for _, pattern := range s.order {
		entry := s.entries[pattern]
		defs, uses := occurrencesFor(entry, s)
		if len(defs) > maxDefs {
			maxDefs = len(defs)
		}
		if len(uses) > maxUses {
			maxUses = len(uses)
		}
		rows = append(rows, row{ctor: instrFormat{entry.Format}.constructorName(), defs: defs, uses: uses})
	}

	emitTable := func(method string, width int, pick func(row) []occRef) {
		fmt.Fprintf(buf, "func (ins Instruction) %s() [%d]*Occurrence {\n", method, width)
		fmt.Fprintln(buf, "\tswitch ins.Op {")
		for _, r := range rows {
			occs := pick(r)
			if len(occs) == 0 {
				continue
			}
			parts := make([]string, width)
			for i := range parts {
				parts[i] = "nil"
			}
			for i, o := range occs {
				parts[i] = fmt.Sprintf("%s(%s)", occurrenceCtor(o.kind), o.expr)
			}
			fmt.Fprintf(buf, "\tcase Op%s:\n", r.ctor)
			fmt.Fprintf(buf, "\t\treturn [%d]*Occurrence{%s}\n", width, strings.Join(parts, ", "))
		}
		fmt.Fprintln(buf, "\tdefault:")
		fmt.Fprintf(buf, "\t\treturn [%d]*Occurrence{}\n", width)
		fmt.Fprintln(buf, "\t}")
		fmt.Fprintln(buf, "}")
		fmt.Fprintln(buf)
	}

	emitTable("RawDefinitions", maxDefs, func(r row) []occRef { return r.defs })
	emitTable("RawUses", maxUses, func(r row) []occRef { return r.uses })

	fmt.Fprintln(buf, `// Definitions returns ins's defined occurrences, dropping any that would
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
}`)
}
