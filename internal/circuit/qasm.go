package circuit

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxRegisterBits bounds the qubits, and separately the classical bits,
// a parsed program may declare.
const MaxRegisterBits = 1 << 16

// Pre-compiled regexps for QASM parsing.
var (
	qregRegex    = regexp.MustCompile(`^qreg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	cregRegex    = regexp.MustCompile(`^creg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	measureRegex = regexp.MustCompile(`^measure\s+(.+?)\s*->\s*(.+)$`)
	ifRegex      = regexp.MustCompile(`^if\s*\(\s*(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*==\s*(\d+)\s*\)\s*(.+)$`)
	gateRegex    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?:\(([^)]*)\))?\s+(.+)$`)
	operandRegex = regexp.MustCompile(`^(\w+)\s*(?:\[\s*(\d+)\s*\])?$`)
)

// gateKey identifies a QASM spelling: base type plus number of controls.
type gateKey struct {
	typ      string
	controls int
}

// qasmNames is the canonical QASM spelling of each supported gate.
var qasmNames = map[gateKey]string{
	{TypeI, 0}: "id", {TypeH, 0}: "h", {TypeX, 0}: "x", {TypeY, 0}: "y", {TypeZ, 0}: "z",
	{TypeS, 0}: "s", {TypeSDG, 0}: "sdg", {TypeT, 0}: "t", {TypeTDG, 0}: "tdg", {TypeSX, 0}: "sx",
	{TypeRX, 0}: "rx", {TypeRY, 0}: "ry", {TypeRZ, 0}: "rz", {TypeP, 0}: "u1",
	{TypeU2, 0}: "u2", {TypeU3, 0}: "u3", {TypeU3, 1}: "cu3",
	{TypeX, 1}: "cx", {TypeY, 1}: "cy", {TypeZ, 1}: "cz", {TypeH, 1}: "ch", {TypeX, 2}: "ccx",
	{TypeRX, 1}: "crx", {TypeRY, 1}: "cry", {TypeRZ, 1}: "crz", {TypeP, 1}: "cu1",
	{TypeSWAP, 0}: "swap", {TypeSWAP, 1}: "cswap",
	{TypeRXX, 0}: "rxx", {TypeRYY, 0}: "ryy", {TypeRZZ, 0}: "rzz",
	{TypeReset, 0}: "reset", {TypeBarrier, 0}: "barrier",
}

// qasmAliases are accepted on input but never emitted.
var qasmAliases = map[string]gateKey{
	"i":    {TypeI, 0},
	"p":    {TypeP, 0},
	"u":    {TypeU3, 0},
	"cp":   {TypeP, 1},
	"cnot": {TypeX, 1},
}

// multiControlPrefix spells gates whose control count has no QASM name,
// e.g. "mcx" for X with three controls.
const multiControlPrefix = "mc"

var qasmLookup = func() map[string]gateKey {
	m := make(map[string]gateKey, len(qasmNames)+len(qasmAliases))
	for key, name := range qasmNames {
		m[name] = key
	}
	for name, key := range qasmAliases {
		m[name] = key
	}
	return m
}()

// register is a named qubit or classical register mapped onto a flat index range.
type register struct {
	offset int
	size   int
}

func (r register) bits() []int {
	out := make([]int, r.size)
	for i := range out {
		out[i] = r.offset + i
	}
	return out
}

// parser accumulates declarations and gates while reading a program.
type parser struct {
	c        *Circuit
	qregs    map[string]register
	cregs    map[string]register
	numCbits int
}

// ParseQASM parses OpenQASM 2.0 text into a circuit. Each qreg is laid out
// after the previous one on a single dense qubit index range; cregs are
// laid out the same way and recorded in Circuit.Cregs.
func ParseQASM(qasm string) (*Circuit, error) {
	p := &parser{
		c:     &Circuit{},
		qregs: make(map[string]register),
		cregs: make(map[string]register),
	}

	for lineNo, line := range strings.Split(qasm, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := p.statement(stmt); err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo+1)
			}
		}
	}
	return p.c, nil
}

func (p *parser) statement(stmt string) error {
	switch {
	case strings.HasPrefix(stmt, "OPENQASM"), strings.HasPrefix(stmt, "include"):
		return nil
	}

	if matches := qregRegex.FindStringSubmatch(stmt); matches != nil {
		if _, dup := p.qregs[matches[1]]; dup {
			return errors.Errorf("qreg %q redeclared", matches[1])
		}
		size, err := registerSize(matches[2], p.c.NumQubits)
		if err != nil {
			return errors.Wrapf(err, "qreg %s", matches[1])
		}
		p.qregs[matches[1]] = register{offset: p.c.NumQubits, size: size}
		p.c.NumQubits += size
		return nil
	}

	if matches := cregRegex.FindStringSubmatch(stmt); matches != nil {
		if _, dup := p.cregs[matches[1]]; dup {
			return errors.Errorf("creg %q redeclared", matches[1])
		}
		size, err := registerSize(matches[2], p.numCbits)
		if err != nil {
			return errors.Wrapf(err, "creg %s", matches[1])
		}
		p.cregs[matches[1]] = register{offset: p.numCbits, size: size}
		p.c.Cregs = append(p.c.Cregs, Register{Name: matches[1], Size: size})
		p.numCbits += size
		return nil
	}

	var cond *Condition
	if matches := ifRegex.FindStringSubmatch(stmt); matches != nil {
		c, err := p.condition(matches[1], matches[2], matches[3])
		if err != nil {
			return err
		}
		cond, stmt = &c, strings.TrimSpace(matches[4])
	}

	gates, err := p.operation(stmt)
	if err != nil {
		return err
	}
	if cond != nil {
		if len(gates) != 1 {
			return errors.Errorf("conditioned statement %q expands to %d operations", stmt, len(gates))
		}
		gates[0].Condition = cond
	}
	p.c.Gates = append(p.c.Gates, gates...)
	return nil
}

// registerSize parses a declared register size, bounding the running total.
func registerSize(s string, declared int) (int, error) {
	size, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("invalid size %q", s)
	}
	if size <= 0 {
		return 0, errors.Errorf("size %d must be positive", size)
	}
	if size > MaxRegisterBits-declared {
		return 0, errors.Errorf("size %d exceeds the limit of %d bits", size, MaxRegisterBits)
	}
	return size, nil
}

// condition resolves "c==3" against a whole creg, or "c[1]==1" against one bit.
func (p *parser) condition(name, index, value string) (Condition, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return Condition{}, errors.Errorf("invalid condition value %q", value)
	}
	var bits []int
	if index == "" {
		reg, ok := p.cregs[name]
		if !ok {
			return Condition{}, errors.Errorf("undeclared register %q", name)
		}
		bits = reg.bits()
	} else {
		b, err := resolveBit(p.cregs, name, index)
		if err != nil {
			return Condition{}, err
		}
		bits = []int{b}
	}
	c := Condition{Bits: bits, Value: v}
	if err := c.Validate(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// operation parses one measurement or gate statement. A measurement of
// whole registers expands to one measurement per bit.
func (p *parser) operation(stmt string) ([]Gate, error) {
	if matches := measureRegex.FindStringSubmatch(stmt); matches != nil {
		qubits, err := resolveOperand(p.qregs, matches[1], true)
		if err != nil {
			return nil, err
		}
		cbits, err := resolveOperand(p.cregs, matches[2], true)
		if err != nil {
			return nil, err
		}
		if len(qubits) != len(cbits) {
			return nil, errors.Errorf("measure: %d qubit(s) into %d classical bit(s)", len(qubits), len(cbits))
		}
		gates := make([]Gate, len(qubits))
		for i := range qubits {
			gates[i] = Measure(qubits[i], cbits[i])
		}
		return gates, nil
	}

	matches := gateRegex.FindStringSubmatch(stmt)
	if matches == nil {
		return nil, errors.Errorf("unsupported statement %q", stmt)
	}
	name := strings.ToLower(matches[1])
	key, ok := lookupGate(name)
	if !ok {
		return nil, errors.Errorf("unsupported gate %q", matches[1])
	}

	var operands []int
	for _, op := range strings.Split(matches[3], ",") {
		qubits, err := resolveOperand(p.qregs, strings.TrimSpace(op), key.typ == TypeBarrier)
		if err != nil {
			return nil, err
		}
		operands = append(operands, qubits...)
	}

	controls := key.controls
	if strings.HasPrefix(name, multiControlPrefix) {
		controls = len(operands) - targetArity[key.typ]
	}
	if controls < 0 || controls >= len(operands) {
		return nil, errors.Errorf("%s: wrong number of operands (%d)", name, len(operands))
	}

	g := Gate{
		Type:     key.typ,
		Controls: operands[:controls],
		Targets:  operands[controls:],
	}
	params, err := parseParamList(name, matches[2])
	if err != nil {
		return nil, err
	}
	want := angleCount[key.typ]
	if IsParameterized(key.typ) {
		want = 1
	}
	if len(params) != want {
		return nil, errors.Errorf("%s: expected %d parameter(s), got %d", name, want, len(params))
	}
	if IsParameterized(key.typ) {
		g.Param = &params[0]
	} else if want > 0 {
		g.Angles = params
	}
	return []Gate{g}, nil
}

func parseParamList(name, list string) ([]Param, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var params []Param
	for _, expr := range strings.Split(list, ",") {
		p, err := ParseParam(strings.TrimSpace(expr))
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		params = append(params, p)
	}
	return params, nil
}

// lookupGate resolves a QASM gate name, including "mc"-prefixed multi-controlled forms.
func lookupGate(name string) (gateKey, bool) {
	if key, ok := qasmLookup[name]; ok {
		return key, true
	}
	if base, ok := strings.CutPrefix(name, multiControlPrefix); ok {
		if key, ok := qasmLookup[base]; ok && key.controls == 0 {
			return key, true
		}
	}
	return gateKey{}, false
}

func resolveBit(regs map[string]register, name, index string) (int, error) {
	reg, ok := regs[name]
	if !ok {
		return 0, errors.Errorf("undeclared register %q", name)
	}
	idx, err := strconv.Atoi(index)
	if err != nil || idx >= reg.size {
		return 0, errors.Errorf("index %s[%s] out of range (size %d)", name, index, reg.size)
	}
	return reg.offset + idx, nil
}

// resolveOperand turns "q[3]" into a flat index. A bare register name
// expands to the whole register when allowed (barriers, measurements).
func resolveOperand(regs map[string]register, op string, allowWhole bool) ([]int, error) {
	matches := operandRegex.FindStringSubmatch(op)
	if matches == nil {
		return nil, errors.Errorf("invalid operand %q", op)
	}
	if matches[2] == "" {
		reg, ok := regs[matches[1]]
		if !ok {
			return nil, errors.Errorf("undeclared register %q", matches[1])
		}
		if !allowWhole {
			return nil, errors.Errorf("operand %q must index a single qubit", op)
		}
		return reg.bits(), nil
	}
	q, err := resolveBit(regs, matches[1], matches[2])
	if err != nil {
		return nil, err
	}
	return []int{q}, nil
}

// ToQASM generates OpenQASM 2.0 output from the circuit.
func (c *Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", max(c.NumQubits, 1))
	cregs := c.cregLayout()
	for _, r := range cregs {
		fmt.Fprintf(&sb, "creg %s[%d];\n", r.Name, r.Size)
	}
	if len(c.Gates) > 0 {
		sb.WriteString("\n")
	}
	for _, g := range c.Gates {
		sb.WriteString(qasmLine(g, cregs))
		sb.WriteString("\n")
	}
	return sb.String()
}

// QASMLine renders a single gate as a QASM statement, naming classical
// bits in a single register "c".
func QASMLine(g Gate) string {
	return qasmLine(g, nil)
}

func qasmLine(g Gate, cregs []Register) string {
	var prefix string
	if g.Condition != nil {
		prefix = conditionText(g.Condition, cregs) + " "
	}
	if g.Type == TypeMeasure {
		cbit := g.Targets[0]
		if len(g.Cbits) > 0 {
			cbit = g.Cbits[0]
		}
		return fmt.Sprintf("%smeasure q[%d] -> %s;", prefix, g.Targets[0], bitName(cbit, cregs))
	}

	name, ok := qasmNames[gateKey{g.Type, len(g.Controls)}]
	if !ok {
		name = multiControlPrefix + qasmNames[gateKey{g.Type, 0}]
	}
	switch {
	case g.Param != nil:
		name = fmt.Sprintf("%s(%s)", name, g.Param)
	case len(g.Angles) > 0:
		name = fmt.Sprintf("%s(%s)", name, angleList(g.Angles))
	}

	operands := make([]string, 0, len(g.Controls)+len(g.Targets))
	for _, q := range g.Controls {
		operands = append(operands, fmt.Sprintf("q[%d]", q))
	}
	for _, q := range g.Targets {
		operands = append(operands, fmt.Sprintf("q[%d]", q))
	}
	return fmt.Sprintf("%s%s %s;", prefix, name, strings.Join(operands, ", "))
}

// bitName spells flat classical bit b as "reg[i]".
func bitName(b int, cregs []Register) string {
	offset := 0
	for _, r := range cregs {
		if b < offset+r.Size {
			return fmt.Sprintf("%s[%d]", r.Name, b-offset)
		}
		offset += r.Size
	}
	return fmt.Sprintf("c[%d]", b)
}

// conditionText spells a condition on a whole register or on a single bit.
// OpenQASM 2.0 has no spelling for other bit sets; those are written
// against the register holding their first bit.
func conditionText(cond *Condition, cregs []Register) string {
	offset := 0
	for _, r := range cregs {
		whole := register{offset: offset, size: r.Size}.bits()
		if slices.Equal(cond.Bits, whole) {
			return fmt.Sprintf("if (%s==%d)", r.Name, cond.Value)
		}
		offset += r.Size
	}
	first := bitName(cond.Bits[0], cregs)
	if len(cond.Bits) == 1 {
		return fmt.Sprintf("if (%s==%d)", first, cond.Value)
	}
	return fmt.Sprintf("if (%s==%d)", first[:strings.Index(first, "[")], cond.Value)
}
