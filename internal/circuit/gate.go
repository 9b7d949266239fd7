package circuit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Gate types understood by the compiler. Controlled variants are expressed
// through Gate.Controls: CX is X with one control, CCX is X with two.
const (
	TypeI       = "I"
	TypeH       = "H"
	TypeX       = "X"
	TypeY       = "Y"
	TypeZ       = "Z"
	TypeS       = "S"
	TypeSDG     = "SDG"
	TypeT       = "T"
	TypeTDG     = "TDG"
	TypeSX      = "SX"
	TypeRX      = "RX"
	TypeRY      = "RY"
	TypeRZ      = "RZ"
	TypeP       = "P"
	TypeU2      = "U2"
	TypeU3      = "U3"
	TypeRXX     = "RXX"
	TypeRYY     = "RYY"
	TypeRZZ     = "RZZ"
	TypeSWAP    = "SWAP"
	TypeMeasure = "MEASURE"
	TypeReset   = "RESET"
	TypeBarrier = "BARRIER"
)

// targetArity maps each gate type to the number of target qubits it acts on.
// Zero means "one or more" (barriers).
var targetArity = map[string]int{
	TypeI: 1, TypeH: 1, TypeX: 1, TypeY: 1, TypeZ: 1,
	TypeS: 1, TypeSDG: 1, TypeT: 1, TypeTDG: 1, TypeSX: 1,
	TypeRX: 1, TypeRY: 1, TypeRZ: 1, TypeP: 1, TypeU2: 1, TypeU3: 1,
	TypeRXX: 2, TypeRYY: 2, TypeRZZ: 2, TypeSWAP: 2,
	TypeMeasure: 1, TypeReset: 1, TypeBarrier: 0,
}

// angleCount is the number of Euler angles carried by U2 and U3.
var angleCount = map[string]int{TypeU2: 2, TypeU3: 3}

// IsParameterized reports whether the gate type carries a parameter.
func IsParameterized(gateType string) bool {
	switch gateType {
	case TypeRX, TypeRY, TypeRZ, TypeP, TypeRXX, TypeRYY, TypeRZZ:
		return true
	}
	return false
}

// IsKnownType reports whether gateType is one of the supported gate types.
func IsKnownType(gateType string) bool {
	_, ok := targetArity[gateType]
	return ok
}

// Gate represents one quantum operation in a circuit.
type Gate struct {
	Type     string
	Targets  []int   // ordered target qubits
	Controls []int   // ordered control qubits (must be |1> for the gate to act)
	Param    *Param  // nil for fixed gates
	Angles   []Param // Euler angles: (phi, lambda) for U2, (theta, phi, lambda) for U3
	Cbits    []int   // classical bits written by a measurement

	Condition *Condition // nil unless classically conditioned
}

// NewGate creates an unparameterized gate on the given targets.
func NewGate(gateType string, targets ...int) Gate {
	return Gate{Type: gateType, Targets: slices.Clone(targets)}
}

// WithControls returns a copy of g with the given control qubits.
func (g Gate) WithControls(controls ...int) Gate {
	g = g.Clone()
	g.Controls = slices.Clone(controls)
	return g
}

// WithParam returns a copy of g carrying p.
func (g Gate) WithParam(p Param) Gate {
	g = g.Clone()
	g.Param = &p
	return g
}

// WithCondition returns a copy of g that only acts when cond holds.
func (g Gate) WithCondition(cond Condition) Gate {
	g = g.Clone()
	g.Condition = cond.clone()
	return g
}

// Clone returns a deep copy of g.
func (g Gate) Clone() Gate {
	out := Gate{
		Type:      g.Type,
		Targets:   slices.Clone(g.Targets),
		Controls:  slices.Clone(g.Controls),
		Cbits:     slices.Clone(g.Cbits),
		Condition: g.Condition.clone(),
	}
	if g.Param != nil {
		p := g.Param.Scale(1)
		out.Param = &p
	}
	for _, a := range g.Angles {
		out.Angles = append(out.Angles, a.Scale(1))
	}
	return out
}

// Qubits returns every qubit the gate touches: targets first, then controls.
func (g Gate) Qubits() []int {
	qubits := make([]int, 0, len(g.Targets)+len(g.Controls))
	qubits = append(qubits, g.Targets...)
	return append(qubits, g.Controls...)
}

// ClassicalBits returns every classical bit the gate reads or writes:
// measured bits first, then condition bits not already listed.
func (g Gate) ClassicalBits() []int {
	bits := slices.Clone(g.Cbits)
	if g.Condition != nil {
		for _, b := range g.Condition.Bits {
			if !slices.Contains(bits, b) {
				bits = append(bits, b)
			}
		}
	}
	return bits
}

// Touches reports whether the gate references the given qubit.
func (g Gate) Touches(qubit int) bool {
	return slices.Contains(g.Targets, qubit) || slices.Contains(g.Controls, qubit)
}

// Equal reports whether g and o describe the same operation.
func (g Gate) Equal(o Gate) bool {
	if g.Type != o.Type ||
		!slices.Equal(g.Targets, o.Targets) ||
		!slices.Equal(g.Controls, o.Controls) ||
		!slices.Equal(g.Cbits, o.Cbits) ||
		!g.Condition.Equal(o.Condition) ||
		len(g.Angles) != len(o.Angles) {
		return false
	}
	for i := range g.Angles {
		if !g.Angles[i].Equal(o.Angles[i]) {
			return false
		}
	}
	if (g.Param == nil) != (o.Param == nil) {
		return false
	}
	return g.Param == nil || g.Param.Equal(*o.Param)
}

// Validate checks the structure of g against a circuit of numQubits qubits.
// Parameter values are not inspected.
func (g Gate) Validate(numQubits int) error {
	arity, ok := targetArity[g.Type]
	if !ok {
		return errors.Errorf("unknown gate type %q", g.Type)
	}
	if len(g.Targets) == 0 {
		return errors.Errorf("%s: no target qubits", g.Type)
	}
	if arity > 0 && len(g.Targets) != arity {
		return errors.Errorf("%s: expected %d target qubit(s), got %d", g.Type, arity, len(g.Targets))
	}
	for _, q := range g.Qubits() {
		if q < 0 || q >= numQubits {
			return errors.Errorf("%s: qubit %d out of range [0, %d)", g.Type, q, numQubits)
		}
	}
	for i, q := range g.Targets {
		if slices.Contains(g.Targets[:i], q) {
			return errors.Errorf("%s: target qubit %d already added", g.Type, q)
		}
	}
	for i, q := range g.Controls {
		if slices.Contains(g.Targets, q) {
			return errors.Errorf("%s: control qubit %d is already a target qubit", g.Type, q)
		}
		if slices.Contains(g.Controls[:i], q) {
			return errors.Errorf("%s: control qubit %d already added", g.Type, q)
		}
	}
	if IsParameterized(g.Type) && g.Param == nil {
		return errors.Errorf("%s: missing parameter", g.Type)
	}
	if want := angleCount[g.Type]; len(g.Angles) != want {
		return errors.Errorf("%s: expected %d angle(s), got %d", g.Type, want, len(g.Angles))
	}
	if g.Type == TypeMeasure && len(g.Cbits) != len(g.Targets) {
		return errors.Errorf("%s: expected %d classical bit(s), got %d", g.Type, len(g.Targets), len(g.Cbits))
	}
	if g.Type != TypeMeasure && len(g.Cbits) > 0 {
		return errors.Errorf("%s: only measurements write classical bits", g.Type)
	}
	for i, b := range g.Cbits {
		if b < 0 {
			return errors.Errorf("%s: negative classical bit %d", g.Type, b)
		}
		if slices.Contains(g.Cbits[:i], b) {
			return errors.Errorf("%s: classical bit %d already added", g.Type, b)
		}
	}
	if g.Condition != nil {
		if err := g.Condition.Validate(); err != nil {
			return errors.Wrap(err, g.Type)
		}
	}
	return nil
}

// String returns a compact description such as "RZ(a) q[1] ctrl q[0]".
func (g Gate) String() string {
	var sb strings.Builder
	sb.WriteString(g.Type)
	if g.Param != nil {
		fmt.Fprintf(&sb, "(%s)", g.Param)
	}
	if len(g.Angles) > 0 {
		fmt.Fprintf(&sb, "(%s)", angleList(g.Angles))
	}
	sb.WriteString(" ")
	sb.WriteString(qubitList(g.Targets))
	if len(g.Controls) > 0 {
		sb.WriteString(" ctrl ")
		sb.WriteString(qubitList(g.Controls))
	}
	if g.Condition != nil {
		sb.WriteString(" if ")
		sb.WriteString(g.Condition.String())
	}
	return sb.String()
}

func angleList(angles []Param) string {
	parts := make([]string, len(angles))
	for i, a := range angles {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

func qubitList(qubits []int) string {
	parts := make([]string, len(qubits))
	for i, q := range qubits {
		parts[i] = fmt.Sprintf("q[%d]", q)
	}
	return strings.Join(parts, ", ")
}

// ──────────────────────────── Constructors ────────────────────────────

// H returns a Hadamard gate.
func H(q int) Gate { return NewGate(TypeH, q) }

// X returns a Pauli-X gate.
func X(q int) Gate { return NewGate(TypeX, q) }

// Y returns a Pauli-Y gate.
func Y(q int) Gate { return NewGate(TypeY, q) }

// Z returns a Pauli-Z gate.
func Z(q int) Gate { return NewGate(TypeZ, q) }

// S returns a phase gate.
func S(q int) Gate { return NewGate(TypeS, q) }

// Sdg returns the adjoint phase gate.
func Sdg(q int) Gate { return NewGate(TypeSDG, q) }

// T returns a T gate.
func T(q int) Gate { return NewGate(TypeT, q) }

// Tdg returns the adjoint T gate.
func Tdg(q int) Gate { return NewGate(TypeTDG, q) }

// RX returns an X rotation.
func RX(p Param, q int) Gate { return NewGate(TypeRX, q).WithParam(p) }

// RY returns a Y rotation.
func RY(p Param, q int) Gate { return NewGate(TypeRY, q).WithParam(p) }

// RZ returns a Z rotation.
func RZ(p Param, q int) Gate { return NewGate(TypeRZ, q).WithParam(p) }

// Phase returns a phase shift diag(1, e^{ip}).
func Phase(p Param, q int) Gate { return NewGate(TypeP, q).WithParam(p) }

// U2 returns the single-qubit gate U3(pi/2, phi, lambda).
func U2(phi, lambda Param, q int) Gate {
	g := NewGate(TypeU2, q)
	g.Angles = []Param{phi, lambda}
	return g
}

// U3 returns the general single-qubit rotation
// RZ(phi) RY(theta) RZ(lambda) up to global phase.
func U3(theta, phi, lambda Param, q int) Gate {
	g := NewGate(TypeU3, q)
	g.Angles = []Param{theta, phi, lambda}
	return g
}

// CX returns a CNOT gate.
func CX(control, target int) Gate { return X(target).WithControls(control) }

// CZ returns a controlled-Z gate.
func CZ(control, target int) Gate { return Z(target).WithControls(control) }

// CCX returns a Toffoli gate.
func CCX(c1, c2, target int) Gate { return X(target).WithControls(c1, c2) }

// CPhase returns a controlled phase shift.
func CPhase(p Param, control, target int) Gate { return Phase(p, target).WithControls(control) }

// Swap returns a SWAP gate.
func Swap(a, b int) Gate { return NewGate(TypeSWAP, a, b) }

// RXX returns an XX interaction exp(-i p/2 X⊗X).
func RXX(p Param, a, b int) Gate { return NewGate(TypeRXX, a, b).WithParam(p) }

// RYY returns a YY interaction exp(-i p/2 Y⊗Y).
func RYY(p Param, a, b int) Gate { return NewGate(TypeRYY, a, b).WithParam(p) }

// RZZ returns a ZZ interaction exp(-i p/2 Z⊗Z).
func RZZ(p Param, a, b int) Gate { return NewGate(TypeRZZ, a, b).WithParam(p) }

// Measure returns a measurement of q into classical bit cbit.
func Measure(q, cbit int) Gate {
	g := NewGate(TypeMeasure, q)
	g.Cbits = []int{cbit}
	return g
}

// Barrier returns a barrier across the given qubits.
func Barrier(qubits ...int) Gate { return NewGate(TypeBarrier, qubits...) }
