// Package rules provides concrete rewrite rules: decompositions of
// multi-qubit and controlled gates into single-qubit gates plus CNOTs, and
// local simplifications. All decompositions are exact up to global phase.
package rules

import (
	"math"

	"qrewrite/internal/circuit"
	"qrewrite/internal/dag"
	"qrewrite/internal/rule"
	"qrewrite/internal/trace"
)

// TagDecomposedBy is set on every node created by a decomposition, valued
// with the rule name.
const TagDecomposedBy = "decomposed-by"

// Decomposer replaces every matching node with an equivalent gate sequence
// on the same qubits.
type Decomposer struct {
	rule.Base
	match  func(g circuit.Gate) bool
	expand func(g circuit.Gate) []circuit.Gate
}

// NewDecomposer builds a decomposition rule from a matcher and an expansion.
// expand may only emit gates on the qubits of its input.
func NewDecomposer(name string, match func(circuit.Gate) bool, expand func(circuit.Gate) []circuit.Gate) *Decomposer {
	return &Decomposer{Base: rule.NewBase(name), match: match, expand: expand}
}

// Apply decomposes every matching node once. A classically conditioned
// gate expands into gates carrying the same condition.
func (r *Decomposer) Apply(ctx *trace.Context, d *dag.DAG) (bool, error) {
	changed := false
	for _, n := range d.Nodes() {
		g := n.Gate()
		if !r.match(g) {
			continue
		}
		gates := r.expand(g)
		if g.Condition != nil {
			for i := range gates {
				gates[i] = gates[i].WithCondition(*g.Condition)
			}
		}
		label := n.String()
		created, err := d.Replace(n, gates)
		if err != nil {
			return changed, err
		}
		for _, m := range created {
			m.SetTag(TagDecomposedBy, r.Name())
		}
		ctx.Logf(trace.Detail, r.LogLevel(), "%s: %s -> %d gates", r.Name(), label, len(created))
		changed = true
	}
	return changed, nil
}

func isGate(gateType string, controls int) func(circuit.Gate) bool {
	return func(g circuit.Gate) bool {
		return g.Type == gateType && len(g.Controls) == controls
	}
}

func half(p circuit.Param) circuit.Param { return p.Scale(0.5) }

var (
	halfPi    = circuit.Const(math.Pi / 2)
	negHalfPi = circuit.Const(-math.Pi / 2)
)

// CPDecompose rewrites a controlled phase as phases and two CNOTs.
func CPDecompose() *Decomposer {
	return NewDecomposer("CPDecompose", isGate(circuit.TypeP, 1), func(g circuit.Gate) []circuit.Gate {
		c, t, p := g.Controls[0], g.Targets[0], *g.Param
		return []circuit.Gate{
			circuit.Phase(half(p), c),
			circuit.CX(c, t),
			circuit.Phase(half(p).Neg(), t),
			circuit.CX(c, t),
			circuit.Phase(half(p), t),
		}
	})
}

// controlledRotation splits a singly controlled rotation around an axis
// anticommuting with X.
func controlledRotation(rot func(circuit.Param, int) circuit.Gate) func(circuit.Gate) []circuit.Gate {
	return func(g circuit.Gate) []circuit.Gate {
		c, t, p := g.Controls[0], g.Targets[0], *g.Param
		return []circuit.Gate{
			rot(half(p), t),
			circuit.CX(c, t),
			rot(half(p).Neg(), t),
			circuit.CX(c, t),
		}
	}
}

// CRZDecompose rewrites a controlled RZ.
func CRZDecompose() *Decomposer {
	return NewDecomposer("CRZDecompose", isGate(circuit.TypeRZ, 1), controlledRotation(circuit.RZ))
}

// CRYDecompose rewrites a controlled RY.
func CRYDecompose() *Decomposer {
	return NewDecomposer("CRYDecompose", isGate(circuit.TypeRY, 1), controlledRotation(circuit.RY))
}

// CRXDecompose rewrites a controlled RX as a controlled RZ in the Hadamard
// basis.
func CRXDecompose() *Decomposer {
	return NewDecomposer("CRXDecompose", isGate(circuit.TypeRX, 1), func(g circuit.Gate) []circuit.Gate {
		t := g.Targets[0]
		out := []circuit.Gate{circuit.H(t)}
		out = append(out, controlledRotation(circuit.RZ)(g)...)
		return append(out, circuit.H(t))
	})
}

// CZDecompose rewrites CZ as a CNOT between Hadamards.
func CZDecompose() *Decomposer {
	return NewDecomposer("CZDecompose", isGate(circuit.TypeZ, 1), func(g circuit.Gate) []circuit.Gate {
		c, t := g.Controls[0], g.Targets[0]
		return []circuit.Gate{circuit.H(t), circuit.CX(c, t), circuit.H(t)}
	})
}

// CYDecompose rewrites CY as a CNOT conjugated by S.
func CYDecompose() *Decomposer {
	return NewDecomposer("CYDecompose", isGate(circuit.TypeY, 1), func(g circuit.Gate) []circuit.Gate {
		c, t := g.Controls[0], g.Targets[0]
		return []circuit.Gate{circuit.Sdg(t), circuit.CX(c, t), circuit.S(t)}
	})
}

// SwapDecompose rewrites SWAP as three CNOTs.
func SwapDecompose() *Decomposer {
	return NewDecomposer("SwapDecompose", isGate(circuit.TypeSWAP, 0), func(g circuit.Gate) []circuit.Gate {
		a, b := g.Targets[0], g.Targets[1]
		return []circuit.Gate{circuit.CX(a, b), circuit.CX(b, a), circuit.CX(a, b)}
	})
}

// CCXDecompose rewrites a Toffoli into six CNOTs and single-qubit gates.
func CCXDecompose() *Decomposer {
	return NewDecomposer("CCXDecompose", isGate(circuit.TypeX, 2), func(g circuit.Gate) []circuit.Gate {
		b, a, t := g.Controls[0], g.Controls[1], g.Targets[0]
		return []circuit.Gate{
			circuit.H(t),
			circuit.CX(b, t),
			circuit.Tdg(t),
			circuit.CX(a, t),
			circuit.T(t),
			circuit.CX(b, t),
			circuit.Tdg(t),
			circuit.CX(a, t),
			circuit.T(b),
			circuit.T(t),
			circuit.H(t),
			circuit.CX(a, b),
			circuit.T(a),
			circuit.Tdg(b),
			circuit.CX(a, b),
		}
	})
}

// zz returns the CNOT ladder implementing RZZ(p) on a, b.
func zz(p circuit.Param, a, b int) []circuit.Gate {
	return []circuit.Gate{circuit.CX(a, b), circuit.RZ(p, b), circuit.CX(a, b)}
}

// basisChange wraps a ZZ interaction between pre and post gates applied to
// both qubits.
func basisChange(pre, post func(int) circuit.Gate) func(circuit.Gate) []circuit.Gate {
	return func(g circuit.Gate) []circuit.Gate {
		a, b := g.Targets[0], g.Targets[1]
		out := []circuit.Gate{pre(a), pre(b)}
		out = append(out, zz(*g.Param, a, b)...)
		return append(out, post(a), post(b))
	}
}

// RZZDecompose rewrites RZZ as RZ between two CNOTs.
func RZZDecompose() *Decomposer {
	return NewDecomposer("RZZDecompose", isGate(circuit.TypeRZZ, 0), func(g circuit.Gate) []circuit.Gate {
		return zz(*g.Param, g.Targets[0], g.Targets[1])
	})
}

// RXXDecompose rewrites RXX as RZZ in the Hadamard basis.
func RXXDecompose() *Decomposer {
	return NewDecomposer("RXXDecompose", isGate(circuit.TypeRXX, 0), basisChange(circuit.H, circuit.H))
}

// RYYDecompose rewrites RYY as RZZ in the Y basis.
func RYYDecompose() *Decomposer {
	return NewDecomposer("RYYDecompose", isGate(circuit.TypeRYY, 0), basisChange(
		func(q int) circuit.Gate { return circuit.RX(halfPi, q) },
		func(q int) circuit.Gate { return circuit.RX(negHalfPi, q) },
	))
}
