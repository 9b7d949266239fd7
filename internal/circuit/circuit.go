// Package circuit holds the linear circuit representation consumed and
// produced by the rewrite compiler, plus OpenQASM 2.0 interop.
package circuit

import (
	"slices"

	"github.com/pkg/errors"
)

// Circuit is an ordered sequence of gate instructions over NumQubits qubits.
type Circuit struct {
	NumQubits int
	Gates     []Gate

	// Cregs names the classical registers laid out, in order, over the flat
	// classical bit range. Empty means a single register "c".
	Cregs []Register
}

// Register is a named classical register.
type Register struct {
	Name string
	Size int
}

// New creates an empty circuit over numQubits qubits.
func New(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Append adds gates in program order and returns the circuit.
func (c *Circuit) Append(gates ...Gate) *Circuit {
	for _, g := range gates {
		c.Gates = append(c.Gates, g.Clone())
	}
	return c
}

// Len returns the number of gates.
func (c *Circuit) Len() int {
	return len(c.Gates)
}

// Clone returns a deep copy of the circuit.
func (c *Circuit) Clone() *Circuit {
	out := &Circuit{NumQubits: c.NumQubits, Gates: make([]Gate, len(c.Gates)), Cregs: slices.Clone(c.Cregs)}
	for i, g := range c.Gates {
		out.Gates[i] = g.Clone()
	}
	return out
}

// Validate checks every gate against the declared qubit count.
func (c *Circuit) Validate() error {
	if c.NumQubits < 0 {
		return errors.Errorf("negative qubit count %d", c.NumQubits)
	}
	for _, r := range c.Cregs {
		if r.Size <= 0 {
			return errors.Errorf("creg %q: size %d must be positive", r.Name, r.Size)
		}
	}
	for i, g := range c.Gates {
		if err := g.Validate(c.NumQubits); err != nil {
			return errors.Wrapf(err, "gate %d", i)
		}
	}
	return nil
}

// QubitOrder returns, for the given qubit, the indices of the gates touching
// it in program order.
func (c *Circuit) QubitOrder(qubit int) []int {
	var order []int
	for i, g := range c.Gates {
		if g.Touches(qubit) {
			order = append(order, i)
		}
	}
	return order
}

// QubitGates returns the gates touching the given qubit in program order.
func (c *Circuit) QubitGates(qubit int) []Gate {
	var gates []Gate
	for _, g := range c.Gates {
		if g.Touches(qubit) {
			gates = append(gates, g)
		}
	}
	return gates
}

// CountType returns the number of gates of the given type, optionally
// restricted to a control count (pass -1 for any).
func (c *Circuit) CountType(gateType string, controls int) int {
	n := 0
	for _, g := range c.Gates {
		if g.Type == gateType && (controls < 0 || len(g.Controls) == controls) {
			n++
		}
	}
	return n
}

// NumCbits returns the number of classical bits: the declared registers,
// widened to cover every bit a gate measures into or is conditioned on.
func (c *Circuit) NumCbits() int {
	n := 0
	for _, r := range c.Cregs {
		n += r.Size
	}
	for _, g := range c.Gates {
		if bits := g.ClassicalBits(); len(bits) > 0 {
			n = max(n, slices.Max(bits)+1)
		}
	}
	return n
}

// cregLayout returns the classical registers ToQASM declares: the named
// ones, or a single "c" when none are named or they are too small.
func (c *Circuit) cregLayout() []Register {
	n := c.NumCbits()
	declared := 0
	for _, r := range c.Cregs {
		declared += r.Size
	}
	if len(c.Cregs) == 0 || declared < n {
		if n == 0 {
			return nil
		}
		return []Register{{Name: "c", Size: n}}
	}
	return c.Cregs
}
