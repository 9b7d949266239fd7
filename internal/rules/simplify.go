package rules

import (
	"slices"

	"qrewrite/internal/circuit"
	"qrewrite/internal/dag"
	"qrewrite/internal/rule"
	"qrewrite/internal/trace"
)

// adjacentOnAll returns the node directly following n on every line n
// sits on, classical bit lines included, provided that node sits on exactly
// as many lines. Nothing can sit between the two, so they act as one local
// block.
func adjacentOnAll(d *dag.DAG, n *dag.Node) *dag.Node {
	lines := n.Lines()
	var m *dag.Node
	for i, q := range lines {
		next := d.Next(n, q)
		if next == nil || (i > 0 && next != m) {
			return nil
		}
		m = next
	}
	if m == nil || len(m.Lines()) != len(lines) {
		return nil
	}
	return m
}

// sameOperands reports whether a and b use the same controls, targets and
// classical condition. Targets of symmetric gates may appear in either
// order.
func sameOperands(a, b circuit.Gate) bool {
	if !slices.Equal(a.Controls, b.Controls) || !a.Condition.Equal(b.Condition) {
		return false
	}
	if slices.Equal(a.Targets, b.Targets) {
		return true
	}
	switch a.Type {
	case circuit.TypeSWAP, circuit.TypeRXX, circuit.TypeRYY, circuit.TypeRZZ:
		return len(a.Targets) == 2 && len(b.Targets) == 2 &&
			a.Targets[0] == b.Targets[1] && a.Targets[1] == b.Targets[0]
	}
	return false
}

var inverseOf = map[string]string{
	circuit.TypeH:    circuit.TypeH,
	circuit.TypeX:    circuit.TypeX,
	circuit.TypeY:    circuit.TypeY,
	circuit.TypeZ:    circuit.TypeZ,
	circuit.TypeSWAP: circuit.TypeSWAP,
	circuit.TypeS:    circuit.TypeSDG,
	circuit.TypeSDG:  circuit.TypeS,
	circuit.TypeT:    circuit.TypeTDG,
	circuit.TypeTDG:  circuit.TypeT,
}

// CancelInverses removes adjacent pairs of mutually inverse gates on the
// same operands, such as H H, CX CX or T TDG.
type CancelInverses struct {
	rule.Base
}

// NewCancelInverses returns a CancelInverses rule.
func NewCancelInverses() *CancelInverses {
	return &CancelInverses{Base: rule.NewBase("CancelInverses")}
}

// Apply removes every inverse pair found in one scan.
func (r *CancelInverses) Apply(ctx *trace.Context, d *dag.DAG) (bool, error) {
	changed := false
	for _, n := range d.Nodes() {
		if !d.Contains(n) {
			continue
		}
		inv, ok := inverseOf[n.Type()]
		if !ok {
			continue
		}
		m := adjacentOnAll(d, n)
		if m == nil || m.Type() != inv || !sameOperands(n.Gate(), m.Gate()) {
			continue
		}
		ctx.Logf(trace.Detail, r.LogLevel(), "%s: %s, %s", r.Name(), n, m)
		if err := d.Remove(n); err != nil {
			return changed, err
		}
		if err := d.Remove(m); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// MergeRotations fuses adjacent rotations of the same kind on the same
// operands into one, summing their parameters.
type MergeRotations struct {
	rule.Base
}

// NewMergeRotations returns a MergeRotations rule.
func NewMergeRotations() *MergeRotations {
	return &MergeRotations{Base: rule.NewBase("MergeRotations")}
}

// Apply merges every adjacent pair found in one scan.
func (r *MergeRotations) Apply(ctx *trace.Context, d *dag.DAG) (bool, error) {
	changed := false
	for _, n := range d.Nodes() {
		if !d.Contains(n) || !circuit.IsParameterized(n.Type()) {
			continue
		}
		m := adjacentOnAll(d, n)
		if m == nil || m.Type() != n.Type() {
			continue
		}
		a, b := n.Gate(), m.Gate()
		if !sameOperands(a, b) {
			continue
		}
		merged := a.WithParam(a.Param.Add(*b.Param))
		ctx.Logf(trace.Detail, r.LogLevel(), "%s: %s, %s -> %s", r.Name(), n, m, merged)
		if err := d.Remove(m); err != nil {
			return changed, err
		}
		if _, err := d.Replace(n, []circuit.Gate{merged}); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// RemoveIdentity drops identity gates and rotations by a zero angle.
type RemoveIdentity struct {
	rule.Base
}

// NewRemoveIdentity returns a RemoveIdentity rule.
func NewRemoveIdentity() *RemoveIdentity {
	return &RemoveIdentity{Base: rule.NewBase("RemoveIdentity")}
}

// Apply removes every identity node.
func (r *RemoveIdentity) Apply(ctx *trace.Context, d *dag.DAG) (bool, error) {
	changed := false
	for _, n := range d.Nodes() {
		g := n.Gate()
		identity := g.Type == circuit.TypeI ||
			(circuit.IsParameterized(g.Type) && g.Param != nil && g.Param.IsZero())
		if !identity {
			continue
		}
		ctx.Logf(trace.Detail, r.LogLevel(), "%s: %s", r.Name(), n)
		if err := d.Remove(n); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}
