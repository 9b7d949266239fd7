package dag

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrewrite/internal/circuit"
)

func sampleCircuit() *circuit.Circuit {
	return circuit.New(3).Append(
		circuit.H(0),
		circuit.H(2),
		circuit.CX(0, 1),
		circuit.RZ(circuit.Symbol("a"), 2),
		circuit.CCX(2, 1, 0),
		circuit.X(1),
		circuit.Swap(0, 2),
	)
}

// assertSameQubitOrder checks that every qubit sees the same sequence of gates.
func assertSameQubitOrder(t *testing.T, want, got *circuit.Circuit) {
	t.Helper()
	require.Equal(t, want.NumQubits, got.NumQubits)
	require.Equal(t, want.Len(), got.Len())
	for q := range want.NumQubits {
		w, g := want.QubitGates(q), got.QubitGates(q)
		require.Len(t, g, len(w), "qubit %d", q)
		for i := range w {
			assert.True(t, w[i].Equal(g[i]), "qubit %d gate %d: want %s, got %s", q, i, w[i], g[i])
		}
	}
}

func TestBuildWiresFrontier(t *testing.T) {
	d, err := Build(sampleCircuit())
	require.NoError(t, err)
	require.NoError(t, d.Check())

	assert.Equal(t, 7, d.Len())
	assert.Equal(t, []int{0, 2, 4, 6}, d.QubitOrder(0))
	assert.Equal(t, []int{2, 4, 5}, d.QubitOrder(1))
	assert.Equal(t, []int{1, 3, 4, 6}, d.QubitOrder(2))

	assert.Equal(t, 6, d.Frontier(0).ID)
	assert.Equal(t, 5, d.Frontier(1).ID)
	assert.Nil(t, d.Frontier(3))

	ccx := d.Node(4)
	preds := d.Predecessors(ccx)
	require.Len(t, preds, 2)
	assert.Equal(t, 2, preds[0].ID)
	assert.Equal(t, 3, preds[1].ID)
	assert.Equal(t, 2, d.Prev(ccx, 1).ID)
	assert.Equal(t, 5, d.Next(ccx, 1).ID)
}

func TestIdentityRoundTripPreservesQubitOrder(t *testing.T) {
	c := sampleCircuit()
	d, err := Build(c)
	require.NoError(t, err)
	out, err := d.Flatten()
	require.NoError(t, err)
	assertSameQubitOrder(t, c, out)
}

func TestRoundTripIsStable(t *testing.T) {
	first, err := Build(sampleCircuit())
	require.NoError(t, err)
	once, err := first.Flatten()
	require.NoError(t, err)

	second, err := Build(once)
	require.NoError(t, err)
	twice, err := second.Flatten()
	require.NoError(t, err)

	require.Len(t, twice.Gates, len(once.Gates))
	for i := range once.Gates {
		assert.True(t, once.Gates[i].Equal(twice.Gates[i]), "gate %d", i)
	}
}

func TestFlattenTieBreakIsCreationOrder(t *testing.T) {
	// Independent gates keep their input order.
	c := circuit.New(3).Append(circuit.X(2), circuit.X(0), circuit.X(1))
	d, err := Build(c)
	require.NoError(t, err)
	out, err := d.Flatten()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, out.Gates[0].Targets)
	assert.Equal(t, []int{0}, out.Gates[1].Targets)
	assert.Equal(t, []int{1}, out.Gates[2].Targets)
}

func TestBuildRejectsInvalidCircuit(t *testing.T) {
	tests := map[string]*circuit.Circuit{
		"nil":            nil,
		"out of range":   circuit.New(2).Append(circuit.H(0), circuit.CX(0, 2)),
		"negative qubit": circuit.New(2).Append(circuit.H(-1)),
		"overlap":        circuit.New(2).Append(circuit.X(1).WithControls(1)),
		"negative count": {NumQubits: -1},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			d, err := Build(c)
			require.Error(t, err)
			assert.Nil(t, d)
			assert.True(t, errors.Is(err, ErrInvalidCircuit))
			assert.True(t, IsInvalidCircuit(err))
		})
	}

	_, err := Build(circuit.New(2).Append(circuit.H(0), circuit.CX(0, 2)))
	var ic *InvalidCircuitError
	require.True(t, errors.As(err, &ic))
	assert.Equal(t, 1, ic.Index)
}

func TestEmptyCircuit(t *testing.T) {
	d, err := Build(circuit.New(2))
	require.NoError(t, err)
	assert.Zero(t, d.Len())
	out, err := d.Flatten()
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumQubits)
	assert.Empty(t, out.Gates)
}

func TestRemoveRewiresEveryLine(t *testing.T) {
	d, err := Build(sampleCircuit())
	require.NoError(t, err)

	require.NoError(t, d.Remove(d.Node(4)))
	require.NoError(t, d.Check())

	assert.Equal(t, []int{0, 2, 6}, d.QubitOrder(0))
	assert.Equal(t, []int{2, 5}, d.QubitOrder(1))
	assert.Equal(t, []int{1, 3, 6}, d.QubitOrder(2))
	assert.Nil(t, d.Node(4))

	// Removing the frontier moves it back.
	require.NoError(t, d.Remove(d.Node(6)))
	assert.Equal(t, 2, d.Frontier(0).ID)
	assert.Equal(t, 3, d.Frontier(2).ID)

	// Removing the head moves it forward.
	require.NoError(t, d.Remove(d.Node(0)))
	assert.Equal(t, 2, d.Head(0).ID)
	require.NoError(t, d.Check())
}

func TestRemoveForeignNode(t *testing.T) {
	d, err := Build(sampleCircuit())
	require.NoError(t, err)
	n := d.Node(0)
	require.NoError(t, d.Remove(n))

	err = d.Remove(n)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuleViolation))
}

func TestReplaceSplicesInOrder(t *testing.T) {
	d, err := Build(circuit.New(2).Append(
		circuit.H(0),
		circuit.CZ(0, 1),
		circuit.X(1),
	))
	require.NoError(t, err)

	created, err := d.Replace(d.Node(1), []circuit.Gate{
		circuit.H(1),
		circuit.CX(0, 1),
		circuit.H(1),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	require.NoError(t, d.Check())

	assert.Equal(t, []int{3, 4, 5}, []int{created[0].ID, created[1].ID, created[2].ID})
	assert.Equal(t, []int{0, 4}, d.QubitOrder(0))
	assert.Equal(t, []int{3, 4, 5, 2}, d.QubitOrder(1))

	out, err := d.Flatten()
	require.NoError(t, err)
	want := []circuit.Gate{circuit.H(0), circuit.H(1), circuit.CX(0, 1), circuit.H(1), circuit.X(1)}
	require.Len(t, out.Gates, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(out.Gates[i]), "gate %d: %s", i, out.Gates[i])
	}
}

func TestReplaceWithFewerLines(t *testing.T) {
	d, err := Build(circuit.New(2).Append(circuit.CX(0, 1), circuit.H(0)))
	require.NoError(t, err)

	_, err = d.Replace(d.Node(0), []circuit.Gate{circuit.X(1)})
	require.NoError(t, err)
	require.NoError(t, d.Check())
	assert.Equal(t, []int{1}, d.QubitOrder(0))
	assert.Equal(t, []int{2}, d.QubitOrder(1))

	_, err = d.Replace(d.Node(1), nil)
	require.NoError(t, err)
	assert.Nil(t, d.Head(0))
	assert.Nil(t, d.Frontier(0))
}

func TestReplaceRejectsForeignQubits(t *testing.T) {
	d, err := Build(circuit.New(3).Append(circuit.CX(0, 1), circuit.H(2)))
	require.NoError(t, err)
	before := d.Clone()

	_, err = d.Replace(d.Node(0), []circuit.Gate{circuit.CX(0, 2)})
	require.Error(t, err)
	assert.True(t, IsRuleViolation(err))
	assert.Contains(t, err.Error(), "q[2]")

	// Nothing changed.
	assert.Equal(t, 2, d.Len())
	for q := range 3 {
		assert.Equal(t, before.QubitOrder(q), d.QubitOrder(q))
	}
}

func TestNodeTags(t *testing.T) {
	d, err := Build(circuit.New(1).Append(circuit.RX(circuit.Const(math.Pi), 0)))
	require.NoError(t, err)
	n := d.Node(0)

	_, ok := n.Tag("decomposed")
	assert.False(t, ok)
	n.SetTag("decomposed", "cp")
	v, ok := n.Tag("decomposed")
	assert.True(t, ok)
	assert.Equal(t, "cp", v)

	tags := n.Tags()
	tags["other"] = "x"
	_, ok = n.Tag("other")
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	d, err := Build(sampleCircuit())
	require.NoError(t, err)
	cp := d.Clone()
	require.NoError(t, cp.Check())

	require.NoError(t, cp.Remove(cp.Node(4)))
	assert.Equal(t, 7, d.Len())
	assert.Equal(t, []int{0, 2, 4, 6}, d.QubitOrder(0))
	require.NoError(t, d.Check())

	// New nodes in the clone continue the ID sequence.
	n, err := cp.Append(circuit.H(0))
	require.NoError(t, err)
	assert.Equal(t, 7, n.ID)
}

func TestAppendValidates(t *testing.T) {
	d := New(1, 0)
	_, err := d.Append(circuit.CX(0, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCircuit))
	assert.Zero(t, d.Len())
}

func TestSharedClassicalBitKeepsWriteOrder(t *testing.T) {
	d, err := Build(circuit.New(3).Append(
		circuit.CZ(0, 1),
		circuit.Measure(0, 0),
		circuit.Measure(2, 0),
	))
	require.NoError(t, err)
	assert.Equal(t, 1, d.NumCbits())
	assert.Equal(t, []int{1, 2}, d.QubitOrder(d.ClassicalLine(0)))

	_, err = d.Replace(d.Node(0), []circuit.Gate{
		circuit.H(1),
		circuit.CX(0, 1),
		circuit.H(1),
	})
	require.NoError(t, err)
	require.NoError(t, d.Check())

	out, err := d.Flatten()
	require.NoError(t, err)
	want := []circuit.Gate{
		circuit.H(1),
		circuit.CX(0, 1),
		circuit.Measure(0, 0),
		circuit.Measure(2, 0),
		circuit.H(1),
	}
	require.Len(t, out.Gates, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(out.Gates[i]), "gate %d: %s", i, out.Gates[i])
	}
}

func TestConditionedGateFollowsMeasurement(t *testing.T) {
	c := circuit.New(2).Append(
		circuit.Measure(0, 0),
		circuit.X(1).WithCondition(circuit.BitCondition(0, 1)),
	)
	c.Cregs = []circuit.Register{{Name: "m", Size: 1}}
	d, err := Build(c)
	require.NoError(t, err)

	cond := d.Node(1)
	assert.Equal(t, []int{1, 2}, cond.Lines())
	assert.Nil(t, d.Prev(cond, 1))
	assert.Equal(t, d.Node(0), d.Prev(cond, d.ClassicalLine(0)))
	assert.Equal(t, []*Node{d.Node(0)}, d.Predecessors(cond))

	cp := d.Clone()
	require.NoError(t, cp.Check())
	assert.Equal(t, []int{0, 1}, cp.QubitOrder(cp.ClassicalLine(0)))

	require.NoError(t, d.Remove(d.Node(0)))
	require.NoError(t, d.Check())
	assert.Equal(t, []int{1}, d.QubitOrder(d.ClassicalLine(0)))

	out, err := d.Flatten()
	require.NoError(t, err)
	assert.Equal(t, c.Cregs, out.Cregs)
	require.Len(t, out.Gates, 1)
	assert.True(t, out.Gates[0].Equal(c.Gates[1]))
}

func TestReplaceRejectsForeignClassicalBit(t *testing.T) {
	d, err := Build(circuit.New(1).Append(circuit.Measure(0, 0), circuit.Measure(0, 1)))
	require.NoError(t, err)

	_, err = d.Replace(d.Node(0), []circuit.Gate{circuit.Measure(0, 1)})
	require.Error(t, err)
	assert.True(t, IsRuleViolation(err))
	assert.Contains(t, err.Error(), "c[1]")
	assert.Equal(t, []int{0, 1}, d.QubitOrder(0))
}

func TestAppendRejectsUnknownClassicalBit(t *testing.T) {
	d := New(1, 1)
	_, err := d.Append(circuit.Measure(0, 1))
	require.Error(t, err)
	assert.True(t, IsInvalidCircuit(err))
	assert.Contains(t, err.Error(), "classical bit 1 out of range")

	n, err := d.Append(circuit.Measure(0, 0))
	require.NoError(t, err)
	assert.Equal(t, n, d.Frontier(d.ClassicalLine(0)))
}
