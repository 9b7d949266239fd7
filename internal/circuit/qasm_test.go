package circuit

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQASM(t *testing.T) {
	qasm := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[3];
creg c[1];

h q[1];
cx q[1], q[2];
cu1(pi/2) q[0], q[1];
rz(theta) q[2]; // trailing comment
ccx q[0], q[1], q[2];
measure q[0] -> c[0];`

	c, err := ParseQASM(qasm)
	require.NoError(t, err)
	require.Equal(t, 3, c.NumQubits)
	require.Len(t, c.Gates, 6)

	assert.True(t, c.Gates[0].Equal(H(1)))
	assert.True(t, c.Gates[1].Equal(CX(1, 2)))
	assert.True(t, c.Gates[2].Equal(CPhase(Const(math.Pi/2), 0, 1)))
	assert.True(t, c.Gates[3].Equal(RZ(Symbol("theta"), 2)))
	assert.True(t, c.Gates[4].Equal(CCX(0, 1, 2)))
	assert.True(t, c.Gates[5].Equal(Measure(0, 0)))
}

func TestParseQASMMultipleRegisters(t *testing.T) {
	qasm := `qreg a[2];
qreg b[2];
cx a[1], b[0];
barrier b;`

	c, err := ParseQASM(qasm)
	require.NoError(t, err)
	assert.Equal(t, 4, c.NumQubits)
	require.Len(t, c.Gates, 2)
	assert.True(t, c.Gates[0].Equal(CX(1, 2)))
	assert.True(t, c.Gates[1].Equal(Barrier(2, 3)))
}

func TestParseQASMErrors(t *testing.T) {
	tests := map[string]string{
		"unknown gate":     "qreg q[1];\nfoo q[0];",
		"undeclared reg":   "qreg q[1];\nh r[0];",
		"index too large":  "qreg q[2];\nh q[2];",
		"missing param":    "qreg q[1];\nrx q[0];",
		"unexpected param": "qreg q[1];\nh(pi) q[0];",
		"whole register":   "qreg q[2];\nh q;",
		"bad param":        "qreg q[1];\nrz(2*) q[0];",
		"u3 angle count":   "qreg q[1];\nu3(pi,0) q[0];",
		"huge qreg":        "OPENQASM 2.0;\nqreg q[100000000000];",
		"overflowing qreg": "OPENQASM 2.0;\nqreg q[99999999999999999999];",
		"huge creg":        "qreg q[1];\ncreg c[65537];",
		"qubit total":      "qreg a[65536];\nqreg b[1];",
		"empty qreg":       "OPENQASM 2.0;\nqreg q[0];",
		"measure sizes":    "qreg q[2]; creg c[1];\nmeasure q -> c;",
		"condition value":  "qreg q[1]; creg c[1];\nif (c==2) x q[0];",
		"condition reg":    "qreg q[1]; creg c[1];\nif (d==1) x q[0];",
		"conditioned many": "qreg q[2]; creg c[2];\nif (c==1) measure q -> c;",
	}
	for name, qasm := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQASM(qasm)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestParseQASMEulerAndClassical(t *testing.T) {
	qasm := `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg a[1];
creg b[2];
u3(pi/2, 0, pi) q[0];
u2(0,pi) q[1];
u(theta,0,0) q[1];
measure q -> b;
if (b==2) x q[0];
if(b[1]==1) cu1(pi/4) q[0], q[1];
measure q[1] -> a[0];`

	c, err := ParseQASM(qasm)
	require.NoError(t, err)
	assert.Equal(t, []Register{{Name: "a", Size: 1}, {Name: "b", Size: 2}}, c.Cregs)
	assert.Equal(t, 3, c.NumCbits())
	require.Len(t, c.Gates, 8)

	assert.True(t, c.Gates[0].Equal(U3(Const(math.Pi/2), Const(0), Const(math.Pi), 0)))
	assert.True(t, c.Gates[1].Equal(U2(Const(0), Const(math.Pi), 1)))
	assert.True(t, c.Gates[2].Equal(U3(Symbol("theta"), Const(0), Const(0), 1)))
	assert.True(t, c.Gates[3].Equal(Measure(0, 1)))
	assert.True(t, c.Gates[4].Equal(Measure(1, 2)))
	assert.True(t, c.Gates[5].Equal(X(0).WithCondition(Condition{Bits: []int{1, 2}, Value: 2})))
	assert.True(t, c.Gates[6].Equal(CPhase(Const(math.Pi/4), 0, 1).WithCondition(BitCondition(2, 1))))
	assert.True(t, c.Gates[7].Equal(Measure(1, 0)))

	want := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[2];
creg a[1];
creg b[2];

u3(pi/2,0,pi) q[0];
u2(0,pi) q[1];
u3(theta,0,0) q[1];
measure q[0] -> b[0];
measure q[1] -> b[1];
if (b==2) x q[0];
if (b[1]==1) cu1(pi/4) q[0], q[1];
measure q[1] -> a[0];
`
	assert.Equal(t, want, c.ToQASM())

	back, err := ParseQASM(c.ToQASM())
	require.NoError(t, err)
	require.Len(t, back.Gates, len(c.Gates))
	for i := range c.Gates {
		assert.True(t, c.Gates[i].Equal(back.Gates[i]), "gate %d: %s != %s", i, c.Gates[i], back.Gates[i])
	}
}

func TestToQASMConditionWithoutRegisters(t *testing.T) {
	c := New(1).Append(Measure(0, 1), X(0).WithCondition(BitCondition(1, 1)))
	assert.Equal(t, 2, c.NumCbits())
	assert.Contains(t, c.ToQASM(), "creg c[2];\n")
	assert.Contains(t, c.ToQASM(), "if (c[1]==1) x q[0];\n")
	assert.Equal(t, "X q[0] if c[1]==1", c.Gates[1].String())
}

func TestToQASM(t *testing.T) {
	c := New(3).Append(
		H(0),
		CX(0, 1),
		RX(Const(math.Pi/2), 2),
		CPhase(Symbol("a"), 1, 2),
		X(0).WithControls(1, 2, 3),
		Measure(2, 0),
	)
	c.NumQubits = 4

	want := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[4];
creg c[1];

h q[0];
cx q[0], q[1];
rx(pi/2) q[2];
cu1(a) q[1], q[2];
mcx q[1], q[2], q[3], q[0];
measure q[2] -> c[0];
`
	assert.Equal(t, want, c.ToQASM())
}

func TestQASMRoundTrip(t *testing.T) {
	c := New(3).Append(
		H(0),
		RXX(Symbol("a"), 0, 1),
		RZ(Symbol("b").Scale(-0.5).Add(Const(math.Pi/4)), 2),
		Swap(1, 2),
		X(0).WithControls(1, 2),
		Tdg(1),
		Barrier(0, 1, 2),
	)

	back, err := ParseQASM(c.ToQASM())
	require.NoError(t, err)
	require.Equal(t, c.NumQubits, back.NumQubits)
	require.Len(t, back.Gates, len(c.Gates))
	for i := range c.Gates {
		assert.True(t, c.Gates[i].Equal(back.Gates[i]), "gate %d: %s != %s", i, c.Gates[i], back.Gates[i])
	}
}

func TestGateValidate(t *testing.T) {
	tests := []struct {
		name    string
		gate    Gate
		wantErr string
	}{
		{"valid cx", CX(0, 1), ""},
		{"out of range", H(3), "out of range"},
		{"negative", H(-1), "out of range"},
		{"control overlaps target", X(0).WithControls(0), "already a target"},
		{"duplicate control", X(0).WithControls(1, 1), "already added"},
		{"duplicate target", Swap(1, 1), "already added"},
		{"wrong arity", NewGate(TypeRZZ, 0).WithParam(Const(1)), "expected 2"},
		{"missing param", NewGate(TypeRZ, 0), "missing parameter"},
		{"unknown type", NewGate("FOO", 0), "unknown gate type"},
		{"valid u3", U3(Const(1), Const(2), Const(3), 0), ""},
		{"missing angles", NewGate(TypeU3, 0), "expected 3 angle(s)"},
		{"controlled u2", U2(Const(0), Const(0), 0).WithControls(1), ""},
		{"measure without bit", NewGate(TypeMeasure, 0), "expected 1 classical bit(s)"},
		{"bits on a gate", Gate{Type: TypeX, Targets: []int{0}, Cbits: []int{0}}, "only measurements"},
		{"negative cbit", Measure(0, -1), "negative classical bit"},
		{"valid condition", X(0).WithCondition(BitCondition(0, 1)), ""},
		{"empty condition", X(0).WithCondition(Condition{}), "no classical bits"},
		{"condition overflow", X(0).WithCondition(Condition{Bits: []int{0, 1}, Value: 4}), "does not fit"},
		{"condition duplicate", X(0).WithCondition(Condition{Bits: []int{1, 1}}), "already added"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gate.Validate(3)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCircuitQubitOrder(t *testing.T) {
	c := New(2).Append(H(0), CX(0, 1), X(1), Z(0))
	assert.Equal(t, []int{0, 1, 3}, c.QubitOrder(0))
	assert.Equal(t, []int{1, 2}, c.QubitOrder(1))
	assert.Equal(t, 1, c.CountType(TypeX, 1))
	assert.Equal(t, 2, c.CountType(TypeX, -1))
	assert.True(t, strings.HasPrefix(c.Gates[1].String(), "X q[1] ctrl q[0]"))
}
