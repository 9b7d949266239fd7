package rules

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"qrewrite/internal/circuit"
)

// stateVector is a small dense simulator used to check that rewrites keep
// a circuit's action, up to global phase.
type stateVector struct {
	amps      []complex128
	numQubits int
}

// randomState returns a normalized random state on numQubits qubits.
func randomState(rng *rand.Rand, numQubits int) *stateVector {
	amps := make([]complex128, 1<<numQubits)
	norm := 0.0
	for i := range amps {
		amps[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		norm += real(amps[i] * cmplx.Conj(amps[i]))
	}
	for i := range amps {
		amps[i] /= complex(math.Sqrt(norm), 0)
	}
	return &stateVector{amps: amps, numQubits: numQubits}
}

func (s *stateVector) clone() *stateVector {
	amps := make([]complex128, len(s.amps))
	copy(amps, s.amps)
	return &stateVector{amps: amps, numQubits: s.numQubits}
}

// controlMask returns the bit mask that must be fully set for a controlled
// gate to act.
func controlMask(controls []int) int {
	mask := 0
	for _, c := range controls {
		mask |= 1 << c
	}
	return mask
}

// apply1 applies the 2x2 matrix m to qubit q on basis states where every
// control is set.
func (s *stateVector) apply1(m [2][2]complex128, q int, controls []int) {
	bit := 1 << q
	mask := controlMask(controls)
	for i := range s.amps {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		a0, a1 := s.amps[i], s.amps[j]
		s.amps[i] = m[0][0]*a0 + m[0][1]*a1
		s.amps[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

// apply2 applies the 4x4 matrix m to qubits (a, b), with a as the low bit
// of the local index.
func (s *stateVector) apply2(m [4][4]complex128, a, b int, controls []int) {
	bitA, bitB := 1<<a, 1<<b
	mask := controlMask(controls)
	for i := range s.amps {
		if i&bitA != 0 || i&bitB != 0 || i&mask != mask {
			continue
		}
		idx := [4]int{i, i | bitA, i | bitB, i | bitA | bitB}
		var in, out [4]complex128
		for k := range idx {
			in[k] = s.amps[idx[k]]
		}
		for r := range 4 {
			for c := range 4 {
				out[r] += m[r][c] * in[c]
			}
		}
		for k := range idx {
			s.amps[idx[k]] = out[k]
		}
	}
}

func rotation(axis string, theta float64) [2][2]complex128 {
	c := complex(math.Cos(theta/2), 0)
	sn := math.Sin(theta / 2)
	switch axis {
	case circuit.TypeRX:
		return [2][2]complex128{{c, complex(0, -sn)}, {complex(0, -sn), c}}
	case circuit.TypeRY:
		return [2][2]complex128{{c, complex(-sn, 0)}, {complex(sn, 0), c}}
	default:
		return [2][2]complex128{{cmplx.Exp(complex(0, -theta/2)), 0}, {0, cmplx.Exp(complex(0, theta/2))}}
	}
}

func phase(theta float64) [2][2]complex128 {
	return [2][2]complex128{{1, 0}, {0, cmplx.Exp(complex(0, theta))}}
}

// pauliPair returns exp(-i theta/2 P⊗P) for P in {X, Y, Z}.
func pauliPair(gateType string, theta float64) [4][4]complex128 {
	c := complex(math.Cos(theta/2), 0)
	ms := complex(0, -math.Sin(theta/2))
	var m [4][4]complex128
	switch gateType {
	case circuit.TypeRZZ:
		m[0][0], m[3][3] = c+ms, c+ms
		m[1][1], m[2][2] = c-ms, c-ms
	case circuit.TypeRXX:
		for k := range 4 {
			m[k][k] = c
			m[k][3-k] = ms
		}
	case circuit.TypeRYY:
		for k := range 4 {
			m[k][k] = c
		}
		// Y⊗Y flips both bits with sign -1 on |00>,|11> and +1 on |01>,|10>.
		m[0][3], m[3][0] = -ms, -ms
		m[1][2], m[2][1] = ms, ms
	}
	return m
}

var fixed = map[string][2][2]complex128{
	circuit.TypeI:   {{1, 0}, {0, 1}},
	circuit.TypeH:   {{1 / math.Sqrt2, 1 / math.Sqrt2}, {1 / math.Sqrt2, -1 / math.Sqrt2}},
	circuit.TypeX:   {{0, 1}, {1, 0}},
	circuit.TypeY:   {{0, -1i}, {1i, 0}},
	circuit.TypeZ:   {{1, 0}, {0, -1}},
	circuit.TypeS:   {{1, 0}, {0, 1i}},
	circuit.TypeSDG: {{1, 0}, {0, -1i}},
	circuit.TypeT:   phase(math.Pi / 4),
	circuit.TypeTDG: phase(-math.Pi / 4),
	circuit.TypeSX:  {{0.5 + 0.5i, 0.5 - 0.5i}, {0.5 - 0.5i, 0.5 + 0.5i}},
}

// applyGate applies g with symbols bound from env.
func (s *stateVector) applyGate(t *testing.T, g circuit.Gate, env map[string]float64) {
	t.Helper()
	theta := 0.0
	if g.Param != nil {
		v, err := g.Param.Eval(env)
		require.NoError(t, err)
		theta = v
	}
	switch g.Type {
	case circuit.TypeRX, circuit.TypeRY, circuit.TypeRZ:
		s.apply1(rotation(g.Type, theta), g.Targets[0], g.Controls)
	case circuit.TypeP:
		s.apply1(phase(theta), g.Targets[0], g.Controls)
	case circuit.TypeRXX, circuit.TypeRYY, circuit.TypeRZZ:
		s.apply2(pauliPair(g.Type, theta), g.Targets[0], g.Targets[1], g.Controls)
	case circuit.TypeSWAP:
		var m [4][4]complex128
		m[0][0], m[1][2], m[2][1], m[3][3] = 1, 1, 1, 1
		s.apply2(m, g.Targets[0], g.Targets[1], g.Controls)
	case circuit.TypeBarrier:
	default:
		m, ok := fixed[g.Type]
		require.True(t, ok, "simulator does not support %s", g.Type)
		s.apply1(m, g.Targets[0], g.Controls)
	}
}

func (s *stateVector) run(t *testing.T, c *circuit.Circuit, env map[string]float64) {
	t.Helper()
	for _, g := range c.Gates {
		s.applyGate(t, g, env)
	}
}

// fidelity returns |<a|b>|.
func fidelity(a, b *stateVector) float64 {
	var dot complex128
	for i := range a.amps {
		dot += cmplx.Conj(a.amps[i]) * b.amps[i]
	}
	return cmplx.Abs(dot)
}

// requireEquivalent checks that want and got act identically, up to global
// phase, on several random input states and symbol bindings.
func requireEquivalent(t *testing.T, want, got *circuit.Circuit) {
	t.Helper()
	require.Equal(t, want.NumQubits, got.NumQubits)
	rng := rand.New(rand.NewPCG(7, 11))
	symbols := map[string]bool{}
	for _, g := range want.Gates {
		if g.Param != nil {
			for _, name := range g.Param.Symbols() {
				symbols[name] = true
			}
		}
	}
	for trial := range 5 {
		env := make(map[string]float64, len(symbols))
		for name := range symbols {
			env[name] = (rng.Float64()*2 - 1) * 2 * math.Pi
		}
		in := randomState(rng, want.NumQubits)
		a, b := in.clone(), in.clone()
		a.run(t, want, env)
		b.run(t, got, env)
		require.InDelta(t, 1.0, fidelity(a, b), 1e-9, "trial %d", trial)
	}
}
