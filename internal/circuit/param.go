package circuit

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// paramEpsilon is the tolerance used when comparing coefficients.
const paramEpsilon = 1e-10

// piExprRegex matches expressions like: pi, 2pi, 2*pi, pi/2, 3pi/4, 3*pi/4, -pi, -pi/2, -3*pi/4
var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)

// symbolTermRegex matches a single symbolic term: a, 2*a, 0.5*theta, a/2, 3*a/4
var symbolTermRegex = regexp.MustCompile(`^(?:(\d*\.?\d+(?:[eE][+\-]?\d+)?)\s*\*\s*)?([A-Za-z_]\w*)(?:\s*/\s*(\d*\.?\d+))?$`)

// Param is a gate parameter: a constant plus a linear combination of named
// symbols. Values are immutable; every operation returns a new Param.
type Param struct {
	Const float64
	Terms map[string]float64
}

// Const returns a purely numeric parameter.
func Const(v float64) Param {
	return Param{Const: v}
}

// Symbol returns a parameter equal to the named symbol.
func Symbol(name string) Param {
	return Param{Terms: map[string]float64{name: 1}}
}

// Add returns p + q.
func (p Param) Add(q Param) Param {
	out := Param{Const: p.Const + q.Const}
	for name, coeff := range p.Terms {
		out = out.withTerm(name, coeff)
	}
	for name, coeff := range q.Terms {
		out = out.withTerm(name, coeff)
	}
	return out
}

// Scale returns k * p.
func (p Param) Scale(k float64) Param {
	out := Param{Const: p.Const * k}
	for name, coeff := range p.Terms {
		out = out.withTerm(name, coeff*k)
	}
	return out
}

// Neg returns -p.
func (p Param) Neg() Param {
	return p.Scale(-1)
}

// withTerm adds coeff*name in place, dropping terms that cancel to zero.
func (p Param) withTerm(name string, coeff float64) Param {
	if p.Terms == nil {
		p.Terms = make(map[string]float64)
	}
	v := p.Terms[name] + coeff
	if math.Abs(v) < paramEpsilon {
		delete(p.Terms, name)
	} else {
		p.Terms[name] = v
	}
	if len(p.Terms) == 0 {
		p.Terms = nil
	}
	return p
}

// IsConst reports whether p has no symbolic terms.
func (p Param) IsConst() bool {
	return len(p.Terms) == 0
}

// IsZero reports whether p is the constant zero.
func (p Param) IsZero() bool {
	return p.IsConst() && math.Abs(p.Const) < paramEpsilon
}

// Equal reports whether p and q are the same expression.
func (p Param) Equal(q Param) bool {
	return p.Add(q.Neg()).IsZero()
}

// Eval returns the numeric value of p with symbols bound from env.
func (p Param) Eval(env map[string]float64) (float64, error) {
	v := p.Const
	for _, name := range p.Symbols() {
		x, ok := env[name]
		if !ok {
			return 0, errors.Errorf("unbound symbol %q", name)
		}
		v += p.Terms[name] * x
	}
	return v, nil
}

// Symbols returns the symbol names of p in sorted order.
func (p Param) Symbols() []string {
	names := make([]string, 0, len(p.Terms))
	for name := range p.Terms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// String formats p as "a + 2*b - pi/2". Constants use pi notation when possible.
func (p Param) String() string {
	var sb strings.Builder
	for _, name := range p.Symbols() {
		writeTerm(&sb, p.Terms[name], func(abs float64) string {
			if math.Abs(abs-1) < paramEpsilon {
				return name
			}
			return fmt.Sprintf("%g*%s", abs, name)
		})
	}
	if sb.Len() == 0 {
		return FormatAngle(p.Const)
	}
	if math.Abs(p.Const) >= paramEpsilon {
		writeTerm(&sb, p.Const, FormatAngle)
	}
	return sb.String()
}

// writeTerm appends a signed term, using " + " and " - " separators after the first.
func writeTerm(sb *strings.Builder, v float64, format func(float64) string) {
	neg := v < 0
	abs := math.Abs(v)
	switch {
	case sb.Len() == 0 && neg:
		sb.WriteString("-")
	case sb.Len() > 0 && neg:
		sb.WriteString(" - ")
	case sb.Len() > 0:
		sb.WriteString(" + ")
	}
	sb.WriteString(format(abs))
}

// ParseParam parses a parameter expression: numbers, pi expressions,
// symbols with optional coefficient and denominator, and sums of those.
//
// Supported formats:
//   - Plain numbers: "1.5707", "-0.5", "3.14e-2"
//   - Pi fractions: "pi", "pi/2", "3*pi/4", "-2pi"
//   - Symbols: "a", "theta", "2*a", "a/2", "0.5*theta/3"
//   - Sums: "a + pi/2", "2*a - b"
func ParseParam(s string) (Param, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Param{}, errors.New("empty parameter")
	}

	var out Param
	for _, term := range splitTerms(s) {
		neg := false
		term = strings.TrimSpace(term)
		for len(term) > 0 && (term[0] == '+' || term[0] == '-') {
			if term[0] == '-' {
				neg = !neg
			}
			term = strings.TrimSpace(term[1:])
		}
		if term == "" {
			return Param{}, errors.Errorf("invalid parameter %q", s)
		}
		p, ok := parseTerm(term)
		if !ok {
			return Param{}, errors.Errorf("invalid parameter %q", s)
		}
		if neg {
			p = p.Neg()
		}
		out = out.Add(p)
	}
	return out, nil
}

// splitTerms splits s at top-level '+' and '-' operators, keeping the sign
// with the following term. Exponent signs ("1e-3") are not split.
func splitTerms(s string) []string {
	var terms []string
	start := 0
	for i := 1; i < len(s); i++ {
		if s[i] != '+' && s[i] != '-' {
			continue
		}
		prev := s[i-1]
		if prev == '*' || prev == '/' || prev == '+' || prev == '-' {
			continue
		}
		if (prev == 'e' || prev == 'E') && i >= 2 && (isDigit(s[i-2]) || s[i-2] == '.') {
			continue
		}
		terms = append(terms, s[start:i])
		start = i
	}
	return append(terms, s[start:])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// parseTerm parses one unsigned term.
func parseTerm(term string) (Param, bool) {
	if v, ok := parseAngle(term); ok {
		return Const(v), true
	}
	matches := symbolTermRegex.FindStringSubmatch(term)
	if matches == nil || strings.EqualFold(matches[2], "pi") {
		return Param{}, false
	}
	coeff := 1.0
	if matches[1] != "" {
		v, err := strconv.ParseFloat(matches[1], 64)
		if err != nil {
			return Param{}, false
		}
		coeff = v
	}
	if matches[3] != "" {
		denom, err := strconv.ParseFloat(matches[3], 64)
		if err != nil || denom == 0 {
			return Param{}, false
		}
		coeff /= denom
	}
	return Symbol(matches[2]).Scale(coeff), true
}

// parseAngle parses a single numeric expression, supporting plain numbers and pi expressions.
// Returns the parsed float64 value and true on success, or 0 and false on failure.
func parseAngle(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Try plain number first
	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val, true
	}

	s = strings.ToLower(s)
	matches := piExprRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, false
	}

	coeff := 1.0
	if matches[2] != "" {
		var err error
		coeff, err = strconv.ParseFloat(matches[2], 64)
		if err != nil {
			return 0, false
		}
	}

	result := coeff * math.Pi
	if matches[3] != "" {
		denom, err := strconv.ParseFloat(matches[3], 64)
		if err != nil || denom == 0 {
			return 0, false
		}
		result /= denom
	}

	if matches[1] == "-" {
		result = -result
	}
	return result, true
}

// FormatAngle formats a float64 value, using pi notation when possible.
// Recognizes common pi fractions: pi, pi/2, pi/4, pi/3, pi/6, pi/8, 2*pi, 3*pi/4, etc.
func FormatAngle(val float64) string {
	type piForm struct {
		value   float64
		display string
	}
	piForms := []piForm{
		{2 * math.Pi, "2*pi"},
		{math.Pi, "pi"},
		{math.Pi / 2, "pi/2"},
		{math.Pi / 3, "pi/3"},
		{math.Pi / 4, "pi/4"},
		{math.Pi / 6, "pi/6"},
		{math.Pi / 8, "pi/8"},
		{3 * math.Pi / 4, "3*pi/4"},
		{3 * math.Pi / 2, "3*pi/2"},
		{2 * math.Pi / 3, "2*pi/3"},
	}

	for _, pf := range piForms {
		if math.Abs(val-pf.value) < paramEpsilon {
			return pf.display
		}
		if math.Abs(val+pf.value) < paramEpsilon {
			return "-" + pf.display
		}
	}

	return fmt.Sprintf("%g", val)
}
