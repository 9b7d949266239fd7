package rules

import (
	"maps"
	"slices"

	"github.com/pkg/errors"

	"qrewrite/internal/rule"
)

// registry maps the names accepted in pipeline files to rule constructors.
// Every lookup builds a fresh rule, so composites never share children.
var registry = map[string]func() rule.Rule{
	"cp":              func() rule.Rule { return CPDecompose() },
	"crx":             func() rule.Rule { return CRXDecompose() },
	"cry":             func() rule.Rule { return CRYDecompose() },
	"crz":             func() rule.Rule { return CRZDecompose() },
	"cy":              func() rule.Rule { return CYDecompose() },
	"cz":              func() rule.Rule { return CZDecompose() },
	"swap":            func() rule.Rule { return SwapDecompose() },
	"ccx":             func() rule.Rule { return CCXDecompose() },
	"rxx":             func() rule.Rule { return RXXDecompose() },
	"ryy":             func() rule.Rule { return RYYDecompose() },
	"rzz":             func() rule.Rule { return RZZDecompose() },
	"cancel-inverses": func() rule.Rule { return NewCancelInverses() },
	"merge-rotations": func() rule.Rule { return NewMergeRotations() },
	"remove-identity": func() rule.Rule { return NewRemoveIdentity() },
}

// Lookup returns a new instance of the named rule.
func Lookup(name string) (rule.Rule, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown rule %q", name)
	}
	return ctor(), nil
}

// Names returns every registered rule name, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// Decompositions returns one instance of every decomposition rule, in an
// order where later rules never produce gates earlier ones match.
func Decompositions() []rule.Rule {
	return []rule.Rule{
		CCXDecompose(),
		SwapDecompose(),
		RXXDecompose(),
		RYYDecompose(),
		RZZDecompose(),
		CPDecompose(),
		CRXDecompose(),
		CRYDecompose(),
		CRZDecompose(),
		CYDecompose(),
		CZDecompose(),
	}
}

// Simplifications returns one instance of every simplification rule.
func Simplifications() []rule.Rule {
	return []rule.Rule{
		NewRemoveIdentity(),
		NewCancelInverses(),
		NewMergeRotations(),
	}
}
