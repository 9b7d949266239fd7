package compiler

import (
	"maps"
	"slices"

	"github.com/pkg/errors"

	"qrewrite/internal/rule"
	"qrewrite/internal/rules"
)

// Decompose saturates every decomposition rule: the result contains only
// single-qubit gates, CNOTs and operations no rule rewrites.
func Decompose() rule.Rule {
	return rule.NewSaturating(rules.Decompositions(), rule.WithName("BasicDecompose"))
}

// Optimize saturates the local simplifications.
func Optimize() rule.Rule {
	return rule.NewSaturating(rules.Simplifications(), rule.WithName("Optimize"))
}

// Default decomposes to the fixpoint, then simplifies to the fixpoint.
func Default() rule.Rule {
	return rule.NewSequential([]rule.Rule{Decompose(), Optimize()}, rule.WithName("Default"))
}

// Interleaved repeats one decomposition pass followed by one simplification
// pass until neither changes anything.
func Interleaved() rule.Rule {
	return rule.NewSaturating([]rule.Rule{
		rule.NewSequential(rules.Decompositions(), rule.WithName("DecomposeOnce")),
		rule.NewSequential(rules.Simplifications(), rule.WithName("SimplifyOnce")),
	}, rule.WithName("Interleaved"))
}

var pipelines = map[string]func() rule.Rule{
	"decompose":   Decompose,
	"optimize":    Optimize,
	"default":     Default,
	"interleaved": Interleaved,
}

// Pipeline returns a fresh instance of a built-in pipeline.
func Pipeline(name string) (rule.Rule, error) {
	ctor, ok := pipelines[name]
	if !ok {
		return nil, errors.Errorf("unknown pipeline %q (want one of %v)", name, PipelineNames())
	}
	return ctor(), nil
}

// PipelineNames returns the built-in pipeline names, sorted.
func PipelineNames() []string {
	return slices.Sorted(maps.Keys(pipelines))
}
