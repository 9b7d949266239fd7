// Package rule defines the rewrite rule interface and the composite
// strategies that decide when, and how often, child rules run.
package rule

import (
	"iter"

	"qrewrite/internal/dag"
	"qrewrite/internal/trace"
)

// Rule is a local rewrite of a DAG.
//
// Apply reports whether it changed anything. Returning false means the DAG
// is exactly as it was before the call, and a rule that returned false must
// keep returning false on the same DAG: saturation relies on it to
// terminate.
type Rule interface {
	Name() string
	LogLevel() trace.Level
	// SetLogLevel sets the display threshold. Composites also set it on
	// every descendant.
	SetLogLevel(level trace.Level)
	// Children returns the owned child rules, nil for leaves.
	Children() []Rule
	Apply(ctx *trace.Context, d *dag.DAG) (bool, error)
}

// Base carries the name and log level of a rule. Leaf rules embed it and
// implement Apply.
type Base struct {
	name  string
	level trace.Level
}

// NewBase returns a Base with the given name and a silent log level.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name returns the rule name.
func (b *Base) Name() string { return b.name }

// LogLevel returns the display threshold.
func (b *Base) LogLevel() trace.Level { return b.level }

// SetLogLevel sets the display threshold of this rule only.
func (b *Base) SetLogLevel(level trace.Level) { b.level = level }

// Children returns nil.
func (b *Base) Children() []Rule { return nil }

// Func adapts a function to the Rule interface.
type Func struct {
	Base
	fn func(ctx *trace.Context, d *dag.DAG) (bool, error)
}

// NewFunc returns a leaf rule calling fn.
func NewFunc(name string, fn func(ctx *trace.Context, d *dag.DAG) (bool, error)) *Func {
	return &Func{Base: NewBase(name), fn: fn}
}

// Apply calls the wrapped function.
func (f *Func) Apply(ctx *trace.Context, d *dag.DAG) (bool, error) {
	return f.fn(ctx, d)
}

// Walk yields every rule of the tree rooted at r with its depth, parents
// before children, children in order.
func Walk(r Rule) iter.Seq2[int, Rule] {
	return func(yield func(int, Rule) bool) {
		walk(r, 0, yield)
	}
}

func walk(r Rule, depth int, yield func(int, Rule) bool) bool {
	if !yield(depth, r) {
		return false
	}
	for _, child := range r.Children() {
		if !walk(child, depth+1, yield) {
			return false
		}
	}
	return true
}
