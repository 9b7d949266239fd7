package rule

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"qrewrite/internal/dag"
	"qrewrite/internal/trace"
)

// Default composite names.
const (
	SequentialName = "Sequential"
	SaturatingName = "Kronecker"
)

type options struct {
	name      string
	level     trace.Level
	hasLevel  bool
	maxRounds int
}

// Option configures a composite rule.
type Option func(*options)

// WithName overrides the composite's name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogLevel sets the display threshold of the composite and all of its
// descendants.
func WithLogLevel(level trace.Level) Option {
	return func(o *options) {
		o.level = level
		o.hasLevel = true
	}
}

// WithMaxRounds caps the number of rounds a Saturating rule may run,
// counting the final unproductive one. Zero or less means no cap.
// Sequential ignores it.
func WithMaxRounds(n int) Option {
	return func(o *options) { o.maxRounds = n }
}

// composite holds the children shared by both strategies.
type composite struct {
	Base
	children []Rule
}

func newComposite(defaultName string, children []Rule, opts []Option) (composite, options) {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	c := composite{Base: NewBase(o.name), children: children}
	if o.hasLevel {
		c.SetLogLevel(o.level)
	}
	return c, o
}

// Children returns the owned children in order.
func (c *composite) Children() []Rule { return c.children }

// SetLogLevel sets the threshold on this composite, then on every child.
func (c *composite) SetLogLevel(level trace.Level) {
	c.level = level
	for _, child := range c.children {
		child.SetLogLevel(level)
	}
}

// run wraps body with the summary lines and one level of indentation.
func (c *composite) run(ctx *trace.Context, body func() (bool, error)) (bool, error) {
	st := ctx.Styles()
	if ctx.Enabled(trace.Summary, c.level) {
		names := make([]string, len(c.children))
		for i, child := range c.children {
			names[i] = st.Dim.Render(child.Name())
		}
		ctx.Logf(trace.Summary, c.level, "Running %s: %d child (%s).",
			st.Rule.Render(c.name), len(c.children), strings.Join(names, ", "))
	}

	changed, err := func() (bool, error) {
		defer ctx.Enter()()
		return body()
	}()
	if err != nil {
		return false, err
	}

	if changed {
		ctx.Logf(trace.Summary, c.level, "%s: %s.", st.Rule.Render(c.name), st.Changed.Render("successfully compiled"))
	} else {
		ctx.Logf(trace.Summary, c.level, "%s: nothing happened.", st.Rule.Render(c.name))
	}
	return changed, nil
}

// pass applies every child once, in order, to the evolving DAG.
func (c *composite) pass(ctx *trace.Context, d *dag.DAG, round int) (bool, error) {
	states := make([]bool, len(c.children))
	changed := false
	for i, child := range c.children {
		start := time.Now()
		ok, err := child.Apply(ctx, d)
		ctx.Emit(trace.Event{
			Parent:   c.name,
			Rule:     child.Name(),
			Round:    round,
			Changed:  ok,
			Err:      err,
			Duration: time.Since(start),
		})
		if err != nil {
			return false, errors.Wrapf(err, "%s: %s", c.name, child.Name())
		}
		states[i] = ok
		changed = changed || ok
	}
	if ctx.Enabled(trace.Detail, c.level) {
		ctx.Logf(trace.Detail, c.level, "%s: state for each rule -> %s", ctx.Styles().Rule.Render(c.name), showState(ctx, states))
	}
	return changed, nil
}

func showState(ctx *trace.Context, states []bool) string {
	st := ctx.Styles()
	parts := make([]string, len(states))
	for i, ok := range states {
		if ok {
			parts[i] = st.Changed.Render("true")
		} else {
			parts[i] = st.Unchanged.Render("false")
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Sequential applies each child exactly once, in order. It reports a change
// if any child did.
type Sequential struct {
	composite
}

// NewSequential returns a Sequential owning children.
func NewSequential(children []Rule, opts ...Option) *Sequential {
	c, _ := newComposite(SequentialName, children, opts)
	return &Sequential{composite: c}
}

// Apply runs one pass over the children.
func (s *Sequential) Apply(ctx *trace.Context, d *dag.DAG) (bool, error) {
	return s.run(ctx, func() (bool, error) {
		return s.pass(ctx, d, 1)
	})
}

// Saturating runs rounds of one pass over its children until a round
// changes nothing. It reports a change if any round did.
type Saturating struct {
	composite
	maxRounds int
}

// NewSaturating returns a Saturating rule owning children. Without
// WithMaxRounds it iterates until the fixpoint, however many rounds that
// takes.
func NewSaturating(children []Rule, opts ...Option) *Saturating {
	c, o := newComposite(SaturatingName, children, opts)
	return &Saturating{composite: c, maxRounds: o.maxRounds}
}

// MaxRounds returns the round cap, zero when unbounded.
func (s *Saturating) MaxRounds() int { return s.maxRounds }

// Apply iterates passes until the fixpoint.
func (s *Saturating) Apply(ctx *trace.Context, d *dag.DAG) (bool, error) {
	return s.run(ctx, func() (bool, error) {
		compiled := false
		for round := 1; ; round++ {
			if s.maxRounds > 0 && round > s.maxRounds {
				return false, &RoundLimitError{Rule: s.name, Limit: s.maxRounds}
			}
			changed, err := s.pass(ctx, d, round)
			if err != nil {
				return false, err
			}
			if !changed {
				return compiled, nil
			}
			compiled = true
		}
	})
}

// LimitRounds caps every Saturating rule in the tree rooted at r that has no
// cap yet. Rules already capped keep theirs.
func LimitRounds(r Rule, n int) {
	for _, node := range Walk(r) {
		if s, ok := node.(*Saturating); ok && s.maxRounds <= 0 {
			s.maxRounds = n
		}
	}
}
