// Package compiler drives a rewrite rule over a circuit: build the DAG,
// apply the rule once, flatten the result.
package compiler

import (
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"qrewrite/internal/circuit"
	"qrewrite/internal/dag"
	"qrewrite/internal/rule"
	"qrewrite/internal/trace"
)

// Compiler runs rules over circuits. It holds no per-call state and may be
// used concurrently on independent circuits.
type Compiler struct {
	logger      *zap.Logger
	traceWriter io.Writer
	traceOpts   []trace.Option
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithTraceWriter sets where rule traces are written. Rules only write
// lines at or below their own log level.
func WithTraceWriter(w io.Writer) Option {
	return func(c *Compiler) { c.traceWriter = w }
}

// WithTraceStyles overrides the trace styles, e.g. to force colour.
func WithTraceStyles(s trace.Styles) Option {
	return func(c *Compiler) { c.traceOpts = append(c.traceOpts, trace.WithStyles(s)) }
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome of one compilation.
type Result struct {
	RunID   string
	Circuit *circuit.Circuit
	Changed bool
	Events  []trace.Event
}

// Compile applies r to circ and returns the rewritten circuit. The input is
// not modified. Errors from building the DAG or from the rule are returned
// unchanged and no circuit is produced.
func (c *Compiler) Compile(r rule.Rule, circ *circuit.Circuit) (*circuit.Circuit, error) {
	res, err := c.Run(r, circ)
	if err != nil {
		return nil, err
	}
	return res.Circuit, nil
}

// Run is Compile, also reporting whether anything changed and every child
// rule application made along the way.
func (c *Compiler) Run(r rule.Rule, circ *circuit.Circuit) (*Result, error) {
	if r == nil {
		return nil, errors.New("compile: nil rule")
	}
	runID := uuid.Must(uuid.NewV7()).String()
	logger := c.logger.With(zap.String("run_id", runID), zap.String("rule", r.Name()))
	start := time.Now()

	d, err := dag.Build(circ)
	if err != nil {
		logger.Warn("rejected input circuit", zap.Error(err))
		return nil, err
	}
	logger.Debug("built dag", zap.Int("nodes", d.Len()), zap.Int("qubits", d.NumQubits()))

	res := &Result{RunID: runID}
	opts := append(slices.Clone(c.traceOpts), trace.WithHook(func(e trace.Event) {
		res.Events = append(res.Events, e)
		logger.Debug("rule applied",
			zap.String("parent", e.Parent),
			zap.String("child", e.Rule),
			zap.Int("round", e.Round),
			zap.Int("depth", e.Depth),
			zap.Bool("changed", e.Changed),
			zap.Duration("duration", e.Duration),
		)
	}))
	ctx := trace.New(c.traceWriter, opts...)

	changed, err := r.Apply(ctx, d)
	if err != nil {
		logger.Error("rule failed", zap.Error(err))
		return nil, err
	}

	out, err := d.Flatten()
	if err != nil {
		logger.Error("flatten failed", zap.Error(err))
		return nil, err
	}
	res.Circuit = out
	res.Changed = changed

	logger.Info("compiled circuit",
		zap.Int("gates_in", circ.Len()),
		zap.Int("gates_out", out.Len()),
		zap.Bool("changed", changed),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// Compile applies r to circ with a default Compiler.
func Compile(r rule.Rule, circ *circuit.Circuit) (*circuit.Circuit, error) {
	return New().Compile(r, circ)
}
