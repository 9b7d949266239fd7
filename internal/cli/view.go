package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"qrewrite/internal/compiler"
	"qrewrite/internal/rule"
	"qrewrite/internal/trace"
	"qrewrite/internal/view"
)

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	PipelineOptions
	Save string
}

// NewViewCommand creates the interactive playground command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "view [file.qasm]",
		Short:         "Open the interactive compiler playground",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "OPENQASM 2.0;\ninclude \"qelib1.inc\";\nqreg q[2];\n"
			if len(args) > 0 {
				circ, err := readCircuit(cmd, args)
				if err != nil {
					return &ExitError{Code: ExitCommandError, Message: "reading circuit", Err: err}
				}
				source = circ.ToQASM()
			}
			viewOpts, err := opts.viewOptions(cmd)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "building pipeline", Err: err}
			}
			return view.Run(source, viewOpts...)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Save, "save", "compiled.qasm", "file written by ctrl+s")
	return cmd
}

// viewOptions offers the built-in pipelines, plus the --config file first
// when one is given.
func (o *ViewOptions) viewOptions(cmd *cobra.Command) ([]view.Option, error) {
	pipelines := view.BuiltinPipelines()
	for _, p := range pipelines {
		if p.Name == o.Pipeline {
			pipelines = append([]view.Pipeline{p}, removeNamed(pipelines, p.Name)...)
			break
		}
	}
	if o.Config != "" {
		// Fail fast on a bad file; the playground rebuilds it per compile.
		if _, err := o.PipelineOptions.Build(cmd); err != nil {
			return nil, err
		}
		pipelines = append([]view.Pipeline{{
			Name:  filepath.Base(o.Config),
			Build: func() (rule.Rule, error) { return o.PipelineOptions.Build(cmd) },
		}}, pipelines...)
	}

	level := trace.Summary
	if o.LogLevel != "" {
		l, err := trace.ParseLevel(o.LogLevel)
		if err != nil {
			return nil, err
		}
		level = l
	}
	return []view.Option{
		view.WithPipelines(pipelines...),
		view.WithLevel(level),
		view.WithSavePath(o.Save),
		view.WithCompilerOptions(compiler.WithLogger(o.Logger(cmd.ErrOrStderr()))),
	}, nil
}

func removeNamed(pipelines []view.Pipeline, name string) []view.Pipeline {
	var out []view.Pipeline
	for _, p := range pipelines {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return out
}
