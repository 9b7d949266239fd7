package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qrewrite/internal/compiler"
	"qrewrite/internal/render"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	PipelineOptions
	Output string
	Draw   bool
}

// CompileSummary is the JSON payload of a successful compile.
type CompileSummary struct {
	Rule     string `json:"rule"`
	Changed  bool   `json:"changed"`
	GatesIn  int    `json:"gates_in"`
	GatesOut int    `json:"gates_out"`
	QASM     string `json:"qasm"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [file.qasm]",
		Short: "Rewrite a circuit with a rule pipeline",
		Long: `Compile reads an OpenQASM 2.0 circuit (stdin when no file is given),
runs a pipeline of rewrite rules over it and prints the result as QASM.

Rule traces go to stderr at the level chosen with --log-level.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd, args)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled QASM to a file")
	cmd.Flags().BoolVar(&opts.Draw, "draw", false, "also draw the compiled circuit")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command, args []string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}

	circ, err := readCircuit(cmd, args)
	if err != nil {
		return f.Fail(ErrCodeInput, ExitCommandError, "reading circuit", err)
	}
	r, err := opts.PipelineOptions.Build(cmd)
	if err != nil {
		return f.Fail(ErrCodePipeline, ExitCommandError, "building pipeline", err)
	}

	logger := opts.Logger(cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	c := compiler.New(compiler.WithLogger(logger), compiler.WithTraceWriter(cmd.ErrOrStderr()))
	res, err := c.Run(r, circ)
	if err != nil {
		code, exit := classify(err)
		return f.Fail(code, exit, "compiling", err)
	}

	qasm := res.Circuit.ToQASM()
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(qasm), 0o644); err != nil {
			return f.Fail(ErrCodeWrite, ExitCommandError, "writing output", err)
		}
	}

	if f.JSON() {
		return f.Success(res.RunID, CompileSummary{
			Rule:     r.Name(),
			Changed:  res.Changed,
			GatesIn:  circ.Len(),
			GatesOut: res.Circuit.Len(),
			QASM:     qasm,
		})
	}

	out := cmd.OutOrStdout()
	if opts.Output != "" {
		fmt.Fprintf(out, "✓ Compiled %d → %d gates with %s, wrote %s\n", circ.Len(), res.Circuit.Len(), r.Name(), opts.Output)
	} else {
		fmt.Fprint(out, qasm)
	}
	if opts.Draw {
		fmt.Fprintln(out, render.Circuit(res.Circuit))
	}
	return nil
}
