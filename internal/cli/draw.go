package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrewrite/internal/render"
)

// DrawOptions holds flags for the draw command.
type DrawOptions struct {
	*RootOptions
	Width int
}

// NewDrawCommand creates the draw command.
func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrawOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "draw [file.qasm]",
		Short:         "Draw a circuit",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
			circ, err := readCircuit(cmd, args)
			if err != nil {
				return f.Fail(ErrCodeInput, ExitCommandError, "reading circuit", err)
			}
			drawing := render.Circuit(circ, render.WithWidth(opts.Width))
			if f.JSON() {
				return f.Success("", map[string]string{"drawing": drawing})
			}
			fmt.Fprintln(cmd.OutOrStdout(), drawing)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Width, "width", "w", 0, "fold the drawing at this many columns, 0 for none")
	return cmd
}
