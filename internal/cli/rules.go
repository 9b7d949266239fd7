package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrewrite/internal/compiler"
	"qrewrite/internal/render"
	"qrewrite/internal/rule"
	"qrewrite/internal/rules"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	PipelineOptions
}

// RuleNode is one entry of the JSON rule tree.
type RuleNode struct {
	Depth     int    `json:"depth"`
	Name      string `json:"name"`
	LogLevel  string `json:"log_level"`
	MaxRounds int    `json:"max_rounds,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List rules or show a pipeline's rule tree",
		Long: `Without flags, rules lists the registered rule names and the built-in
pipelines. With --pipeline or --config it prints the resolved rule tree.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func runRules(opts *RulesOptions, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
	out := cmd.OutOrStdout()

	if !cmd.Flags().Changed("pipeline") && opts.Config == "" {
		if f.JSON() {
			return f.Success("", map[string][]string{
				"rules":     rules.Names(),
				"pipelines": compiler.PipelineNames(),
			})
		}
		fmt.Fprintln(out, "Rules:")
		for _, name := range rules.Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, "Pipelines:")
		for _, name := range compiler.PipelineNames() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	}

	r, err := opts.PipelineOptions.Build(cmd)
	if err != nil {
		return f.Fail(ErrCodePipeline, ExitCommandError, "building pipeline", err)
	}
	if f.JSON() {
		var nodes []RuleNode
		for depth, n := range rule.Walk(r) {
			node := RuleNode{Depth: depth, Name: n.Name(), LogLevel: n.LogLevel().String()}
			if s, ok := n.(*rule.Saturating); ok {
				node.MaxRounds = s.MaxRounds()
			}
			nodes = append(nodes, node)
		}
		return f.Success("", nodes)
	}
	fmt.Fprintln(out, render.Tree(r))
	return nil
}
