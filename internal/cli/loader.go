package cli

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"qrewrite/internal/circuit"
	"qrewrite/internal/compiler"
	"qrewrite/internal/config"
	"qrewrite/internal/rule"
	"qrewrite/internal/trace"
)

// PipelineOptions selects the rule tree a command runs.
type PipelineOptions struct {
	Pipeline  string
	Config    string
	LogLevel  string
	MaxRounds int
}

func (p *PipelineOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.Pipeline, "pipeline", "p", "default", "built-in pipeline to run")
	cmd.Flags().StringVarP(&p.Config, "config", "c", "", "YAML pipeline file (overrides --pipeline)")
	cmd.Flags().StringVar(&p.LogLevel, "log-level", "", "rule trace level: silent, summary or detail")
	cmd.Flags().IntVar(&p.MaxRounds, "max-rounds", config.DefaultMaxRounds, "round cap for saturating rules, 0 for none")
}

// Build resolves the flags into a rule tree.
func (p *PipelineOptions) Build(cmd *cobra.Command) (rule.Rule, error) {
	if p.Config != "" && cmd.Flags().Changed("pipeline") {
		return nil, errors.New("use either --pipeline or --config, not both")
	}
	if p.MaxRounds < 0 {
		return nil, errors.Errorf("--max-rounds must not be negative, got %d", p.MaxRounds)
	}

	var r rule.Rule
	if p.Config != "" {
		cfg, err := config.Load(p.Config)
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("max-rounds") {
			n := p.MaxRounds
			cfg.MaxRounds = &n
		}
		if r, err = cfg.Build(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if r, err = compiler.Pipeline(p.Pipeline); err != nil {
			return nil, err
		}
		rule.LimitRounds(r, p.MaxRounds)
	}

	if p.LogLevel != "" {
		level, err := trace.ParseLevel(p.LogLevel)
		if err != nil {
			return nil, err
		}
		r.SetLogLevel(level)
	}
	return r, nil
}

// readCircuit parses the QASM file named by args, or stdin when args is
// empty or "-".
func readCircuit(cmd *cobra.Command, args []string) (*circuit.Circuit, error) {
	var (
		data []byte
		err  error
		name = "<stdin>"
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		name = args[0]
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	c, err := circuit.ParseQASM(string(data))
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return c, nil
}
