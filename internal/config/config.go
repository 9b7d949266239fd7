// Package config loads rewrite pipelines from YAML files.
//
// A pipeline is a tree. Each node is exactly one of:
//
//	rule: cancel-inverses            # a registered rule
//	pipeline: decompose              # a built-in pipeline
//	sequential: {name, log_level, rules: [...]}
//	saturate:   {name, log_level, max_rounds, rules: [...]}
//
// Top-level log_level and max_rounds apply to every node that does not set
// its own.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"qrewrite/internal/compiler"
	"qrewrite/internal/rule"
	"qrewrite/internal/rules"
	"qrewrite/internal/trace"
)

// DefaultMaxRounds caps saturating nodes that set no max_rounds. A file can
// lift the cap with max_rounds: 0.
const DefaultMaxRounds = 1000

// Config is a pipeline file.
type Config struct {
	// LogLevel is the default trace level: silent, summary, detail or 0-2.
	LogLevel string `yaml:"log_level,omitempty"`

	// MaxRounds is the default cap for saturate nodes. Zero means unbounded.
	MaxRounds *int `yaml:"max_rounds,omitempty"`

	// Pipeline is the root of the rule tree.
	Pipeline Node `yaml:"pipeline"`
}

// Node is one rule in the tree.
type Node struct {
	Rule       string     `yaml:"rule,omitempty"`
	Builtin    string     `yaml:"pipeline,omitempty"`
	Sequential *Composite `yaml:"sequential,omitempty"`
	Saturate   *Composite `yaml:"saturate,omitempty"`

	// LogLevel applies to rule and pipeline nodes. Composites carry their own.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Composite is the body of a sequential or saturate node.
type Composite struct {
	Name      string `yaml:"name,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`
	MaxRounds *int   `yaml:"max_rounds,omitempty"`
	Rules     []Node `yaml:"rules"`
}

// Load reads and validates a pipeline file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read pipeline file")
	}
	return Parse(data)
}

// Parse decodes and validates a pipeline document. Unknown fields are
// rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse pipeline YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline")
	}
	return &cfg, nil
}

// Validate checks the whole tree without building it.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := trace.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrap(err, "log_level")
		}
	}
	if c.MaxRounds != nil && *c.MaxRounds < 0 {
		return errors.Errorf("max_rounds: must not be negative, got %d", *c.MaxRounds)
	}
	return c.Pipeline.validate("pipeline")
}

func (n *Node) validate(path string) error {
	kinds := 0
	for _, set := range []bool{n.Rule != "", n.Builtin != "", n.Sequential != nil, n.Saturate != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return errors.Errorf("%s: exactly one of rule, pipeline, sequential or saturate is required", path)
	}
	if n.LogLevel != "" {
		if n.Sequential != nil || n.Saturate != nil {
			return errors.Errorf("%s: set log_level inside the composite", path)
		}
		if _, err := trace.ParseLevel(n.LogLevel); err != nil {
			return errors.Wrapf(err, "%s.log_level", path)
		}
	}

	switch {
	case n.Rule != "":
		if _, err := rules.Lookup(n.Rule); err != nil {
			return errors.Wrap(err, path)
		}
	case n.Builtin != "":
		if _, err := compiler.Pipeline(n.Builtin); err != nil {
			return errors.Wrap(err, path)
		}
	case n.Sequential != nil:
		return n.Sequential.validate(path + ".sequential")
	case n.Saturate != nil:
		return n.Saturate.validate(path + ".saturate")
	}
	return nil
}

func (c *Composite) validate(path string) error {
	if len(c.Rules) == 0 {
		return errors.Errorf("%s.rules: must be non-empty", path)
	}
	if c.LogLevel != "" {
		if _, err := trace.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrapf(err, "%s.log_level", path)
		}
	}
	if c.MaxRounds != nil && *c.MaxRounds < 0 {
		return errors.Errorf("%s.max_rounds: must not be negative, got %d", path, *c.MaxRounds)
	}
	for i := range c.Rules {
		if err := c.Rules[i].validate(fmt.Sprintf("%s.rules[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Build resolves the tree into rules. Levels are applied top-down, so a
// node's own log_level overrides whatever its ancestors set.
func (c *Config) Build() (rule.Rule, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	maxRounds := DefaultMaxRounds
	if c.MaxRounds != nil {
		maxRounds = *c.MaxRounds
	}
	root, err := c.Pipeline.build(maxRounds)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		level, _ := trace.ParseLevel(c.LogLevel)
		root.SetLogLevel(level)
	}
	c.Pipeline.applyLevels(root)
	return root, nil
}

func (n *Node) build(maxRounds int) (rule.Rule, error) {
	switch {
	case n.Rule != "":
		return rules.Lookup(n.Rule)
	case n.Builtin != "":
		r, err := compiler.Pipeline(n.Builtin)
		if err != nil {
			return nil, err
		}
		rule.LimitRounds(r, maxRounds)
		return r, nil
	case n.Sequential != nil:
		children, err := n.Sequential.buildChildren(maxRounds)
		if err != nil {
			return nil, err
		}
		var opts []rule.Option
		if n.Sequential.Name != "" {
			opts = append(opts, rule.WithName(n.Sequential.Name))
		}
		return rule.NewSequential(children, opts...), nil
	default:
		children, err := n.Saturate.buildChildren(maxRounds)
		if err != nil {
			return nil, err
		}
		rounds := maxRounds
		if n.Saturate.MaxRounds != nil {
			rounds = *n.Saturate.MaxRounds
		}
		opts := []rule.Option{rule.WithMaxRounds(rounds)}
		if n.Saturate.Name != "" {
			opts = append(opts, rule.WithName(n.Saturate.Name))
		}
		return rule.NewSaturating(children, opts...), nil
	}
}

func (c *Composite) buildChildren(maxRounds int) ([]rule.Rule, error) {
	children := make([]rule.Rule, 0, len(c.Rules))
	for i := range c.Rules {
		child, err := c.Rules[i].build(maxRounds)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// applyLevels walks the config and the built rules in parallel, parents
// first.
func (n *Node) applyLevels(r rule.Rule) {
	level := n.LogLevel
	var body *Composite
	switch {
	case n.Sequential != nil:
		body = n.Sequential
	case n.Saturate != nil:
		body = n.Saturate
	}
	if body != nil {
		level = body.LogLevel
	}
	if level != "" {
		l, _ := trace.ParseLevel(level)
		r.SetLogLevel(l)
	}
	if body == nil {
		return
	}
	for i, child := range r.Children() {
		body.Rules[i].applyLevels(child)
	}
}
