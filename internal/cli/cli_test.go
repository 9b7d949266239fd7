package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrewrite/internal/circuit"
)

const cpSource = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
cp(theta) q[0], q[1];
cx q[1], q[0];
`

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "qrewrite", cmd.Use)
	for _, name := range []string{"compile", "rules", "draw", "view"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestCompileFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	for flag, def := range map[string]string{
		"pipeline":   "default",
		"config":     "",
		"log-level":  "",
		"max-rounds": "1000",
		"output":     "",
		"draw":       "false",
	} {
		f := compileCmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
	assert.Equal(t, "o", compileCmd.Flags().Lookup("output").Shorthand)
}

func TestCompileFromStdin(t *testing.T) {
	res := execute(t, cpSource, "compile", "--pipeline", "decompose")
	require.NoError(t, res.err)

	out, err := circuit.ParseQASM(res.stdout)
	require.NoError(t, err)
	assert.Equal(t, 6, out.Len())
	assert.Zero(t, out.CountType(circuit.TypeP, 1))
	assert.Empty(t, res.stderr)
}

func TestCompileTraceToStderr(t *testing.T) {
	path := writeFile(t, "in.qasm", cpSource)
	res := execute(t, "", "compile", path, "-p", "decompose", "--log-level", "summary")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Running BasicDecompose: 11 child")
	assert.Contains(t, res.stderr, "BasicDecompose: successfully compiled.")
	assert.NotContains(t, res.stdout, "Running")
}

func TestCompileVerboseLogs(t *testing.T) {
	res := execute(t, cpSource, "compile", "-v")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "compiled circuit")
	assert.Contains(t, res.stderr, "run_id")
}

func TestCompileOutputFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.qasm")
	res := execute(t, cpSource, "compile", "-o", dest, "--draw")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "✓ Compiled 2 → 6 gates with Default")
	assert.Contains(t, res.stdout, "q[1]")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	out, err := circuit.ParseQASM(string(data))
	require.NoError(t, err)
	assert.Equal(t, 6, out.Len())
}

func TestCompileJSON(t *testing.T) {
	res := execute(t, cpSource, "compile", "--format", "json", "-p", "decompose")
	require.NoError(t, res.err)

	var resp struct {
		Status string         `json:"status"`
		RunID  string         `json:"run_id"`
		Data   CompileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "BasicDecompose", resp.Data.Rule)
	assert.True(t, resp.Data.Changed)
	assert.Equal(t, 2, resp.Data.GatesIn)
	assert.Equal(t, 6, resp.Data.GatesOut)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		exit  int
		msg   string
	}{
		{"bad qasm", "qreg q[1];\nfoo q[0];\n", []string{"compile"}, ExitCommandError, "line 2"},
		{"invalid circuit", "qreg q[1];\ncx q[0], q[0];\n", []string{"compile"}, ExitCommandError, "already a target"},
		{"missing file", "", []string{"compile", "/does/not/exist.qasm"}, ExitCommandError, "exist.qasm"},
		{"unknown pipeline", cpSource, []string{"compile", "-p", "fast"}, ExitCommandError, "unknown pipeline"},
		{"bad level", cpSource, []string{"compile", "--log-level", "loud"}, ExitCommandError, "unknown log level"},
		{"negative rounds", cpSource, []string{"compile", "--max-rounds=-1"}, ExitCommandError, "must not be negative"},
		{"round limit", cpSource, []string{"compile", "-p", "decompose", "--max-rounds", "1"}, ExitFailure, "did not saturate within 1 rounds"},
		{"bad format", cpSource, []string{"compile", "--format", "xml"}, ExitCommandError, "invalid format"},
		{"huge register", "qreg q[100000000000];\n", []string{"compile"}, ExitCommandError, "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, tt.stdin, tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, tt.exit, GetExitCode(res.err))
			assert.Contains(t, res.err.Error(), tt.msg)
		})
	}
}

func TestCompileErrorJSON(t *testing.T) {
	res := execute(t, cpSource, "compile", "--format", "json", "-p", "decompose", "--max-rounds", "1")
	require.Error(t, res.err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRule, resp.Error.Code)

	// The envelope is the whole report: nothing more goes to stderr.
	var stderr bytes.Buffer
	ReportError(&stderr, res.err)
	assert.Empty(t, stderr.String())
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	ReportError(&buf, nil)
	assert.Empty(t, buf.String())

	res := execute(t, cpSource, "compile", "-p", "decompose", "--max-rounds", "1")
	require.Error(t, res.err)
	ReportError(&buf, res.err)
	assert.Equal(t, "Error: "+res.err.Error()+"\n", buf.String())

	buf.Reset()
	res = execute(t, cpSource, "compile", "--format", "xml")
	require.Error(t, res.err)
	ReportError(&buf, res.err)
	assert.Contains(t, buf.String(), "Error: invalid flags: invalid format \"xml\"")
}

func TestCompileWithConfig(t *testing.T) {
	cfg := writeFile(t, "pipeline.yaml", `
pipeline:
  sequential:
    name: CPOnly
    rules:
      - rule: cp
`)
	res := execute(t, cpSource, "compile", "--config", cfg)
	require.NoError(t, res.err)
	out, err := circuit.ParseQASM(res.stdout)
	require.NoError(t, err)
	assert.Equal(t, 6, out.Len())

	res = execute(t, cpSource, "compile", "--config", cfg, "--pipeline", "default")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "either --pipeline or --config")
}

func TestRulesCommand(t *testing.T) {
	res := execute(t, "", "rules")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Rules:\n  cancel-inverses\n  ccx\n")
	assert.Contains(t, res.stdout, "Pipelines:\n  decompose\n  default\n  interleaved\n  optimize\n")

	res = execute(t, "", "rules", "-p", "optimize")
	require.NoError(t, res.err)
	assert.Equal(t, "Optimize<\n  RemoveIdentity<>\n  CancelInverses<>\n  MergeRotations<>\n>\n", res.stdout)

	res = execute(t, "", "rules", "-p", "optimize", "--format", "json", "--max-rounds", "9")
	require.NoError(t, res.err)
	var resp struct {
		Data []RuleNode `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.Len(t, resp.Data, 4)
	assert.Equal(t, RuleNode{Depth: 0, Name: "Optimize", LogLevel: "silent", MaxRounds: 9}, resp.Data[0])
}

func TestDrawCommand(t *testing.T) {
	res := execute(t, "qreg q[1];\nh q[0];\n", "draw")
	require.NoError(t, res.err)
	assert.Equal(t, "       ┌─┐ \nq[0] ──┤H├─\n       └─┘ \n", res.stdout)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	wrapped := errors.Wrap(&ExitError{Code: ExitCommandError, Message: "x"}, "outer")
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}
