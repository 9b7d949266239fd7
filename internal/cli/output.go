package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"qrewrite/internal/dag"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the rules failed: round limit, rule violation
	ExitCommandError = 2 // bad input: unreadable file, invalid QASM or pipeline
)

// Error codes reported in JSON output.
const (
	ErrCodeInput    = "E001"
	ErrCodePipeline = "E002"
	ErrCodeRule     = "E003"
	ErrCodeWrite    = "E004"
)

// ExitError carries the exit code a failed command should end with.
type ExitError struct {
	Code    int
	Message string
	Err     error

	Reported bool // already written to stdout as a JSON envelope
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ReportError prints err to w unless it was already reported as JSON.
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// classify maps a compile error to its JSON error code and exit code.
func classify(err error) (string, int) {
	if dag.IsInvalidCircuit(err) {
		return ErrCodeInput, ExitCommandError
	}
	return ErrCodeRule, ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError is the error part of a JSON response.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool { return f.Format == "json" }

// Success writes a JSON success envelope around data. Text callers print
// their own output.
func (f *OutputFormatter) Success(runID string, data any) error {
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data, RunID: runID})
}

// Fail reports err in the configured format and returns it as an
// ExitError.
func (f *OutputFormatter) Fail(code string, exit int, message string, err error) error {
	exitErr := &ExitError{Code: exit, Message: message, Err: err}
	if f.JSON() {
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: exitErr.Error()},
		}); encErr != nil {
			return errors.Wrap(encErr, "write error response")
		}
		exitErr.Reported = true
	}
	return exitErr
}
