// Package view is an interactive playground: edit QASM on the left, pick a
// pipeline, and watch the compiled circuit and the rule trace update.
package view

import (
	"bytes"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"qrewrite/internal/circuit"
	"qrewrite/internal/compiler"
	"qrewrite/internal/rule"
	"qrewrite/internal/trace"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusQASM focus = iota
	focusPipelines
	focusTrace
)

// Pipeline is a named rule constructor offered in the picker.
type Pipeline struct {
	Name  string
	Build func() (rule.Rule, error)
}

// BuiltinPipelines returns the compiler's built-in pipelines in name order.
func BuiltinPipelines() []Pipeline {
	var out []Pipeline
	for _, name := range compiler.PipelineNames() {
		out = append(out, Pipeline{Name: name, Build: func() (rule.Rule, error) {
			return compiler.Pipeline(name)
		}})
	}
	return out
}

// Option configures the playground.
type Option func(*Model)

// WithPipelines replaces the pipelines offered in the picker.
func WithPipelines(p ...Pipeline) Option {
	return func(m *Model) { m.pipelines = p }
}

// WithLevel sets the initial trace level.
func WithLevel(l trace.Level) Option {
	return func(m *Model) { m.level = l }
}

// WithSavePath sets where ctrl+s writes the compiled QASM.
func WithSavePath(path string) Option {
	return func(m *Model) { m.savePath = path }
}

// WithCompilerOptions passes options to every compilation, e.g. a logger.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(m *Model) { m.compilerOpts = opts }
}

// Model represents the playground state.
type Model struct {
	width  int
	height int
	focus  focus

	qasmEditor textarea.Model
	traceView  viewport.Model
	lastQASM   string

	pipelines    []Pipeline
	selected     int
	level        trace.Level
	savePath     string
	compilerOpts []compiler.Option

	input     *circuit.Circuit
	result    *compiler.Result
	traceText string
	err       error
	statusMsg string
}

// New returns a playground editing source.
func New(source string, opts ...Option) Model {
	ta := textarea.New()
	ta.Placeholder = "Edit QASM here..."
	ta.SetWidth(40)
	ta.SetHeight(20)
	ta.ShowLineNumbers = true
	ta.Focus()

	m := Model{
		qasmEditor: ta,
		traceView:  viewport.New(80, 8),
		pipelines:  BuiltinPipelines(),
		level:      trace.Summary,
		savePath:   "compiled.qasm",
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.qasmEditor.SetValue(source)
	m.recompile()
	return m
}

// Result returns the last successful compilation, nil after an error.
func (m Model) Result() *compiler.Result { return m.result }

// Err returns the error of the last compilation attempt.
func (m Model) Err() error { return m.err }

// Pipeline returns the selected pipeline name.
func (m Model) Pipeline() string {
	if len(m.pipelines) == 0 {
		return ""
	}
	return m.pipelines[m.selected].Name
}

// Level returns the trace level used for compilation.
func (m Model) Level() trace.Level { return m.level }

// recompile parses the editor contents and runs the selected pipeline.
func (m *Model) recompile() {
	m.lastQASM = m.qasmEditor.Value()
	m.result, m.err = nil, nil
	m.traceText = ""

	circ, err := circuit.ParseQASM(m.lastQASM)
	if err != nil {
		m.input = nil
		m.err = err
		m.traceView.SetContent("")
		return
	}
	m.input = circ

	if len(m.pipelines) == 0 {
		m.err = errors.New("no pipelines configured")
		return
	}
	r, err := m.pipelines[m.selected].Build()
	if err != nil {
		m.err = err
		return
	}
	r.SetLogLevel(m.level)

	var buf bytes.Buffer
	opts := append([]compiler.Option{
		compiler.WithTraceWriter(&buf),
		compiler.WithTraceStyles(trace.DefaultStyles(lipgloss.DefaultRenderer())),
	}, m.compilerOpts...)
	res, err := compiler.New(opts...).Run(r, circ)
	m.traceText = buf.String()
	m.traceView.SetContent(m.traceText)
	m.traceView.GotoTop()
	if err != nil {
		m.err = err
		return
	}
	m.result = res
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		qasmW := max(msg.Width/3-4, 20)
		m.qasmEditor.SetWidth(qasmW)
		topH := max(msg.Height*2/3, 10)
		m.qasmEditor.SetHeight(max(topH-4, 4))
		m.traceView.Width = max(msg.Width-4, 20)
		m.traceView.Height = max(msg.Height-topH-5, 3)

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		switch key {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.cycleFocus()
			return m, nil
		case "ctrl+s":
			m.save()
			return m, nil
		case "ctrl+l":
			m.level = (m.level + 1) % (trace.Detail + 1)
			m.recompile()
			return m, nil
		}

		switch m.focus {
		case focusQASM:
			var cmd tea.Cmd
			m.qasmEditor, cmd = m.qasmEditor.Update(msg)
			cmds = append(cmds, cmd)
			if m.qasmEditor.Value() != m.lastQASM {
				m.recompile()
			}

		case focusPipelines:
			switch key {
			case "q":
				return m, tea.Quit
			case "left", "h", "up", "k":
				if m.selected > 0 {
					m.selected--
					m.recompile()
				}
			case "right", "l", "down", "j":
				if m.selected < len(m.pipelines)-1 {
					m.selected++
					m.recompile()
				}
			}

		case focusTrace:
			if key == "q" {
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.traceView, cmd = m.traceView.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) cycleFocus() {
	m.focus = (m.focus + 1) % (focusTrace + 1)
	if m.focus == focusQASM {
		m.qasmEditor.Focus()
	} else {
		m.qasmEditor.Blur()
	}
}

func (m *Model) save() {
	if m.result == nil {
		m.statusMsg = "Nothing to save"
		return
	}
	if err := os.WriteFile(m.savePath, []byte(m.result.Circuit.ToQASM()), 0o644); err != nil {
		m.statusMsg = fmt.Sprintf("Save error: %v", err)
		return
	}
	m.statusMsg = "Saved " + m.savePath
}

// Run starts the playground on the terminal.
func Run(source string, opts ...Option) error {
	_, err := tea.NewProgram(New(source, opts...), tea.WithAltScreen()).Run()
	return err
}
