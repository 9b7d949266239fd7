// Package trace is the human-readable diagnostics channel of the rewrite
// engine. A Context is threaded through every rule application; it owns the
// nesting depth, so concurrent compilations never share indentation state.
//
// Tracing is strictly observational: nothing a rule decides may depend on it.
package trace

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

// Level is the verbosity of a log call, and the display threshold of a rule.
// A call is emitted when its level is at most the rule's threshold.
type Level int

const (
	Silent  Level = 0 // nothing
	Summary Level = 1 // one line per composite run and outcome
	Detail  Level = 2 // per-child results of every pass
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Silent:
		return "silent"
	case Summary:
		return "summary"
	case Detail:
		return "detail"
	}
	return strconv.Itoa(int(l))
}

// ParseLevel accepts a level name or its number.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "0":
		return Silent, nil
	case "summary", "1":
		return Summary, nil
	case "detail", "2":
		return Detail, nil
	}
	return Silent, errors.Errorf("unknown log level %q (want silent, summary or detail)", s)
}

// Event is reported to the hook once per child rule application made by a
// composite.
type Event struct {
	Depth    int
	Parent   string
	Rule     string
	Round    int // 1-based pass number within the parent
	Changed  bool
	Err      error
	Duration time.Duration
}

// Styles are the lipgloss styles used for trace lines.
type Styles struct {
	Rule      lipgloss.Style
	Changed   lipgloss.Style
	Unchanged lipgloss.Style
	Dim       lipgloss.Style
}

// DefaultStyles returns the trace styles bound to r. A renderer on a
// non-terminal writer produces plain text.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Rule:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("#73daca")),
		Changed:   r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		Unchanged: r.NewStyle().Foreground(lipgloss.Color("#565f89")),
		Dim:       r.NewStyle().Foreground(lipgloss.Color("#565f89")),
	}
}

// Context carries the diagnostics state of one compilation call. A nil
// *Context is valid and silent.
type Context struct {
	w      io.Writer
	depth  int
	indent string
	styles Styles
	hook   func(Event)
}

// Option configures a Context.
type Option func(*Context)

// WithStyles overrides the default styles.
func WithStyles(s Styles) Option {
	return func(c *Context) { c.styles = s }
}

// WithIndent sets the string written once per nesting level.
func WithIndent(indent string) Option {
	return func(c *Context) { c.indent = indent }
}

// WithHook registers a callback receiving every Event.
func WithHook(fn func(Event)) Option {
	return func(c *Context) { c.hook = fn }
}

// New creates a Context writing to w. A nil w discards output but still
// tracks depth and fires the hook.
func New(w io.Writer, opts ...Option) *Context {
	if w == nil {
		w = io.Discard
	}
	c := &Context{
		w:      w,
		indent: "  ",
		styles: DefaultStyles(lipgloss.NewRenderer(w)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Depth returns the current nesting depth.
func (c *Context) Depth() int {
	if c == nil {
		return 0
	}
	return c.depth
}

// Styles returns the styles lines should be rendered with.
func (c *Context) Styles() Styles {
	if c == nil {
		return DefaultStyles(lipgloss.DefaultRenderer())
	}
	return c.styles
}

// Enabled reports whether a call at level would be emitted under threshold.
func (c *Context) Enabled(level, threshold Level) bool {
	return c != nil && level > Silent && level <= threshold
}

// Logf writes one line at the current depth if level <= threshold.
func (c *Context) Logf(level, threshold Level, format string, args ...any) {
	if !c.Enabled(level, threshold) {
		return
	}
	prefix := strings.Repeat(c.indent, c.depth)
	msg := fmt.Sprintf(format, args...)
	for line := range strings.SplitSeq(msg, "\n") {
		fmt.Fprintf(c.w, "%s%s\n", prefix, line)
	}
}

// Enter increases the nesting depth and returns the func restoring the
// previous depth. Callers defer it so every exit path restores the depth:
//
//	defer ctx.Enter()()
func (c *Context) Enter() (release func()) {
	if c == nil {
		return func() {}
	}
	prev := c.depth
	c.depth++
	return func() { c.depth = prev }
}

// Emit passes e to the hook, if any.
func (c *Context) Emit(e Event) {
	if c == nil || c.hook == nil {
		return
	}
	e.Depth = c.depth
	c.hook(e)
}
