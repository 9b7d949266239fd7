// Package render draws circuits and rule trees as terminal text.
package render

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"qrewrite/internal/circuit"
)

const minCellW = 5

type options struct {
	styles *Styles
	width  int
}

// Option configures a drawing.
type Option func(*options)

// WithStyles overrides the default palette.
func WithStyles(s Styles) Option {
	return func(o *options) { o.styles = &s }
}

// WithWidth folds the drawing into blocks no wider than w columns. Zero
// draws everything on one block.
func WithWidth(w int) Option {
	return func(o *options) { o.width = w }
}

// Layout assigns every gate to a column: the first one to the right of all
// earlier gates overlapping its vertical span. It returns gate indices per
// column. A measurement or a classically conditioned gate spans down to the
// last qubit, where its classical connector runs.
func Layout(c *circuit.Circuit) [][]int {
	if c == nil || c.NumQubits == 0 {
		return nil
	}
	level := make([]int, c.NumQubits)
	var cols [][]int
	for i, g := range c.Gates {
		lo, hi := span(g)
		if reachesClassical(g) {
			hi = c.NumQubits - 1
		}
		col := slices.Max(level[lo : hi+1])
		for q := lo; q <= hi; q++ {
			level[q] = col + 1
		}
		for len(cols) <= col {
			cols = append(cols, nil)
		}
		cols[col] = append(cols[col], i)
	}
	return cols
}

func reachesClassical(g circuit.Gate) bool {
	return g.Type == circuit.TypeMeasure || g.Condition != nil
}

func span(g circuit.Gate) (lo, hi int) {
	qubits := g.Qubits()
	return slices.Min(qubits), slices.Max(qubits)
}

// ──────────────────────────── Cells ────────────────────────────

type cellKind int

const (
	kindWire cellKind = iota
	kindSymbol
	kindBox
	kindCross
	kindMeasureCross
	kindBarrier
)

// cell describes what occupies one qubit in one column.
type cell struct {
	kind      cellKind
	symbol    string
	label     string
	up        bool
	down      bool
	classical bool // a double line leaves the bottom
}

func (c cell) width() int {
	if c.kind != kindBox {
		return minCellW
	}
	w := max(utf8.RuneCountInString(c.label)+4, minCellW)
	if w%2 == 0 {
		w++
	}
	return w
}

// gateLabel returns the boxed name of a gate, with its parameter.
func gateLabel(g circuit.Gate) string {
	name := g.Type
	switch g.Type {
	case circuit.TypeMeasure:
		return "M"
	case circuit.TypeSDG:
		name = "Sdg"
	case circuit.TypeTDG:
		name = "Tdg"
	case circuit.TypeReset:
		return "|0>"
	}
	if g.Param != nil {
		return fmt.Sprintf("%s(%s)", name, g.Param)
	}
	if len(g.Angles) > 0 {
		angles := make([]string, len(g.Angles))
		for i, a := range g.Angles {
			angles[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(angles, ","))
	}
	return name
}

// targetCell returns the cell drawn on a target qubit of g.
func targetCell(g circuit.Gate) cell {
	switch {
	case g.Type == circuit.TypeSWAP:
		return cell{kind: kindSymbol, symbol: "×"}
	case g.Type == circuit.TypeX && len(g.Controls) > 0:
		return cell{kind: kindSymbol, symbol: "⊕"}
	case g.Type == circuit.TypeZ && len(g.Controls) > 0:
		return cell{kind: kindSymbol, symbol: "●"}
	case g.Type == circuit.TypeBarrier:
		return cell{kind: kindBarrier}
	case g.Type == circuit.TypeMeasure:
		return cell{kind: kindBox, label: "M"}
	}
	return cell{kind: kindBox, label: gateLabel(g)}
}

// column fills the cells of one column and returns the label drawn where
// its classical connector lands: the bit a measurement writes, or "=v" for
// a gate conditioned on value v. The label is empty when nothing lands.
func column(c *circuit.Circuit, gates []int) (cells []cell, landing string) {
	cells = make([]cell, c.NumQubits)
	for _, i := range gates {
		g := c.Gates[i]
		lo, hi := span(g)
		for q := lo; q <= hi; q++ {
			switch {
			case slices.Contains(g.Targets, q):
				cells[q] = targetCell(g)
			case slices.Contains(g.Controls, q):
				cells[q] = cell{kind: kindSymbol, symbol: "●"}
			case g.Type == circuit.TypeBarrier:
				continue
			default:
				cells[q] = cell{kind: kindCross}
			}
			cells[q].up = q > lo
			cells[q].down = q < hi
		}
		if !reachesClassical(g) {
			continue
		}
		cells[hi].classical = true
		for q := hi + 1; q < c.NumQubits; q++ {
			cells[q] = cell{kind: kindMeasureCross}
		}
		switch {
		case g.Type == circuit.TypeMeasure && len(g.Cbits) > 0:
			landing = strconv.Itoa(g.Cbits[0])
		case g.Condition != nil:
			landing = "=" + strconv.Itoa(g.Condition.Value)
		}
	}
	return cells, landing
}

type drawer struct {
	st Styles
}

// lines renders a cell as three lines of exactly w visible columns.
func (d drawer) lines(c cell, w int) (top, mid, bot string) {
	half := w / 2
	pad := strings.Repeat(" ", half)
	dash := strings.Repeat("─", half)
	blank := strings.Repeat(" ", w)
	vert := pad + "│" + pad
	dvert := pad + d.st.Connector.Render("║") + pad

	top, bot = blank, blank
	if c.up {
		top = vert
	}
	switch {
	case c.classical:
		bot = dvert
	case c.down:
		bot = vert
	}

	switch c.kind {
	case kindWire:
		mid = strings.Repeat("─", w)
	case kindSymbol:
		mid = dash + d.st.Gate.Render(c.symbol) + dash
	case kindCross:
		mid = dash + "┼" + dash
	case kindMeasureCross:
		top, bot = dvert, dvert
		mid = dash + d.st.Connector.Render("╫") + dash
	case kindBarrier:
		shade := d.st.Dim.Render("░")
		mid = dash + shade + dash
		if c.up {
			top = pad + shade + pad
		}
		if c.down {
			bot = pad + shade + pad
		}
	case kindBox:
		top, mid, bot = d.box(c, w)
	}
	return top, mid, bot
}

func (d drawer) box(c cell, w int) (top, mid, bot string) {
	n := utf8.RuneCountInString(c.label)
	m := (w - n - 2) / 2
	r := w - n - 2 - m
	at := w/2 - m

	upper := []rune("┌" + strings.Repeat("─", n) + "┐")
	lower := []rune("└" + strings.Repeat("─", n) + "┘")
	if c.up {
		upper[at] = '┴'
	}
	switch {
	case c.classical:
		lower[at] = '╥'
	case c.down:
		lower[at] = '┬'
	}

	top = strings.Repeat(" ", m) + d.st.Gate.Render(string(upper)) + strings.Repeat(" ", r)
	mid = strings.Repeat("─", m) + d.st.Gate.Render("┤"+c.label+"├") + strings.Repeat("─", r)
	bot = strings.Repeat(" ", m) + d.st.Gate.Render(string(lower)) + strings.Repeat(" ", r)
	return top, mid, bot
}

// Circuit draws c with one three-line row per qubit and, when the circuit
// measures, a classical wire underneath.
func Circuit(c *circuit.Circuit, opts ...Option) string {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if c == nil || c.NumQubits == 0 {
		return ""
	}
	st := DefaultStyles(lipgloss.DefaultRenderer())
	if o.styles != nil {
		st = *o.styles
	}
	d := drawer{st: st}

	layout := Layout(c)
	cells := make([][]cell, len(layout))
	landings := make([]string, len(layout))
	widths := make([]int, len(layout))
	for i, gates := range layout {
		cells[i], landings[i] = column(c, gates)
		for _, cl := range cells[i] {
			widths[i] = max(widths[i], cl.width())
		}
	}

	numCbits := c.NumCbits()
	labelW := len(fmt.Sprintf("q[%d]", c.NumQubits-1)) + 1

	var blocks []string
	for _, cols := range fold(widths, o.width-labelW-1) {
		var sb strings.Builder
		for q := range c.NumQubits {
			label := fmt.Sprintf("%-*s", labelW, fmt.Sprintf("q[%d]", q))
			top := strings.Repeat(" ", labelW+1)
			mid := d.st.Qubit.Render(label) + "─"
			bot := top
			for _, i := range cols {
				t, m, b := d.lines(cells[i][q], widths[i])
				top += t
				mid += m
				bot += b
			}
			sb.WriteString(top + "\n" + mid + "\n" + bot + "\n")
		}
		if numCbits > 0 {
			line := d.st.Cbit.Render(fmt.Sprintf("%-*s", labelW, fmt.Sprintf("c%d", numCbits))) + d.st.CbitWire.Render("═")
			for _, i := range cols {
				line += d.classical(widths[i], landings[i])
			}
			sb.WriteString(line + "\n")
		}
		blocks = append(blocks, strings.TrimSuffix(sb.String(), "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func (d drawer) classical(w int, landing string) string {
	if landing == "" {
		return d.st.CbitWire.Render(strings.Repeat("═", w))
	}
	half := w / 2
	rest := max(w-half-1-len(landing), 0)
	return d.st.CbitWire.Render(strings.Repeat("═", half)) +
		d.st.Connector.Render("╩"+landing) +
		d.st.CbitWire.Render(strings.Repeat("═", rest))
}

// fold splits column indices into blocks whose widths sum to at most avail.
// Every block holds at least one column. A non-positive avail keeps a single
// block.
func fold(widths []int, avail int) [][]int {
	all := make([]int, len(widths))
	for i := range widths {
		all[i] = i
	}
	if avail <= 0 || len(widths) == 0 {
		return [][]int{all}
	}
	var blocks [][]int
	var cur []int
	used := 0
	for i, w := range widths {
		if len(cur) > 0 && used+w > avail {
			blocks = append(blocks, cur)
			cur, used = nil, 0
		}
		cur = append(cur, i)
		used += w
	}
	return append(blocks, cur)
}
