package render

import "github.com/charmbracelet/lipgloss"

// Styles colours the parts of a circuit drawing and a rule tree.
type Styles struct {
	Gate      lipgloss.Style
	Qubit     lipgloss.Style
	Cbit      lipgloss.Style
	CbitWire  lipgloss.Style
	Connector lipgloss.Style
	Rule      lipgloss.Style
	Dim       lipgloss.Style
}

// DefaultStyles returns the palette used by the terminal UI, bound to r so
// that colour is dropped when r writes to something other than a terminal.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Gate:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("#73daca")),
		Qubit:     r.NewStyle().Foreground(lipgloss.Color("#7dcfff")),
		Cbit:      r.NewStyle().Foreground(lipgloss.Color("#e0af68")),
		CbitWire:  r.NewStyle().Foreground(lipgloss.Color("#565f89")),
		Connector: r.NewStyle().Foreground(lipgloss.Color("#e0af68")).Bold(true),
		Rule:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff9e64")),
		Dim:       r.NewStyle().Foreground(lipgloss.Color("#565f89")),
	}
}
